package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceWikipedia  = "wikipedia"
	SourceDuckDuckGo = "duckduckgo"
)

var knownSources = map[string]bool{
	SourceWikipedia:  true,
	SourceDuckDuckGo: true,
}

type Config struct {
	LogLevel string

	Server struct {
		Port               string
		Mode               string
		RateLimitPerMinute int
	}
	Cache struct {
		TTL time.Duration
	}
	Metrics struct {
		HistorySize int
	}
	Retrieval struct {
		SourceTimeout     time.Duration
		DefaultMaxResults int
		MaxResultsLimit   int
	}
	Sources struct {
		Enabled   []string
		UserAgent string
		Wikipedia struct {
			BaseURL    string
			MaxResults int
		}
		DuckDuckGo struct {
			BaseURL string
		}
	}
	Scoring struct {
		Authority        map[string]float64
		DefaultAuthority float64
	}
	Tasks struct {
		PoolSize int
	}
}

// Load reads config.yaml from the working directory if present, then
// environment variables (SERVER_PORT, CACHE_TTL, ...), then defaults.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit search path for config.yaml.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config

	config.LogLevel = v.GetString("log_level")
	config.Server.Port = v.GetString("server.port")
	config.Server.Mode = v.GetString("server.mode")
	config.Server.RateLimitPerMinute = v.GetInt("server.rate_limit_per_minute")
	config.Cache.TTL = v.GetDuration("cache.ttl")
	config.Metrics.HistorySize = v.GetInt("metrics.history_size")
	config.Retrieval.SourceTimeout = v.GetDuration("retrieval.source_timeout")
	config.Retrieval.DefaultMaxResults = v.GetInt("retrieval.default_max_results")
	config.Retrieval.MaxResultsLimit = v.GetInt("retrieval.max_results_limit")
	config.Sources.Enabled = v.GetStringSlice("sources.enabled")
	config.Sources.UserAgent = v.GetString("sources.user_agent")
	config.Sources.Wikipedia.BaseURL = v.GetString("sources.wikipedia.base_url")
	config.Sources.Wikipedia.MaxResults = v.GetInt("sources.wikipedia.max_results")
	config.Sources.DuckDuckGo.BaseURL = v.GetString("sources.duckduckgo.base_url")
	config.Scoring.DefaultAuthority = v.GetFloat64("scoring.default_authority")
	config.Tasks.PoolSize = v.GetInt("tasks.pool_size")

	if err := v.UnmarshalKey("scoring.authority", &config.Scoring.Authority); err != nil {
		return nil, fmt.Errorf("failed to decode scoring.authority: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit_per_minute", 0)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("metrics.history_size", 100)
	v.SetDefault("retrieval.source_timeout", 30*time.Second)
	v.SetDefault("retrieval.default_max_results", 10)
	v.SetDefault("retrieval.max_results_limit", 50)
	v.SetDefault("sources.enabled", []string{SourceDuckDuckGo, SourceWikipedia})
	v.SetDefault("sources.user_agent", "agentsearch/1.0 (+https://github.com/Ayash-Bera/agentsearch)")
	v.SetDefault("sources.wikipedia.base_url", "https://en.wikipedia.org")
	v.SetDefault("sources.wikipedia.max_results", 5)
	v.SetDefault("sources.duckduckgo.base_url", "https://html.duckduckgo.com")
	v.SetDefault("scoring.authority", map[string]float64{
		SourceWikipedia:  0.9,
		SourceDuckDuckGo: 0.7,
	})
	v.SetDefault("scoring.default_authority", 0.5)
	v.SetDefault("tasks.pool_size", 0)
}

func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Retrieval.SourceTimeout <= 0 {
		return fmt.Errorf("retrieval.source_timeout must be positive, got %s", c.Retrieval.SourceTimeout)
	}
	if c.Metrics.HistorySize < 1 {
		return fmt.Errorf("metrics.history_size must be at least 1")
	}
	if c.Retrieval.MaxResultsLimit < 1 {
		return fmt.Errorf("retrieval.max_results_limit must be at least 1")
	}
	if c.Retrieval.DefaultMaxResults < 1 || c.Retrieval.DefaultMaxResults > c.Retrieval.MaxResultsLimit {
		return fmt.Errorf("retrieval.default_max_results must be within 1..%d", c.Retrieval.MaxResultsLimit)
	}
	for _, name := range c.Sources.Enabled {
		if !knownSources[name] {
			return fmt.Errorf("unknown source %q in sources.enabled", name)
		}
	}
	for name, weight := range c.Scoring.Authority {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("scoring.authority[%s] must be within [0,1], got %v", name, weight)
		}
	}
	return nil
}
