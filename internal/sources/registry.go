package sources

import (
	"fmt"

	"github.com/Ayash-Bera/agentsearch/internal/config"
	"github.com/sirupsen/logrus"
)

// Registry is the static, ordered set of configured sources. Registration
// order is the launch order used by the retriever.
type Registry struct {
	order   []string
	sources map[string]Source
}

func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds a source, or replaces one with the same name in place.
func (r *Registry) Register(source Source) {
	if source == nil {
		return
	}
	name := source.Name()
	if _, exists := r.sources[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sources[name] = source
}

func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names returns source names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Select returns the registered sources whose names appear in names, in
// registration order. An empty names list selects every source. Unknown
// names are ignored.
func (r *Registry) Select(names []string) []Source {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	selected := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		if len(names) == 0 || wanted[name] {
			selected = append(selected, r.sources[name])
		}
	}
	return selected
}

// BuildRegistry creates the adapters listed in cfg.Sources.Enabled.
func BuildRegistry(cfg *config.Config, logger *logrus.Logger) (*Registry, error) {
	registry := NewRegistry()

	for _, name := range cfg.Sources.Enabled {
		switch name {
		case config.SourceWikipedia:
			registry.Register(NewWikipediaSource(
				cfg.Sources.Wikipedia.BaseURL,
				cfg.Sources.UserAgent,
				cfg.Sources.Wikipedia.MaxResults,
				cfg.Retrieval.SourceTimeout,
				logger,
			))
		case config.SourceDuckDuckGo:
			registry.Register(NewDuckDuckGoSource(
				cfg.Sources.DuckDuckGo.BaseURL,
				cfg.Sources.UserAgent,
				cfg.Retrieval.SourceTimeout,
				logger,
			))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}

	logger.WithField("sources", registry.Names()).Info("Source registry built")
	return registry, nil
}
