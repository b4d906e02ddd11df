package orchestrator

import (
	"fmt"

	"github.com/Ayash-Bera/agentsearch/internal/cache"
	"github.com/Ayash-Bera/agentsearch/internal/config"
	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/retrieval"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
	"github.com/sirupsen/logrus"
)

// NewFromConfig assembles the production pipeline: the configured source
// adapters, the default stages and a response cache with the configured TTL.
func NewFromConfig(cfg *config.Config, recorder *metrics.Recorder, logger *logrus.Logger) (*Orchestrator, error) {
	registry, err := sources.BuildRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build source registry: %w", err)
	}

	stages := Stages{
		Query:       query.NewNormalizer(),
		Retriever:   retrieval.NewRetriever(registry, cfg.Retrieval.SourceTimeout, recorder, logger),
		Ranker:      ranking.NewRanker(ranking.NewScorer(cfg.Scoring.Authority, cfg.Scoring.DefaultAuthority), recorder, logger),
		Synthesizer: synthesis.NewSynthesizer(recorder, logger),
	}

	return New(stages, cache.New[models.SearchResponse](cfg.Cache.TTL), recorder, logger), nil
}
