package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/cache"
	"github.com/Ayash-Bera/agentsearch/internal/config"
	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/retrieval"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	results []sources.RawResult
	err     error
	calls   atomic.Int32
}

func (f *fakeRetriever) Retrieve(ctx context.Context, pq query.ProcessedQuery, maxResults int, names []string) ([]sources.RawResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := f.results
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

type failingRanker struct{}

func (failingRanker) Rank(pq query.ProcessedQuery, results []sources.RawResult) ([]ranking.ScoredResult, error) {
	return nil, ranking.ErrScoring
}

type countingSynthesizer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSynthesizer) Synthesize(pq query.ProcessedQuery, results []ranking.ScoredResult) (synthesis.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return synthesis.Result{}, c.err
	}
	return synthesis.Result{Summary: "ok", Confidence: 0.5, SourcesUsed: map[string]int{}}, nil
}

type harness struct {
	orch      *Orchestrator
	retriever *fakeRetriever
	recorder  *metrics.Recorder
	cache     *cache.Cache[models.SearchResponse]
}

func newHarness(t *testing.T, stages Stages, retriever *fakeRetriever) harness {
	t.Helper()
	logger := utils.NewDiscardLogger()
	recorder := metrics.NewRecorder()

	if stages.Query == nil {
		stages.Query = query.NewNormalizer()
	}
	if retriever != nil {
		stages.Retriever = retriever
	}
	if stages.Ranker == nil {
		stages.Ranker = ranking.NewRanker(ranking.NewScorer(ranking.DefaultAuthorities, ranking.DefaultAuthority), recorder, logger)
	}
	if stages.Synthesizer == nil {
		stages.Synthesizer = synthesis.NewSynthesizer(recorder, logger)
	}

	responses := cache.New[models.SearchResponse](time.Hour)
	return harness{
		orch:      New(stages, responses, recorder, logger),
		retriever: retriever,
		recorder:  recorder,
		cache:     responses,
	}
}

func sampleResults() []sources.RawResult {
	return []sources.RawResult{
		{Title: "Tokio", Snippet: "An async runtime for Rust", URL: "https://tokio.rs", Source: "duckduckgo", Position: 1},
		{Title: "Rust async runtime", Snippet: "rust async runtime overview", URL: "https://example.com/rt", Source: "duckduckgo", Position: 2},
		{Title: "Async/await", Snippet: "Rust async", URL: "https://en.wikipedia.org/wiki/Async", Source: "wikipedia", Position: 1},
	}
}

func defaultOpts(q string) models.SearchOptions {
	return models.SearchOptions{Query: q, MaxResults: 10, EnableAnalysis: true, IncludeSynthesis: true}
}

func TestSearch_FullPipeline(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{results: sampleResults()})

	resp, err := h.orch.Search(context.Background(), defaultOpts("Rust async runtime"))
	require.NoError(t, err)

	assert.Equal(t, "Rust async runtime", resp.Query)
	require.Len(t, resp.Results, 3)
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, "https://example.com/rt", resp.Results[0].URL)
	require.NotNil(t, resp.Synthesis)
	assert.Equal(t, 3, resp.Synthesis.ResultsSynthesized)
	assert.False(t, resp.Cached)
	assert.False(t, resp.AgentMetrics.CacheHit)
	assert.Equal(t, []string{"QueryProcessor", "SearchExecutor", "AnalysisAgent", "SynthesisAgent"}, resp.AgentMetrics.AgentsUsed)
	assert.GreaterOrEqual(t, resp.AgentMetrics.TotalTimeMs, 0.0)

	status := h.orch.Status()
	assert.Equal(t, int64(1), status.TotalSearches)
	assert.Equal(t, int64(1), status.SuccessfulSearches)
	assert.Equal(t, 100.0, status.SuccessRate)
	assert.Equal(t, int64(1), h.recorder.TotalSearches())
	assert.Equal(t, 1, h.cache.Size())
}

func TestSearch_CacheHit(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{results: sampleResults()})

	first, err := h.orch.Search(context.Background(), defaultOpts("Rust async"))
	require.NoError(t, err)

	second, err := h.orch.Search(context.Background(), defaultOpts("  rust ASYNC "))
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.retriever.calls.Load())
	assert.True(t, second.Cached)
	assert.True(t, second.AgentMetrics.CacheHit)
	assert.Equal(t, first.Results, second.Results)
	assert.False(t, first.Cached)

	stored, ok := h.cache.Get(CacheKey(defaultOpts("rust async")))
	require.True(t, ok)
	assert.False(t, stored.Cached)
	assert.False(t, stored.AgentMetrics.CacheHit)

	status := h.orch.Status()
	assert.Equal(t, int64(1), status.TotalSearches)
	assert.Equal(t, int64(1), status.SuccessfulSearches)
	assert.Equal(t, int64(1), h.recorder.TotalSearches())
	assert.Len(t, h.recorder.History(0), 1)
}

// contextSource returns its results unless ctx is already done.
type contextSource struct {
	results []sources.RawResult
}

func (contextSource) Name() string { return "duckduckgo" }

func (s contextSource) Search(ctx context.Context, q string, limit int) ([]sources.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.results, nil
}

func TestSearch_CallerCancellationDoesNotCacheEmptyResponse(t *testing.T) {
	logger := utils.NewDiscardLogger()
	registry := sources.NewRegistry(contextSource{results: sampleResults()})
	stages := Stages{
		Retriever: retrieval.NewRetriever(registry, time.Second, nil, logger),
	}
	h := newHarness(t, stages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first, err := h.orch.Search(ctx, defaultOpts("rust async"))
	require.NoError(t, err)
	assert.Len(t, first.Results, 3)

	second, err := h.orch.Search(context.Background(), defaultOpts("rust async"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Len(t, second.Results, 3)
}

func TestSearch_DifferentOptionsMissCache(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{results: sampleResults()})

	opts := defaultOpts("rust")
	_, err := h.orch.Search(context.Background(), opts)
	require.NoError(t, err)

	opts.MaxResults = 2
	resp, err := h.orch.Search(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, resp.Results, 2)
	assert.Equal(t, int32(2), h.retriever.calls.Load())
}

func TestSearch_AnalysisDisabledPassesThrough(t *testing.T) {
	syn := &countingSynthesizer{}
	h := newHarness(t, Stages{Ranker: failingRanker{}, Synthesizer: syn}, &fakeRetriever{results: sampleResults()})

	opts := defaultOpts("rust")
	opts.EnableAnalysis = false
	resp, err := h.orch.Search(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "https://tokio.rs", resp.Results[0].URL)
	assert.Equal(t, 0, resp.Results[0].Rank)
	assert.Equal(t, 0.0, resp.Results[0].RelevanceScore)
	assert.Equal(t, []string{"QueryProcessor", "SearchExecutor", "SynthesisAgent"}, resp.AgentMetrics.AgentsUsed)
	assert.Equal(t, int32(1), syn.calls.Load())
}

func TestSearch_SynthesisSkipped(t *testing.T) {
	syn := &countingSynthesizer{}

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, Stages{Synthesizer: syn}, &fakeRetriever{results: sampleResults()})
		opts := defaultOpts("rust")
		opts.IncludeSynthesis = false

		resp, err := h.orch.Search(context.Background(), opts)
		require.NoError(t, err)
		assert.Nil(t, resp.Synthesis)
	})

	t.Run("no results", func(t *testing.T) {
		h := newHarness(t, Stages{Synthesizer: syn}, &fakeRetriever{})

		resp, err := h.orch.Search(context.Background(), defaultOpts("rust"))
		require.NoError(t, err)
		assert.Nil(t, resp.Synthesis)
		assert.NotNil(t, resp.Results)
		assert.Empty(t, resp.Results)
	})

	assert.Equal(t, int32(0), syn.calls.Load())
}

func TestSearch_StageFailures(t *testing.T) {
	tests := []struct {
		name   string
		stages Stages
		ret    *fakeRetriever
		stage  State
		target error
	}{
		{
			name:   "retrieval",
			ret:    &fakeRetriever{err: retrieval.ErrNoSources},
			stage:  StateRetrieving,
			target: retrieval.ErrNoSources,
		},
		{
			name:   "scoring",
			stages: Stages{Ranker: failingRanker{}},
			ret:    &fakeRetriever{results: sampleResults()},
			stage:  StateScoring,
			target: ranking.ErrScoring,
		},
		{
			name:   "synthesis",
			stages: Stages{Synthesizer: &countingSynthesizer{err: synthesis.ErrSynthesis}},
			ret:    &fakeRetriever{results: sampleResults()},
			stage:  StateSynthesizing,
			target: synthesis.ErrSynthesis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.stages, tt.ret)

			resp, err := h.orch.Search(context.Background(), defaultOpts("rust"))
			require.Error(t, err)
			assert.Nil(t, resp)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.ErrorIs(t, err, tt.target)

			status := h.orch.Status()
			assert.Equal(t, int64(1), status.TotalSearches)
			assert.Equal(t, int64(1), status.FailedSearches)
			assert.Equal(t, 0.0, status.SuccessRate)
			assert.Equal(t, int64(1), h.recorder.Summary().ErrorCount)
			assert.Equal(t, 0, h.cache.Size())
		})
	}
}

func TestSearch_ConcurrentTallies(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{results: sampleResults()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := defaultOpts(fmt.Sprintf("rust %d", i))
			_, err := h.orch.Search(context.Background(), opts)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	status := h.orch.Status()
	assert.Equal(t, int64(20), status.TotalSearches)
	assert.Equal(t, int64(20), status.SuccessfulSearches)
	assert.Equal(t, int64(20), h.recorder.TotalSearches())
}

func TestStatus_Empty(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{})

	status := h.orch.Status()
	assert.Equal(t, "ready", status.Status)
	assert.Equal(t, int64(0), status.TotalSearches)
	assert.Equal(t, 0.0, status.SuccessRate)
}

func TestAgents(t *testing.T) {
	h := newHarness(t, Stages{}, &fakeRetriever{results: sampleResults()})
	_, err := h.orch.Search(context.Background(), defaultOpts("rust"))
	require.NoError(t, err)

	agents := h.orch.Agents()
	require.Len(t, agents, 3)
	assert.Equal(t, QueryStageName, agents[0].Name)
	assert.Equal(t, ranking.StageName, agents[1].Name)
	assert.Equal(t, synthesis.StageName, agents[2].Name)
	assert.Equal(t, int64(1), agents[0].TasksCompleted)

	tr, ok := h.orch.Agent("analysis")
	require.True(t, ok)
	assert.Equal(t, ranking.StageName, tr.Name())

	_, ok = h.orch.Agent("search_executor")
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	base := defaultOpts("Rust")
	base.Sources = []string{"wikipedia", "duckduckgo"}

	same := defaultOpts("  rust ")
	same.Sources = []string{"duckduckgo", "wikipedia"}
	assert.Equal(t, CacheKey(base), CacheKey(same))

	other := base
	other.IncludeSynthesis = false
	assert.NotEqual(t, CacheKey(base), CacheKey(other))

	other = base
	other.Sources = []string{"wikipedia"}
	assert.NotEqual(t, CacheKey(base), CacheKey(other))
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StateRetrieving, Err: errors.New("boom")}
	assert.Equal(t, "search failed during retrieving: boom", err.Error())
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.TTL = time.Minute
	cfg.Retrieval.SourceTimeout = time.Second
	cfg.Sources.Enabled = []string{config.SourceDuckDuckGo, config.SourceWikipedia}
	cfg.Sources.Wikipedia.MaxResults = 5
	cfg.Scoring.DefaultAuthority = 0.5

	orch, err := NewFromConfig(cfg, metrics.NewRecorder(), utils.NewDiscardLogger())
	require.NoError(t, err)

	assert.Len(t, orch.Agents(), 4)
	assert.Equal(t, time.Minute, orch.Cache().TTL())

	cfg.Sources.Enabled = []string{"altavista"}
	_, err = NewFromConfig(cfg, metrics.NewRecorder(), utils.NewDiscardLogger())
	assert.Error(t, err)
}
