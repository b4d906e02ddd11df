// Package orchestrator drives one search request through the pipeline
// stages and owns the response cache and success tallies.
package orchestrator

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/agent"
	"github.com/Ayash-Bera/agentsearch/internal/cache"
	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/sirupsen/logrus"
)

// State is the position of a request in the pipeline.
type State string

const (
	StateReceived     State = "received"
	StateNormalizing  State = "normalizing"
	StateRetrieving   State = "retrieving"
	StateScoring      State = "scoring"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

const QueryStageName = "QueryProcessorAgent"

var queryCapabilities = []string{
	"query_normalization",
	"intent_detection",
	"keyword_extraction",
	"query_expansion",
}

type QueryProcessor interface {
	Process(raw string) query.ProcessedQuery
}

type Retriever interface {
	Retrieve(ctx context.Context, pq query.ProcessedQuery, maxResults int, names []string) ([]sources.RawResult, error)
}

type Ranker interface {
	Rank(pq query.ProcessedQuery, results []sources.RawResult) ([]ranking.ScoredResult, error)
}

type Synthesizer interface {
	Synthesize(pq query.ProcessedQuery, results []ranking.ScoredResult) (synthesis.Result, error)
}

// tracked is implemented by stages that report their own status.
type tracked interface {
	Tracker() *agent.Tracker
}

type Stages struct {
	Query       QueryProcessor
	Retriever   Retriever
	Ranker      Ranker
	Synthesizer Synthesizer
}

// Orchestrator is shared by all requests. Searches on different goroutines
// run independently; the cache, recorder and tallies are synchronized.
type Orchestrator struct {
	stages   Stages
	cache    *cache.Cache[models.SearchResponse]
	recorder *metrics.Recorder
	logger   *logrus.Logger

	queryTracker *agent.Tracker
	trackers     map[string]*agent.Tracker

	mu         sync.Mutex
	total      int64
	successful int64
	failed     int64
}

func New(stages Stages, responses *cache.Cache[models.SearchResponse], recorder *metrics.Recorder, logger *logrus.Logger) *Orchestrator {
	queryTracker := agent.NewTracker(QueryStageName, recorder, queryCapabilities...)
	queryTracker.MarkReady()

	o := &Orchestrator{
		stages:       stages,
		cache:        responses,
		recorder:     recorder,
		logger:       logger,
		queryTracker: queryTracker,
		trackers: map[string]*agent.Tracker{
			"query_processor": queryTracker,
		},
	}

	for key, stage := range map[string]interface{}{
		"search_executor": stages.Retriever,
		"analysis":        stages.Ranker,
		"synthesis":       stages.Synthesizer,
	} {
		if t, ok := stage.(tracked); ok {
			o.trackers[key] = t.Tracker()
		}
	}

	return o
}

// CacheKey fingerprints the parts of a request that change its response.
// Queries differing only in case or surrounding whitespace share a key.
func CacheKey(opts models.SearchOptions) string {
	names := append([]string(nil), opts.Sources...)
	sort.Strings(names)

	return utils.Fingerprint(
		strings.ToLower(strings.TrimSpace(opts.Query)),
		strconv.Itoa(opts.MaxResults),
		strconv.FormatBool(opts.EnableAnalysis),
		strconv.FormatBool(opts.IncludeSynthesis),
		strings.Join(names, ","),
	)
}

// Search serves a cached response or runs the full pipeline for opts. Only
// pipeline runs count toward the tallies and the metrics history. Once
// started, a run is not cancelled by ctx. A failure in any stage aborts
// the request with a *StageError.
func (o *Orchestrator) Search(ctx context.Context, opts models.SearchOptions) (*models.SearchResponse, error) {
	started := time.Now()
	key := CacheKey(opts)

	if cached, ok := o.cache.Get(key); ok {
		resp := cached.Clone()
		resp.Cached = true
		resp.AgentMetrics.CacheHit = true

		o.logger.WithFields(logrus.Fields{
			"query":   opts.Query,
			"results": len(resp.Results),
		}).Info("Search served from cache")
		return &resp, nil
	}

	ctx = context.WithoutCancel(ctx)

	o.recorder.RecordSearch(opts.Query)
	o.mu.Lock()
	o.total++
	o.mu.Unlock()

	log := o.logger.WithFields(logrus.Fields{
		"query":       opts.Query,
		"max_results": opts.MaxResults,
	})
	state := StateReceived
	advance := func(next State) {
		log.WithFields(logrus.Fields{"from": state, "to": next}).Debug("Search state changed")
		state = next
	}

	var am models.AgentMetrics

	advance(StateNormalizing)
	qStart := o.queryTracker.Start()
	pq := o.stages.Query.Process(opts.Query)
	am.QueryProcessingMs = utils.RoundTo(o.queryTracker.Finish(qStart), 2)

	advance(StateRetrieving)
	stageStart := time.Now()
	raw, err := o.stages.Retriever.Retrieve(ctx, pq, opts.MaxResults, opts.Sources)
	if err != nil {
		return nil, o.fail(log, state, err)
	}
	am.SearchExecutionMs = utils.RoundTo(utils.Millis(time.Since(stageStart)), 2)

	var results []ranking.ScoredResult
	if opts.EnableAnalysis {
		advance(StateScoring)
		stageStart = time.Now()
		results, err = o.stages.Ranker.Rank(pq, raw)
		if err != nil {
			return nil, o.fail(log, state, err)
		}
		am.AnalysisMs = utils.RoundTo(utils.Millis(time.Since(stageStart)), 2)
	} else {
		results = ranking.Passthrough(raw)
	}

	var syn *synthesis.Result
	if opts.IncludeSynthesis && len(results) > 0 {
		advance(StateSynthesizing)
		stageStart = time.Now()
		res, err := o.stages.Synthesizer.Synthesize(pq, results)
		if err != nil {
			return nil, o.fail(log, state, err)
		}
		syn = &res
		am.SynthesisMs = utils.RoundTo(utils.Millis(time.Since(stageStart)), 2)
	}

	am.AgentsUsed = stagesUsed(opts)
	am.TotalTimeMs = utils.RoundTo(utils.Millis(time.Since(started)), 2)

	if results == nil {
		results = []ranking.ScoredResult{}
	}
	resp := models.SearchResponse{
		Query:        opts.Query,
		Results:      results,
		Synthesis:    syn,
		AgentMetrics: am,
		Timestamp:    time.Now(),
	}

	o.cache.Set(key, resp.Clone())
	o.succeed()
	advance(StateCompleted)

	log.WithFields(logrus.Fields{
		"intent":        pq.Intent,
		"results":       len(results),
		"total_time_ms": am.TotalTimeMs,
	}).Info("Search completed")

	return &resp, nil
}

func (o *Orchestrator) succeed() {
	o.mu.Lock()
	o.successful++
	o.mu.Unlock()
}

func (o *Orchestrator) fail(log *logrus.Entry, stage State, err error) error {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
	o.recorder.RecordError()

	log.WithFields(logrus.Fields{
		"stage": stage,
		"to":    StateFailed,
	}).WithError(err).Error("Search failed")

	return &StageError{Stage: stage, Err: err}
}

func stagesUsed(opts models.SearchOptions) []string {
	used := []string{"QueryProcessor", "SearchExecutor"}
	if opts.EnableAnalysis {
		used = append(used, ranking.StageName)
	}
	if opts.IncludeSynthesis {
		used = append(used, synthesis.StageName)
	}
	return used
}

// Status reports the request tallies. Success rate is a percentage.
func (o *Orchestrator) Status() models.OrchestratorStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := models.OrchestratorStatus{
		Status:             agent.StatusReady,
		TotalSearches:      o.total,
		SuccessfulSearches: o.successful,
		FailedSearches:     o.failed,
	}
	if o.total > 0 {
		s.SuccessRate = utils.RoundTo(float64(o.successful)/float64(o.total)*100, 2)
	}
	return s
}

// Agent returns the tracker registered under key (query_processor,
// search_executor, analysis, synthesis).
func (o *Orchestrator) Agent(key string) (*agent.Tracker, bool) {
	t, ok := o.trackers[key]
	return t, ok
}

// Agents returns every stage status in pipeline order.
func (o *Orchestrator) Agents() []agent.Status {
	var out []agent.Status
	for _, key := range []string{"query_processor", "search_executor", "analysis", "synthesis"} {
		if t, ok := o.trackers[key]; ok {
			out = append(out, t.Status())
		}
	}
	return out
}

func (o *Orchestrator) Cache() *cache.Cache[models.SearchResponse] {
	return o.cache
}

func (o *Orchestrator) Recorder() *metrics.Recorder {
	return o.recorder
}
