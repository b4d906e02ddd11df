// Package retrieval fans one processed query out to every selected source
// and merges what comes back into a single deduplicated list.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/agent"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const (
	StageName = "SearchExecutorAgent"

	DefaultSourceTimeout = 30 * time.Second
)

var capabilities = []string{
	"web_search",
	"wikipedia_search",
	"parallel_execution",
	"result_deduplication",
}

// outcome is what one source contributed. A failed source has err set and
// no results.
type outcome struct {
	source  string
	results []sources.RawResult
	err     error
	elapsed time.Duration
}

// Retriever owns the source registry and the per-source timeout.
type Retriever struct {
	registry *sources.Registry
	timeout  time.Duration
	tracker  *agent.Tracker
	logger   *logrus.Logger
}

func NewRetriever(registry *sources.Registry, timeout time.Duration, recorder agent.StageRecorder, logger *logrus.Logger) *Retriever {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	tracker := agent.NewTracker(StageName, recorder, capabilities...)
	tracker.MarkReady()

	return &Retriever{
		registry: registry,
		timeout:  timeout,
		tracker:  tracker,
		logger:   logger,
	}
}

func (r *Retriever) Tracker() *agent.Tracker {
	return r.tracker
}

// Retrieve queries every selected source concurrently and returns at most
// maxResults unique results. Source failures are logged and absorbed; the
// only error is ErrNoSources.
func (r *Retriever) Retrieve(ctx context.Context, pq query.ProcessedQuery, maxResults int, names []string) ([]sources.RawResult, error) {
	start := r.tracker.Start()

	selected := r.registry.Select(names)
	if len(selected) == 0 {
		r.tracker.Fail(start)
		return nil, fmt.Errorf("%w (requested %v)", ErrNoSources, names)
	}

	outcomes := make([]outcome, len(selected))

	var wg conc.WaitGroup
	for i, src := range selected {
		wg.Go(func() {
			outcomes[i] = r.callSource(ctx, src, pq.Normalized, maxResults)
		})
	}
	wg.Wait()

	var raw []sources.RawResult
	for _, o := range outcomes {
		fields := logrus.Fields{
			"source":     o.source,
			"results":    len(o.results),
			"elapsed_ms": o.elapsed.Milliseconds(),
		}
		if o.err != nil {
			r.logger.WithFields(fields).WithError(o.err).Warn("Source search failed")
			continue
		}
		r.logger.WithFields(fields).Debug("Source search completed")
		raw = append(raw, o.results...)
	}

	merged := Merge(raw, maxResults)
	elapsed := r.tracker.Finish(start)

	r.logger.WithFields(logrus.Fields{
		"query":       pq.Normalized,
		"sources":     len(selected),
		"raw_results": len(raw),
		"results":     len(merged),
		"elapsed_ms":  elapsed,
	}).Info("Retrieval completed")

	return merged, nil
}

// callSource runs one source under its own deadline. The call happens on a
// separate goroutine so an adapter that ignores ctx cannot hold the join
// past the deadline; its late result is discarded.
func (r *Retriever) callSource(parent context.Context, src sources.Source, q string, limit int) outcome {
	name := src.Name()
	began := time.Now()

	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{source: name, err: &sources.SourceError{Source: name, Err: fmt.Errorf("panic: %v", p)}}
			}
		}()

		results, err := src.Search(ctx, q, limit)
		if err != nil {
			done <- outcome{source: name, err: &sources.SourceError{Source: name, Err: err}}
			return
		}
		done <- outcome{source: name, results: results}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o = outcome{source: name, err: &sources.SourceError{Source: name, Err: ctx.Err()}}
	}
	o.elapsed = time.Since(began)
	return o
}

// Merge drops results with an empty URL or a URL already seen, keeping the
// first occurrence, then truncates to limit. Input order is preserved.
func Merge(results []sources.RawResult, limit int) []sources.RawResult {
	seen := make(map[string]bool, len(results))
	merged := make([]sources.RawResult, 0, len(results))

	for _, res := range results {
		if res.URL == "" || seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		merged = append(merged, res)
	}

	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
