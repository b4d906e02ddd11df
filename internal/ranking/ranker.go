package ranking

import (
	"fmt"
	"sort"

	"github.com/Ayash-Bera/agentsearch/internal/agent"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/sirupsen/logrus"
)

const StageName = "AnalysisAgent"

var capabilities = []string{
	"relevance_scoring",
	"authority_weighting",
	"result_ranking",
}

// Ranker scores a result list and orders it. It is stateless apart from
// its tracker and safe for concurrent use.
type Ranker struct {
	scorer  *Scorer
	tracker *agent.Tracker
	logger  *logrus.Logger
}

func NewRanker(scorer *Scorer, recorder agent.StageRecorder, logger *logrus.Logger) *Ranker {
	tracker := agent.NewTracker(StageName, recorder, capabilities...)
	tracker.MarkReady()

	return &Ranker{
		scorer:  scorer,
		tracker: tracker,
		logger:  logger,
	}
}

func (r *Ranker) Tracker() *agent.Tracker {
	return r.tracker
}

// Rank scores every result, sorts by descending score keeping input order
// among ties, and assigns ranks 1..N.
func (r *Ranker) Rank(pq query.ProcessedQuery, results []sources.RawResult) (ranked []ScoredResult, err error) {
	start := r.tracker.Start()
	defer func() {
		if p := recover(); p != nil {
			ranked, err = nil, fmt.Errorf("%w: %v", ErrScoring, p)
		}
		if err != nil {
			r.tracker.Fail(start)
			return
		}
		elapsed := r.tracker.Finish(start)
		r.logger.WithFields(logrus.Fields{
			"results":    len(ranked),
			"elapsed_ms": elapsed,
		}).Debug("Results ranked")
	}()

	m := newTextMatcher(pq)

	ranked = make([]ScoredResult, len(results))
	for i, res := range results {
		ranked[i] = ScoredResult{
			RawResult:      res,
			RelevanceScore: r.scorer.score(m, res),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, nil
}

// Passthrough wraps results unscored, in retrieval order, for requests that
// disable analysis.
func Passthrough(results []sources.RawResult) []ScoredResult {
	out := make([]ScoredResult, len(results))
	for i, res := range results {
		out[i] = ScoredResult{RawResult: res}
	}
	return out
}
