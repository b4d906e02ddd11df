// Package synthesis condenses a ranked result list into a short answer
// with key points and a confidence estimate.
package synthesis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Ayash-Bera/agentsearch/internal/agent"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/sirupsen/logrus"
)

const StageName = "SynthesisAgent"

const (
	topResults        = 5
	keyPointResults   = 3
	confidenceResults = 3
	snippetRunes      = 200
	highScore         = 0.5

	emptySummary    = "No results available to synthesize."
	fallbackSummary = "Multiple sources provide information on this topic. See results for details."
	fallbackPoint   = "See search results for detailed information"
)

var ErrSynthesis = errors.New("synthesis failed")

var capabilities = []string{
	"summary_generation",
	"key_point_extraction",
	"confidence_estimation",
}

// Result is the synthesized answer for one query.
type Result struct {
	Summary            string         `json:"summary"`
	KeyPoints          []string       `json:"key_points"`
	Confidence         float64        `json:"confidence"`
	SourcesUsed        map[string]int `json:"sources_used"`
	ResultsSynthesized int            `json:"results_synthesized"`
}

// Empty is the result for an empty input list.
func Empty() Result {
	return Result{
		Summary:     emptySummary,
		KeyPoints:   []string{},
		SourcesUsed: map[string]int{},
	}
}

type Synthesizer struct {
	tracker *agent.Tracker
	logger  *logrus.Logger
}

func NewSynthesizer(recorder agent.StageRecorder, logger *logrus.Logger) *Synthesizer {
	tracker := agent.NewTracker(StageName, recorder, capabilities...)
	tracker.MarkReady()

	return &Synthesizer{
		tracker: tracker,
		logger:  logger,
	}
}

func (s *Synthesizer) Tracker() *agent.Tracker {
	return s.tracker
}

// Synthesize works on the top results by rank. Unranked input (rank 0) is
// taken in list order.
func (s *Synthesizer) Synthesize(pq query.ProcessedQuery, results []ranking.ScoredResult) (res Result, err error) {
	start := s.tracker.Start()
	defer func() {
		if p := recover(); p != nil {
			res, err = Result{}, fmt.Errorf("%w: %v", ErrSynthesis, p)
		}
		if err != nil {
			s.tracker.Fail(start)
			return
		}
		elapsed := s.tracker.Finish(start)
		s.logger.WithFields(logrus.Fields{
			"results_synthesized": res.ResultsSynthesized,
			"confidence":          res.Confidence,
			"elapsed_ms":          elapsed,
		}).Debug("Synthesis completed")
	}()

	if len(results) == 0 {
		return Empty(), nil
	}

	top := topByRank(results, topResults)

	return Result{
		Summary:            summarize(pq, top[0]),
		KeyPoints:          keyPoints(top),
		Confidence:         confidence(results, top),
		SourcesUsed:        sourcesUsed(top),
		ResultsSynthesized: len(top),
	}, nil
}

func topByRank(results []ranking.ScoredResult, n int) []ranking.ScoredResult {
	sorted := make([]ranking.ScoredResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Rank, sorted[j].Rank
		if ri == 0 || rj == 0 {
			return ri != 0 && rj == 0
		}
		return ri < rj
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func summarize(pq query.ProcessedQuery, best ranking.ScoredResult) string {
	var leadIn string
	switch pq.Intent {
	case query.IntentDefinition:
		leadIn = fmt.Sprintf("Based on search results for '%s': ", pq.Original)
	case query.IntentTutorial:
		leadIn = fmt.Sprintf("Here's information on %s: ", pq.Original)
	default:
		leadIn = fmt.Sprintf("Regarding '%s': ", pq.Original)
	}

	if best.Snippet == "" {
		return leadIn + fallbackSummary
	}
	return leadIn + truncate(best.Snippet, snippetRunes)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func keyPoints(top []ranking.ScoredResult) []string {
	points := make([]string, 0, keyPointResults)
	for i, r := range top {
		if i == keyPointResults {
			break
		}
		if r.Title != "" {
			points = append(points, r.Title)
		}
	}
	if len(points) == 0 {
		return []string{fallbackPoint}
	}
	return points
}

// confidence blends the mean score of the leading results with how many
// results overall scored above highScore.
func confidence(all, top []ranking.ScoredResult) float64 {
	n := len(top)
	if n > confidenceResults {
		n = confidenceResults
	}
	var sum float64
	for _, r := range top[:n] {
		sum += r.RelevanceScore
	}
	avg := sum / float64(n)

	high := 0
	for _, r := range all {
		if r.RelevanceScore > highScore {
			high++
		}
	}
	if high > topResults {
		high = topResults
	}

	return utils.Clamp01(utils.RoundTo(0.7*avg+0.3*float64(high)/topResults, 2))
}

func sourcesUsed(top []ranking.ScoredResult) map[string]int {
	used := make(map[string]int)
	for _, r := range top {
		used[r.Source]++
	}
	return used
}
