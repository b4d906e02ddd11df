// Package ranking scores retrieved results against the processed query and
// orders them by relevance.
package ranking

import (
	"strings"

	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/cloudflare/ahocorasick"
)

const (
	titleWeight     = 0.4
	snippetWeight   = 0.3
	authorityWeight = 0.2
	positionWeight  = 0.1

	DefaultAuthority = 0.5
)

// DefaultAuthorities is the source trust table used when none is configured.
var DefaultAuthorities = map[string]float64{
	"wikipedia":  0.9,
	"duckduckgo": 0.7,
}

// ScoredResult is a RawResult with its relevance and rank attached. Rank
// is zero when the result was passed through without scoring.
type ScoredResult struct {
	sources.RawResult
	RelevanceScore float64 `json:"relevance_score"`
	Rank           int     `json:"rank,omitempty"`
}

// textMatcher scores free text against one query. It is built per query
// because the keyword automaton depends on the query's keywords.
type textMatcher struct {
	phrase   string
	keywords []string
	matcher  *ahocorasick.Matcher
}

func newTextMatcher(pq query.ProcessedQuery) *textMatcher {
	m := &textMatcher{
		phrase:   pq.Normalized,
		keywords: pq.Keywords,
	}
	if len(pq.Keywords) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(pq.Keywords)
	}
	return m
}

// relevance is 0 for empty text, +0.5 when the whole normalized query
// occurs in text, +0.5 scaled by the share of keywords found.
func (m *textMatcher) relevance(text string) float64 {
	if text == "" {
		return 0
	}
	text = strings.ToLower(text)

	var score float64
	if m.phrase != "" && strings.Contains(text, m.phrase) {
		score += 0.5
	}

	if m.matcher != nil {
		found := make(map[string]struct{}, len(m.keywords))
		for _, idx := range m.matcher.MatchThreadSafe([]byte(text)) {
			found[m.keywords[idx]] = struct{}{}
		}
		score += 0.5 * float64(len(found)) / float64(len(m.keywords))
	}

	return utils.Clamp01(score)
}

// PositionScore decays by 0.1 per place in the source's own list and
// bottoms out at 0 from position 11.
func PositionScore(position int) float64 {
	score := 1 - float64(position-1)*0.1
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Scorer computes the composite relevance of a result.
type Scorer struct {
	authorities      map[string]float64
	defaultAuthority float64
}

func NewScorer(authorities map[string]float64, defaultAuthority float64) *Scorer {
	if authorities == nil {
		authorities = DefaultAuthorities
	}
	table := make(map[string]float64, len(authorities))
	for name, v := range authorities {
		table[name] = utils.Clamp01(v)
	}
	return &Scorer{
		authorities:      table,
		defaultAuthority: utils.Clamp01(defaultAuthority),
	}
}

func (s *Scorer) Authority(source string) float64 {
	if v, ok := s.authorities[source]; ok {
		return v
	}
	return s.defaultAuthority
}

func (s *Scorer) score(m *textMatcher, r sources.RawResult) float64 {
	composite := titleWeight*m.relevance(r.Title) +
		snippetWeight*m.relevance(r.Snippet) +
		authorityWeight*s.Authority(r.Source) +
		positionWeight*PositionScore(r.Position)

	return utils.Clamp01(utils.RoundTo(composite, 3))
}

// Score returns the relevance of a single result for pq.
func (s *Scorer) Score(pq query.ProcessedQuery, r sources.RawResult) float64 {
	return s.score(newTextMatcher(pq), r)
}
