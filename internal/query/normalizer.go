// internal/query/normalizer.go
package query

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Intent string

const (
	IntentDefinition     Intent = "definition"
	IntentPerson         Intent = "person"
	IntentTime           Intent = "time"
	IntentLocation       Intent = "location"
	IntentReason         Intent = "reason"
	IntentProcess        Intent = "process"
	IntentTutorial       Intent = "tutorial"
	IntentRecommendation Intent = "recommendation"
	IntentComparison     Intent = "comparison"
	IntentReview         Intent = "review"
	IntentGeneral        Intent = "general"
	IntentUnknown        Intent = "unknown"
)

const (
	maxKeywords      = 5
	maxVariations    = 3
	minKeywordLength = 3
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	// Everything except word characters, whitespace, hyphen and question mark.
	disallowedPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s\-?]`)

	questionWords = map[string]Intent{
		"what":  IntentDefinition,
		"who":   IntentPerson,
		"when":  IntentTime,
		"where": IntentLocation,
		"why":   IntentReason,
		"how":   IntentProcess,
	}

	stopWords = map[string]bool{
		"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
		"were": true, "be": true, "been": true, "in": true, "on": true, "at": true,
		"to": true, "for": true, "of": true, "with": true, "by": true,
	}
)

// ProcessedQuery is the normalized view of one raw query. It is built once
// and never modified afterwards.
type ProcessedQuery struct {
	Original   string   `json:"original_query"`
	Normalized string   `json:"normalized_query"`
	Intent     Intent   `json:"intent"`
	Keywords   []string `json:"keywords"`
	Variations []string `json:"variations"`
	WordCount  int      `json:"query_length"`
}

// Normalizer turns raw query text into a ProcessedQuery. It holds no state
// and is safe for concurrent use.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Process normalizes raw. Empty or punctuation-only input is not an error:
// it produces an empty normalized form with intent unknown.
func (n *Normalizer) Process(raw string) ProcessedQuery {
	normalized := Normalize(raw)
	keywords := ExtractKeywords(normalized)

	return ProcessedQuery{
		Original:   raw,
		Normalized: normalized,
		Intent:     ClassifyIntent(normalized),
		Keywords:   keywords,
		Variations: GenerateVariations(normalized, keywords),
		WordCount:  len(strings.Fields(raw)),
	}
}

// Normalize lowercases, trims and collapses whitespace, then strips
// punctuation other than '-' and '?'. Stripping runs last, so "rust & go"
// keeps both spaces around the removed '&'.
func Normalize(raw string) string {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	return disallowedPattern.ReplaceAllString(normalized, "")
}

// ClassifyIntent applies the intent rules in order; the first match wins.
func ClassifyIntent(normalized string) Intent {
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return IntentUnknown
	}

	if intent, ok := questionWords[words[0]]; ok {
		return intent
	}

	switch {
	case strings.Contains(normalized, "how to") || strings.Contains(normalized, "how do"):
		return IntentTutorial
	case strings.Contains(normalized, "best") || strings.Contains(normalized, "top"):
		return IntentRecommendation
	case strings.Contains(normalized, "compare") || strings.Contains(normalized, "vs") ||
		strings.Contains(normalized, "versus"):
		return IntentComparison
	case strings.Contains(normalized, "review"):
		return IntentReview
	default:
		return IntentGeneral
	}
}

// ExtractKeywords keeps the first five distinct tokens that are not stop
// words and are longer than two characters, in query order.
func ExtractKeywords(normalized string) []string {
	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]bool)

	for _, word := range strings.Fields(normalized) {
		if len(keywords) == maxKeywords {
			break
		}
		if stopWords[word] || utf8.RuneCountInString(word) < minKeywordLength || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}

	return keywords
}

// GenerateVariations builds up to three distinct alternative phrasings.
func GenerateVariations(normalized string, keywords []string) []string {
	candidates := []string{normalized}

	if len(keywords) >= 2 {
		candidates = append(candidates, strings.Join(keywords, " "))
	}
	if len(strings.Fields(normalized)) >= 2 {
		candidates = append(candidates, `"`+normalized+`"`)
	}
	candidates = append(candidates, normalized+" tutorial", normalized+" guide")

	variations := make([]string, 0, maxVariations)
	seen := make(map[string]bool)
	for _, v := range candidates {
		if seen[v] {
			continue
		}
		seen[v] = true
		variations = append(variations, v)
		if len(variations) == maxVariations {
			break
		}
	}

	return variations
}
