package synthesis

import (
	"strings"
	"testing"

	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(title, snippet, source string, score float64, rank int) ranking.ScoredResult {
	return ranking.ScoredResult{
		RawResult: sources.RawResult{
			Title:   title,
			Snippet: snippet,
			URL:     "https://example.com/" + title,
			Source:  source,
		},
		RelevanceScore: score,
		Rank:           rank,
	}
}

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(metrics.NewRecorder(), utils.NewDiscardLogger())
}

func TestSynthesize_Empty(t *testing.T) {
	res, err := newTestSynthesizer().Synthesize(query.NewNormalizer().Process("anything"), nil)
	require.NoError(t, err)

	assert.Equal(t, "No results available to synthesize.", res.Summary)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, res.KeyPoints)
	assert.Empty(t, res.SourcesUsed)
	assert.Equal(t, 0, res.ResultsSynthesized)
}

func TestSynthesize_Definition(t *testing.T) {
	pq := query.NewNormalizer().Process("What is Rust")
	results := []ranking.ScoredResult{
		scored("Rust (programming language)", "Rust is a systems language.", "wikipedia", 0.9, 1),
		scored("Rust Book", "", "duckduckgo", 0.6, 2),
		scored("", "no title", "duckduckgo", 0.3, 3),
	}

	res, err := newTestSynthesizer().Synthesize(pq, results)
	require.NoError(t, err)

	assert.Equal(t, "Based on search results for 'What is Rust': Rust is a systems language.", res.Summary)
	assert.Equal(t, []string{"Rust (programming language)", "Rust Book"}, res.KeyPoints)
	// 0.7*avg(0.9,0.6,0.3) + 0.3*2/5
	assert.InDelta(t, 0.54, res.Confidence, 1e-9)
	assert.Equal(t, map[string]int{"wikipedia": 1, "duckduckgo": 2}, res.SourcesUsed)
	assert.Equal(t, 3, res.ResultsSynthesized)
}

func TestSynthesize_LeadInsAndFallbacks(t *testing.T) {
	n := query.NewNormalizer()

	t.Run("tutorial", func(t *testing.T) {
		res, err := newTestSynthesizer().Synthesize(n.Process("learn how to bake bread"), []ranking.ScoredResult{
			scored("", "", "duckduckgo", 0.2, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, "Here's information on learn how to bake bread: Multiple sources provide information on this topic. See results for details.", res.Summary)
		assert.Equal(t, []string{"See search results for detailed information"}, res.KeyPoints)
	})

	t.Run("general", func(t *testing.T) {
		res, err := newTestSynthesizer().Synthesize(n.Process("golang generics"), []ranking.ScoredResult{
			scored("Generics", "Type parameters.", "wikipedia", 0.4, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, "Regarding 'golang generics': Type parameters.", res.Summary)
	})
}

func TestSynthesize_TruncatesSnippetByRunes(t *testing.T) {
	long := strings.Repeat("é", 250)

	res, err := newTestSynthesizer().Synthesize(query.NewNormalizer().Process("accents"), []ranking.ScoredResult{
		scored("Accents", long, "wikipedia", 0.5, 1),
	})
	require.NoError(t, err)

	want := "Regarding 'accents': " + strings.Repeat("é", 200) + "..."
	assert.Equal(t, want, res.Summary)
}

func TestSynthesize_UsesTopFiveByRank(t *testing.T) {
	results := []ranking.ScoredResult{
		scored("r7", "", "b", 0.1, 7),
		scored("r1", "first", "a", 0.95, 1),
		scored("r2", "", "a", 0.9, 2),
		scored("r3", "", "a", 0.85, 3),
		scored("r4", "", "b", 0.8, 4),
		scored("r5", "", "b", 0.7, 5),
		scored("r6", "", "b", 0.6, 6),
	}

	res, err := newTestSynthesizer().Synthesize(query.NewNormalizer().Process("ranks"), results)
	require.NoError(t, err)

	assert.Equal(t, "Regarding 'ranks': first", res.Summary)
	assert.Equal(t, []string{"r1", "r2", "r3"}, res.KeyPoints)
	assert.Equal(t, 5, res.ResultsSynthesized)
	assert.Equal(t, map[string]int{"a": 3, "b": 2}, res.SourcesUsed)
	// six results above 0.5, capped at five: 0.7*0.9 + 0.3*1
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
}

func TestSynthesize_UnrankedKeepsOrder(t *testing.T) {
	results := []ranking.ScoredResult{
		scored("first", "from retrieval", "a", 0, 0),
		scored("second", "", "a", 0, 0),
	}

	res, err := newTestSynthesizer().Synthesize(query.NewNormalizer().Process("plain"), results)
	require.NoError(t, err)

	assert.Equal(t, "Regarding 'plain': from retrieval", res.Summary)
	assert.Equal(t, []string{"first", "second"}, res.KeyPoints)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestSynthesize_ConfidenceInRange(t *testing.T) {
	res, err := newTestSynthesizer().Synthesize(query.NewNormalizer().Process("x"), []ranking.ScoredResult{
		scored("a", "", "a", 1, 1),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	// 0.7*1 + 0.3*1/5
	assert.InDelta(t, 0.76, res.Confidence, 1e-9)
}
