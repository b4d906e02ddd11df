package models

import (
	"testing"

	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequest_Options(t *testing.T) {
	off := false

	opts := SearchRequest{Query: "rust"}.Options(10)
	assert.Equal(t, 10, opts.MaxResults)
	assert.True(t, opts.EnableAnalysis)
	assert.True(t, opts.IncludeSynthesis)

	opts = SearchRequest{Query: "rust", MaxResults: 3, EnableAnalysis: &off, IncludeSynthesis: &off}.Options(10)
	assert.Equal(t, 3, opts.MaxResults)
	assert.False(t, opts.EnableAnalysis)
	assert.False(t, opts.IncludeSynthesis)
}

func TestSearchResponse_Clone(t *testing.T) {
	orig := SearchResponse{
		Query:   "rust",
		Results: []ranking.ScoredResult{{RawResult: sources.RawResult{URL: "u1"}, Rank: 1}},
		Synthesis: &synthesis.Result{
			KeyPoints:   []string{"a"},
			SourcesUsed: map[string]int{"wikipedia": 1},
		},
		AgentMetrics: AgentMetrics{AgentsUsed: []string{"QueryProcessor"}},
	}

	cp := orig.Clone()
	cp.Results[0].URL = "changed"
	cp.Synthesis.KeyPoints[0] = "changed"
	cp.Synthesis.SourcesUsed["wikipedia"] = 9
	cp.AgentMetrics.AgentsUsed[0] = "changed"
	cp.AgentMetrics.CacheHit = true

	assert.Equal(t, "u1", orig.Results[0].URL)
	assert.Equal(t, "a", orig.Synthesis.KeyPoints[0])
	assert.Equal(t, 1, orig.Synthesis.SourcesUsed["wikipedia"])
	assert.Equal(t, "QueryProcessor", orig.AgentMetrics.AgentsUsed[0])
	assert.False(t, orig.AgentMetrics.CacheHit)

	empty := SearchResponse{Results: []ranking.ScoredResult{}}.Clone()
	require.NotNil(t, empty.Results)
	assert.Nil(t, empty.Synthesis)
}
