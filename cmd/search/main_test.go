package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/internal/ranking"
	"github.com/Ayash-Bera/agentsearch/internal/sources"
	"github.com/Ayash-Bera/agentsearch/internal/synthesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCommand_RequiresText(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"search", "query"})
	assert.ErrorIs(t, err, query.ErrEmptyQuery)
}

func TestQueryCommand_MaxResultsBounds(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"search", "--config", t.TempDir(), "query", "--max-results", "500", "rust"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-results")
}

func TestSourcesCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("sources:\n  enabled: [wikipedia]\n"), 0o644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"search", "--config", dir, "sources"}))
	assert.Equal(t, "wikipedia\n", out.String())
}

func TestPrintResponse(t *testing.T) {
	resp := &models.SearchResponse{
		Results: []ranking.ScoredResult{
			{RawResult: sources.RawResult{Title: "Rust", URL: "https://www.rust-lang.org/", Source: "duckduckgo"}, RelevanceScore: 0.812, Rank: 1},
		},
		Synthesis: &synthesis.Result{Summary: "Regarding 'rust': fast", Confidence: 0.7, KeyPoints: []string{"Rust"}},
	}

	var out bytes.Buffer
	printResponse(&out, resp)

	text := out.String()
	assert.Contains(t, text, "Regarding 'rust': fast")
	assert.Contains(t, text, "Confidence: 0.70")
	assert.Contains(t, text, " 1. Rust [duckduckgo, 0.812]")
	assert.Contains(t, text, "https://www.rust-lang.org/")

	out.Reset()
	printResponse(&out, &models.SearchResponse{})
	assert.Contains(t, out.String(), "No results.")
}
