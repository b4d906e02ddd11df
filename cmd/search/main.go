// cmd/search/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/Ayash-Bera/agentsearch/internal/config"
	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/models"
	"github.com/Ayash-Bera/agentsearch/internal/orchestrator"
	"github.com/Ayash-Bera/agentsearch/internal/query"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to read .env: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "search",
		Usage: "Run the multi-source search pipeline from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "error",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Directory containing config.yaml",
				Value: ".",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Search for the given text",
				ArgsUsage: "<text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results (0 uses the configured default)",
					},
					&cli.BoolFlag{
						Name:  "no-analysis",
						Usage: "Skip relevance scoring and ranking",
					},
					&cli.BoolFlag{
						Name:  "no-synthesis",
						Usage: "Skip answer synthesis",
					},
					&cli.StringSliceFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Restrict the search to a source (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
				},
			},
			{
				Name:   "sources",
				Usage:  "List the configured sources",
				Action: sourcesCommand,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(c.String("log-level"))
	logger.SetOutput(os.Stderr)
	return cfg, logger, nil
}

func queryCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if err := query.Validate(text); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	maxResults := c.Int("max-results")
	if maxResults == 0 {
		maxResults = cfg.Retrieval.DefaultMaxResults
	}
	if maxResults < 1 || maxResults > cfg.Retrieval.MaxResultsLimit {
		return fmt.Errorf("--max-results must be between 1 and %d", cfg.Retrieval.MaxResultsLimit)
	}

	orch, err := orchestrator.NewFromConfig(cfg, metrics.NewRecorder(), logger)
	if err != nil {
		return err
	}

	resp, err := orch.Search(context.Background(), models.SearchOptions{
		Query:            text,
		MaxResults:       maxResults,
		EnableAnalysis:   !c.Bool("no-analysis"),
		IncludeSynthesis: !c.Bool("no-synthesis"),
		Sources:          c.StringSlice("source"),
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResponse(c.App.Writer, resp)
	return nil
}

func sourcesCommand(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	for _, name := range cfg.Sources.Enabled {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func printResponse(w io.Writer, resp *models.SearchResponse) {
	if resp.Synthesis != nil {
		fmt.Fprintf(w, "%s\n", resp.Synthesis.Summary)
		fmt.Fprintf(w, "Confidence: %.2f\n\n", resp.Synthesis.Confidence)
		for _, point := range resp.Synthesis.KeyPoints {
			fmt.Fprintf(w, "  * %s\n", point)
		}
		fmt.Fprintln(w)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	for i, r := range resp.Results {
		fmt.Fprintf(w, "%2d. %s [%s", i+1, r.Title, r.Source)
		if r.Rank > 0 {
			fmt.Fprintf(w, ", %.3f", r.RelevanceScore)
		}
		fmt.Fprintf(w, "]\n    %s\n", r.URL)
	}
	fmt.Fprintf(w, "\n%d results in %.0fms\n", len(resp.Results), resp.AgentMetrics.TotalTimeMs)
}
