package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	duckDuckGoName     = "duckduckgo"
	duckDuckGoHTMLPath = "/html/"
)

// DuckDuckGoSource scrapes the DuckDuckGo HTML results page.
type DuckDuckGoSource struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewDuckDuckGoSource(baseURL, userAgent string, timeout time.Duration, logger *logrus.Logger) *DuckDuckGoSource {
	return &DuckDuckGoSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
	}
}

func (d *DuckDuckGoSource) Name() string {
	return duckDuckGoName
}

// Search runs one synchronous colly visit. A fresh collector is built per
// call so concurrent searches share no scraper state.
func (d *DuckDuckGoSource) Search(ctx context.Context, query string, limit int) ([]RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 1 {
		return []RawResult{}, nil
	}

	c := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(d.timeout)

	results := make([]RawResult, 0, limit)
	var scrapeErr error

	c.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(results) >= limit || e.DOM.HasClass("result--ad") {
			return
		}

		link := resolveDuckDuckGoLink(e.ChildAttr("a.result__a", "href"))
		if link == "" {
			return
		}

		results = append(results, RawResult{
			Title:    strings.TrimSpace(e.ChildText("a.result__a")),
			URL:      link,
			Snippet:  strings.Join(strings.Fields(e.ChildText(".result__snippet")), " "),
			Source:   duckDuckGoName,
			Position: len(results) + 1,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	visitURL := d.baseURL + duckDuckGoHTMLPath + "?q=" + url.QueryEscape(query)

	d.logger.WithFields(logrus.Fields{
		"source": duckDuckGoName,
		"query":  query,
		"limit":  limit,
	}).Debug("Scraping DuckDuckGo")

	if err := c.Visit(visitURL); err != nil {
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		return nil, fmt.Errorf("failed to visit results page: %w", err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return results, nil
}

// resolveDuckDuckGoLink unwraps the /l/?uddg= redirect links DuckDuckGo
// uses on its HTML page. Direct http(s) links pass through unchanged.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}
