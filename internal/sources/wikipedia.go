package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	wikipediaName          = "wikipedia"
	defaultWikipediaLimit  = 5
	wikipediaSearchPath    = "/w/api.php"
	wikipediaArticlePrefix = "/wiki/"
)

type wikipediaSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			PageID  int64  `json:"pageid"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// WikipediaSource queries the MediaWiki search API.
type WikipediaSource struct {
	baseURL    string
	userAgent  string
	maxResults int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewWikipediaSource creates the adapter. maxResults caps every call no
// matter what limit the caller asks for.
func NewWikipediaSource(baseURL, userAgent string, maxResults int, timeout time.Duration, logger *logrus.Logger) *WikipediaSource {
	if maxResults < 1 {
		maxResults = defaultWikipediaLimit
	}
	return &WikipediaSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (w *WikipediaSource) Name() string {
	return wikipediaName
}

func (w *WikipediaSource) Search(ctx context.Context, query string, limit int) ([]RawResult, error) {
	if limit > w.maxResults {
		limit = w.maxResults
	}
	if limit < 1 {
		return []RawResult{}, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")
	params.Set("format", "json")
	params.Set("utf8", "1")

	apiURL := w.baseURL + wikipediaSearchPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "application/json")

	w.logger.WithFields(logrus.Fields{
		"source": wikipediaName,
		"query":  query,
		"limit":  limit,
	}).Debug("Querying Wikipedia")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed wikipediaSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error %s: %s", parsed.Error.Code, parsed.Error.Info)
	}

	results := make([]RawResult, 0, len(parsed.Query.Search))
	for _, hit := range parsed.Query.Search {
		if len(results) == limit {
			break
		}
		results = append(results, RawResult{
			Title:    hit.Title,
			URL:      w.articleURL(hit.Title),
			Snippet:  htmlToText(hit.Snippet),
			Source:   wikipediaName,
			Position: len(results) + 1,
		})
	}

	return results, nil
}

func (w *WikipediaSource) articleURL(title string) string {
	return w.baseURL + wikipediaArticlePrefix + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// htmlToText drops markup such as the searchmatch spans MediaWiki puts in
// snippets and collapses whitespace.
func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
