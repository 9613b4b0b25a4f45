// Package scrape reads the National Archives case-law listing pages and the
// judiciary.uk registry tables. Listing entries become RawCase records; the
// registry seeds the judge table.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/LinfanS/court-transcripts-pipeline/internal/config"
)

const defaultBaseURL = "https://caselaw.nationalarchives.gov.uk"

// courtFilter restricts listing searches to the courts whose judgments carry
// neutral citations the pipeline understands.
const courtFilter = "&court=uksc&court=ukpc&court=ewca%2Fciv&court=ewca%2Fcrim" +
	"&court=ewhc%2Fadmin&court=ewhc%2Fadmlty&court=ewhc%2Fch&court=ewhc%2Fcomm" +
	"&court=ewhc%2Ffam&court=ewhc%2Fipec&court=ewhc%2Fkb&court=ewhc%2Fmercantile" +
	"&court=ewhc%2Fpat&court=ewhc%2Fscco&court=ewhc%2Ftcc"

// Client fetches and parses pages. One client is shared per run; requests
// are rate limited per process, not per host, since both source sites sit
// behind the same politeness budget.
type Client struct {
	http     *http.Client
	baseURL  string
	registry string
	perPage  int
	limiter  *rate.Limiter
}

// NewClient creates a scraping client from configuration.
func NewClient(cfg config.ScrapeConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:  base,
		registry: registryBase,
		perPage:  perPage,
		limiter:  rate.NewLimiter(5, 5),
	}
}

// searchURL builds the listing search URL for one result page, newest first.
// A non-nil from date scopes the search to judgments on or after that day,
// which is how the live pipeline avoids re-reading the whole archive.
func (c *Client) searchURL(page int, from *time.Time) string {
	scope := ""
	if from != nil {
		scope = fmt.Sprintf("&from_date_0=%d&from_date_1=%d&from_date_2=%d",
			from.Day(), int(from.Month()), from.Year())
	}
	return fmt.Sprintf("%s/judgments/search?per_page=%d&order=-date&query=%s%s&page=%d",
		c.baseURL, c.perPage, courtFilter, scope, page)
}

// get fetches a URL and parses the response as HTML, retrying transient
// failures.
func (c *Client) get(ctx context.Context, rawURL string) (*html.Node, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scrape: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "scrape: build request %s", rawURL)
		}
		req.Header.Set("User-Agent", "court-transcripts-pipeline/1.0")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("scrape: request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = eris.Errorf("scrape: %s returned %d", rawURL, resp.StatusCode)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				c.backoff(ctx, attempt)
				continue
			}
			return nil, lastErr
		}

		doc, err := html.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "scrape: parse %s", rawURL)
		}
		return doc, nil
	}
	return nil, eris.Wrapf(lastErr, "scrape: giving up on %s", rawURL)
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	select {
	case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
	case <-ctx.Done():
	}
}
