package scrape

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// MaxPage returns the number of result pages the current search spans.
// Returns 0 when the site renders no pagination nav at all, and 1 when the
// nav is present but carries no numbered page links.
func (c *Client) MaxPage(ctx context.Context, from *time.Time) (int, error) {
	doc, err := c.get(ctx, c.searchURL(1, from))
	if err != nil {
		return 0, err
	}

	nav := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "nav" &&
			attr(n, "aria-label") == "Results pagination"
	})
	if nav == nil {
		return 0, nil
	}

	max := 0
	for _, link := range findAll(nav, elementWithClass("a", "pagination__page-link")) {
		text := nodeText(link)
		if !strings.HasPrefix(text, "Page") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "Page")))
		if err != nil {
			continue
		}
		if num > max {
			max = num
		}
	}
	if max == 0 {
		return 1, nil
	}
	return max, nil
}

// Listing fetches one search result page and returns its judgments, skipping
// citations already present in the store or the progress ledger. Each kept
// entry includes the full judgment text fetched from its detail page.
// Entries missing any required field are dropped with a warning.
func (c *Client) Listing(ctx context.Context, page int, from *time.Time, alreadyLoaded map[string]struct{}) ([]model.RawCase, error) {
	doc, err := c.get(ctx, c.searchURL(page, from))
	if err != nil {
		return nil, err
	}

	list := findNode(doc, elementWithClass("ul", "judgment-listing__list"))
	if list == nil {
		return nil, nil
	}

	var cases []model.RawCase
	for _, item := range findAll(list, element("li")) {
		raw := parseListingItem(item)
		if _, loaded := alreadyLoaded[raw.Citation]; loaded && raw.Citation != "" {
			continue
		}

		if href := raw.URL; href != "" {
			text, err := c.ArticleText(ctx, href)
			if err != nil {
				zap.L().Warn("scrape: judgment text fetch failed",
					zap.String("citation", raw.Citation),
					zap.Error(err),
				)
				continue
			}
			raw.RawText = text
			raw.URL = c.baseURL + href
		}

		if err := validateRawCase(raw); err != nil {
			zap.L().Warn("scrape: dropping incomplete listing entry",
				zap.String("citation", raw.Citation),
				zap.String("title", raw.Title),
				zap.Error(err),
			)
			continue
		}
		cases = append(cases, raw)
	}
	return cases, nil
}

func parseListingItem(item *html.Node) model.RawCase {
	var raw model.RawCase

	if title := findNode(item, elementWithClass("span", "judgment-listing__title")); title != nil {
		raw.Title = nodeText(title)
		if a := findNode(title, element("a")); a != nil {
			raw.URL = attr(a, "href")
		}
	}
	if court := findNode(item, elementWithClass("span", "judgment-listing__court")); court != nil {
		raw.Court = nodeText(court)
	}
	if citation := findNode(item, elementWithClass("span", "judgment-listing__neutralcitation")); citation != nil {
		raw.Citation = nodeText(citation)
	}
	if date := findNode(item, elementWithClass("time", "judgment-listing__date")); date != nil {
		raw.Date = attr(date, "datetime")
	}
	return raw
}

// ArticleText fetches a judgment detail page and returns the text of its
// article element, which holds the full transcript.
func (c *Client) ArticleText(ctx context.Context, href string) (string, error) {
	doc, err := c.get(ctx, c.baseURL+href)
	if err != nil {
		return "", err
	}
	article := findNode(doc, element("article"))
	if article == nil {
		return "", eris.Errorf("scrape: no article element at %s", href)
	}
	return nodeText(article), nil
}

func validateRawCase(raw model.RawCase) error {
	for name, v := range map[string]string{
		"title":    raw.Title,
		"url":      raw.URL,
		"court":    raw.Court,
		"citation": raw.Citation,
		"date":     raw.Date,
		"text_raw": raw.RawText,
	} {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("scrape: missing %s", name)
		}
	}
	return nil
}
