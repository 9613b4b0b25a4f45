package scrape

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/rotisserie/eris"
)

// registryList describes how to read one judiciary.uk membership table. The
// lists share a page layout but differ in column count and in which cell of
// each row carries the name, so each list records its own stride and offset
// over the flattened td cells.
type registryList struct {
	name       string
	path       string
	stride     int
	offset     int
	header     string // column header cell to skip
	alphaStart bool   // drop cells not starting with a letter
	trimTail   bool   // some lists suffix names with a footnote marker
}

const registryBase = "https://www.judiciary.uk/about-the-judiciary/who-are-the-judiciary/list-of-members-of-the-judiciary/"

var registryLists = []registryList{
	{name: "high court masters", path: "hc-masters-list/", stride: 2, offset: 0, header: "Name", alphaStart: true},
	{name: "bench chairs", path: "bench-chairmen-list/", stride: 2, offset: 1, header: "Name", alphaStart: true},
	{name: "district judges (magistrates)", path: "dj-mags-ct-list/", stride: 3, offset: 0, header: "Judge"},
	{name: "diversity and community relations judges", path: "diversity-and-community-relations-judges-list/", stride: 2, offset: 0, header: "Name", alphaStart: true},
	{name: "judge advocates general", path: "jag-list/", stride: 2, offset: 0, header: "Judge"},
	{name: "circuit judges", path: "circuit-judge-list/", stride: 3, offset: 0, header: "Judge", trimTail: true},
	{name: "district judges", path: "district-judge-list/", stride: 3, offset: 0, header: "Judge", trimTail: true},
	{name: "diversity and community relations magistrates", path: "diversity-community-and-relations-magistrates/", stride: 2, offset: 0, header: "Name", alphaStart: true},
}

// JudgeNames crawls the judiciary.uk membership lists and returns every judge
// name found, in crawl order. A list that fails to fetch is skipped with a
// warning rather than failing the whole seed, since the lists are independent.
func (c *Client) JudgeNames(ctx context.Context) ([]string, error) {
	var names []string
	var failed int
	for _, list := range registryLists {
		cells, err := c.registryCells(ctx, c.registry+list.path)
		if err != nil {
			failed++
			zap.L().Warn("scrape: judge registry list failed",
				zap.String("list", list.name),
				zap.Error(err),
			)
			continue
		}
		before := len(names)
		names = append(names, extractJudgeNames(cells, list)...)
		zap.L().Info("scrape: judge registry list read",
			zap.String("list", list.name),
			zap.Int("judges", len(names)-before),
		)
	}
	if failed == len(registryLists) {
		return nil, eris.New("scrape: every judge registry list failed")
	}
	return names, nil
}

// registryCells returns the text of every td cell in a registry page's
// content area, in document order.
func (c *Client) registryCells(ctx context.Context, url string) ([]string, error) {
	doc, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	content := findNode(doc, elementWithClass("div", "page__content"))
	if content == nil {
		return nil, eris.Errorf("scrape: no content area at %s", url)
	}
	var cells []string
	for _, td := range findAll(content, element("td")) {
		cells = append(cells, nodeText(td))
	}
	return cells, nil
}

func extractJudgeNames(cells []string, list registryList) []string {
	var names []string
	for i, cell := range cells {
		if i%list.stride != list.offset {
			continue
		}
		name := strings.TrimSpace(cell)
		if name == "" || name == list.header {
			continue
		}
		if list.alphaStart && !startsWithLetter(name) {
			continue
		}
		if list.trimTail && !endsWithLetter(name) {
			name = strings.TrimSpace(name[:len(name)-1])
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func startsWithLetter(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r)
	}
	return false
}

func endsWithLetter(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsLetter(r[len(r)-1])
}
