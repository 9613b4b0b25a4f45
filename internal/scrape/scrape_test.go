package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinfanS/court-transcripts-pipeline/internal/config"
)

const listingPage = `<html><body>
<ul class="judgment-listing__list">
  <li>
    <span class="judgment-listing__title"><a href="/ewca/crim/2024/1">R v Doe</a></span>
    <span class="judgment-listing__court">Court of Appeal Criminal Division</span>
    <span class="judgment-listing__neutralcitation">[2024] EWCA Crim 1</span>
    <time class="judgment-listing__date" datetime="2024-04-07">7 Apr 2024</time>
  </li>
  <li>
    <span class="judgment-listing__title"><a href="/ewhc/kb/2024/2">Smith v Jones</a></span>
    <span class="judgment-listing__court">King's Bench Division</span>
    <span class="judgment-listing__neutralcitation">[2024] EWHC 2 (KB)</span>
    <time class="judgment-listing__date" datetime="2024-04-06">6 Apr 2024</time>
  </li>
  <li>
    <span class="judgment-listing__title"><a href="/ewhc/ch/2024/3">Incomplete</a></span>
    <span class="judgment-listing__neutralcitation">[2024] EWHC 3 (Ch)</span>
  </li>
</ul>
<nav aria-label="Results pagination">
  <a class="pagination__page-link" href="?page=1">Page 1</a>
  <a class="pagination__page-link" href="?page=2">Page 2</a>
  <a class="pagination__page-link" href="?page=7">Page 7</a>
  <a class="pagination__page-link" href="?page=2">Next</a>
</nav>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.ScrapeConfig{BaseURL: srv.URL, PerPage: 10, TimeoutSecs: 5})
	return c, srv
}

func judgmentHandler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/judgments/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><article><p>Transcript for %s.</p></article></body></html>`, r.URL.Path)
	})
	return mux
}

func TestListing(t *testing.T) {
	c, srv := newTestClient(t, judgmentHandler(t))

	cases, err := c.Listing(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "R v Doe", cases[0].Title)
	assert.Equal(t, srv.URL+"/ewca/crim/2024/1", cases[0].URL)
	assert.Equal(t, "Court of Appeal Criminal Division", cases[0].Court)
	assert.Equal(t, "[2024] EWCA Crim 1", cases[0].Citation)
	assert.Equal(t, "2024-04-07", cases[0].Date)
	assert.Contains(t, cases[0].RawText, "Transcript for /ewca/crim/2024/1")

	assert.Equal(t, "[2024] EWHC 2 (KB)", cases[1].Citation)
}

func TestListingSkipsAlreadyLoaded(t *testing.T) {
	c, _ := newTestClient(t, judgmentHandler(t))

	loaded := map[string]struct{}{"[2024] EWCA Crim 1": {}}
	cases, err := c.Listing(context.Background(), 1, nil, loaded)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "[2024] EWHC 2 (KB)", cases[0].Citation)
}

func TestListingNoResults(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>No results</p></body></html>`)
	}))

	cases, err := c.Listing(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestMaxPage(t *testing.T) {
	c, _ := newTestClient(t, judgmentHandler(t))

	max, err := c.MaxPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, max)
}

func TestMaxPageNoPagination(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))

	max, err := c.MaxPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, max)
}

func TestMaxPageEmptyNav(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><nav aria-label="Results pagination"></nav></body></html>`)
	}))

	max, err := c.MaxPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, max)
}

func TestArticleTextMissingArticle(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>not a judgment</p></body></html>`)
	}))

	_, err := c.ArticleText(context.Background(), "/ewhc/kb/2024/9")
	require.Error(t, err)
}

func TestGetNonOKStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := c.MaxPage(context.Background(), nil)
	require.Error(t, err)
}

func TestSearchURLFromDate(t *testing.T) {
	c := NewClient(config.ScrapeConfig{BaseURL: "https://caselaw.example", PerPage: 50})

	from := time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)
	url := c.searchURL(2, &from)
	assert.Contains(t, url, "from_date_0=12")
	assert.Contains(t, url, "from_date_1=8")
	assert.Contains(t, url, "from_date_2=2024")
	assert.Contains(t, url, "page=2")

	assert.NotContains(t, c.searchURL(1, nil), "from_date_0")
}

const registryTwoCol = `<html><body><div class="page__content [ flow ]"><table><tbody>
<tr><td>Name</td><td>Division</td></tr>
<tr><td>Master Cook</td><td>King's Bench</td></tr>
<tr><td>Master Eastman</td><td>King's Bench</td></tr>
</tbody></table></div></body></html>`

const registryThreeCol = `<html><body><div class="page__content [ flow ]"><table><tbody>
<tr><td>Judge</td><td>Circuit</td><td>Appointed</td></tr>
<tr><td>Judge Baker*</td><td>South Eastern</td><td>2019</td></tr>
<tr><td>Judge Carr</td><td>Midland</td><td>2021</td></tr>
</tbody></table></div></body></html>`

func TestJudgeNames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/registry/hc-masters-list/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, registryTwoCol)
	})
	mux.HandleFunc("/registry/circuit-judge-list/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, registryThreeCol)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	c, srv := newTestClient(t, mux)
	c.registry = srv.URL + "/registry/"

	names, err := c.JudgeNames(context.Background())
	require.NoError(t, err)

	assert.Contains(t, names, "Master Cook")
	assert.Contains(t, names, "Master Eastman")
	// The footnote marker on three-column lists is trimmed.
	assert.Contains(t, names, "Judge Baker")
	assert.Contains(t, names, "Judge Carr")
	assert.NotContains(t, names, "Name")
	assert.NotContains(t, names, "Judge")
	assert.NotContains(t, names, "King's Bench")
}

func TestJudgeNamesAllListsFail(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	c.registry = srv.URL + "/registry/"

	_, err := c.JudgeNames(context.Background())
	require.Error(t, err)
}

func TestExtractJudgeNamesStride(t *testing.T) {
	cells := []string{"Judge", "Area", "Year", "Judge Adams", "North", "2020", "Judge Brown1", "South", "2021"}
	names := extractJudgeNames(cells, registryList{stride: 3, offset: 0, header: "Judge", trimTail: true})
	assert.Equal(t, []string{"Judge Adams", "Judge Brown"}, names)
}
