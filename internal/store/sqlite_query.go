package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const sqliteSearchCases = `
SELECT cc.court_case_id, cc.title, c.court_name, cc.court_date, cc.case_number,
       cc.case_url, v.verdict, cc.verdict_summary, cc.summary
FROM court_case cc
JOIN court c ON c.court_id = cc.court_id
JOIN verdict v ON v.verdict_id = cc.verdict_id
WHERE (? = '' OR lower(cc.title) LIKE '%' || lower(?) || '%')
  AND (? = '' OR lower(c.court_name) LIKE '%' || lower(?) || '%')
  AND (? = '' OR lower(v.verdict) LIKE '%' || lower(?) || '%')
  AND (? = '' OR EXISTS (
		SELECT 1 FROM judge_assignment ja
		JOIN judge j ON j.judge_id = ja.judge_id
		WHERE ja.court_case_id = cc.court_case_id
		  AND lower(j.judge_name) LIKE '%' || lower(?) || '%'))
  AND (? = '' OR EXISTS (
		SELECT 1 FROM tag_assignment ta
		JOIN tag t ON t.tag_id = ta.tag_id
		WHERE ta.court_case_id = cc.court_case_id
		  AND lower(t.tag_name) LIKE '%' || lower(?) || '%'))
ORDER BY cc.court_date DESC, cc.court_case_id
LIMIT ? OFFSET ?`

func (s *SQLiteStore) SearchCases(ctx context.Context, filter CaseFilter) ([]CaseSummary, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, sqliteSearchCases,
		filter.Title, filter.Title,
		filter.Court, filter.Court,
		filter.Verdict, filter.Verdict,
		filter.Judge, filter.Judge,
		filter.Tag, filter.Tag,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search cases")
	}
	defer rows.Close()

	var cases []CaseSummary
	var citations []string
	for rows.Next() {
		var c CaseSummary
		var date sql.NullString
		if err := rows.Scan(&c.Citation, &c.Title, &c.Court, &date, &c.CaseNumber,
			&c.URL, &c.Verdict, &c.VerdictSummary, &c.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan case")
		}
		if date.Valid {
			if t, err := time.Parse("2006-01-02", date.String); err == nil {
				c.Date = &t
			}
		}
		cases = append(cases, c)
		citations = append(citations, c.Citation)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read cases")
	}
	if len(cases) == 0 {
		return nil, nil
	}

	judges, err := s.namesByCitation(ctx,
		`SELECT ja.court_case_id, j.judge_name
		 FROM judge_assignment ja JOIN judge j ON j.judge_id = ja.judge_id
		 WHERE ja.court_case_id IN (%s) ORDER BY j.judge_name`, citations)
	if err != nil {
		return nil, err
	}
	tags, err := s.namesByCitation(ctx,
		`SELECT ta.court_case_id, t.tag_name
		 FROM tag_assignment ta JOIN tag t ON t.tag_id = ta.tag_id
		 WHERE ta.court_case_id IN (%s) ORDER BY t.tag_name`, citations)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		cases[i].Judges = judges[cases[i].Citation]
		cases[i].Tags = tags[cases[i].Citation]
	}
	return cases, nil
}

// namesByCitation runs a two-column query with an IN list of citations. The
// query template carries a %s for the placeholder list.
func (s *SQLiteStore) namesByCitation(ctx context.Context, template string, citations []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(citations)), ", ")
	args := make([]any, len(citations))
	for i, c := range citations {
		args[i] = c
	}

	rows, err := s.db.QueryContext(ctx, strings.Replace(template, "%s", placeholders, 1), args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query case names")
	}
	defer rows.Close()

	m := make(map[string][]string)
	for rows.Next() {
		var citation, name string
		if err := rows.Scan(&citation, &name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan case name")
		}
		m[citation] = append(m[citation], name)
	}
	return m, eris.Wrap(rows.Err(), "sqlite: read case names")
}

func (s *SQLiteStore) namedCounts(ctx context.Context, sqlText, what, search string, limit int) ([]NamedCount, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, sqlText, search, search, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s counts", what)
	}
	defer rows.Close()

	var out []NamedCount
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Cases); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s count", what)
		}
		out = append(out, nc)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: read %s counts", what)
}

func (s *SQLiteStore) CourtCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT c.court_name, COUNT(cc.court_case_id)
		FROM court c LEFT JOIN court_case cc ON cc.court_id = c.court_id
		WHERE (? = '' OR lower(c.court_name) LIKE '%' || lower(?) || '%')
		GROUP BY c.court_name ORDER BY 2 DESC, 1 LIMIT ?`, "court", search, limit)
}

func (s *SQLiteStore) JudgeCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT j.judge_name, COUNT(ja.court_case_id)
		FROM judge j LEFT JOIN judge_assignment ja ON ja.judge_id = j.judge_id
		WHERE (? = '' OR lower(j.judge_name) LIKE '%' || lower(?) || '%')
		GROUP BY j.judge_name ORDER BY 2 DESC, 1 LIMIT ?`, "judge", search, limit)
}

func (s *SQLiteStore) TagCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT t.tag_name, COUNT(ta.court_case_id)
		FROM tag t LEFT JOIN tag_assignment ta ON ta.tag_id = t.tag_id
		WHERE (? = '' OR lower(t.tag_name) LIKE '%' || lower(?) || '%')
		GROUP BY t.tag_name ORDER BY 2 DESC, 1 LIMIT ?`, "tag", search, limit)
}
