package store

import (
	"context"

	"github.com/rotisserie/eris"
)

const pgSearchCases = `
SELECT cc.court_case_id, cc.title, c.court_name, cc.court_date, cc.case_number,
       cc.case_url, v.verdict, cc.verdict_summary, cc.summary
FROM court_case cc
JOIN court c ON c.court_id = cc.court_id
JOIN verdict v ON v.verdict_id = cc.verdict_id
WHERE ($1 = '' OR cc.title ILIKE '%' || $1 || '%')
  AND ($2 = '' OR c.court_name ILIKE '%' || $2 || '%')
  AND ($3 = '' OR v.verdict ILIKE '%' || $3 || '%')
  AND ($4 = '' OR EXISTS (
		SELECT 1 FROM judge_assignment ja
		JOIN judge j ON j.judge_id = ja.judge_id
		WHERE ja.court_case_id = cc.court_case_id
		  AND j.judge_name ILIKE '%' || $4 || '%'))
  AND ($5 = '' OR EXISTS (
		SELECT 1 FROM tag_assignment ta
		JOIN tag t ON t.tag_id = ta.tag_id
		WHERE ta.court_case_id = cc.court_case_id
		  AND t.tag_name ILIKE '%' || $5 || '%'))
ORDER BY cc.court_date DESC NULLS LAST, cc.court_case_id
LIMIT $6 OFFSET $7`

func (s *PostgresStore) SearchCases(ctx context.Context, filter CaseFilter) ([]CaseSummary, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, pgSearchCases,
		filter.Title, filter.Court, filter.Verdict, filter.Judge, filter.Tag,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search cases")
	}
	defer rows.Close()

	var cases []CaseSummary
	var citations []string
	for rows.Next() {
		var c CaseSummary
		if err := rows.Scan(&c.Citation, &c.Title, &c.Court, &c.Date, &c.CaseNumber,
			&c.URL, &c.Verdict, &c.VerdictSummary, &c.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan case")
		}
		cases = append(cases, c)
		citations = append(citations, c.Citation)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: read cases")
	}
	if len(cases) == 0 {
		return nil, nil
	}

	judges, err := s.namesByCitation(ctx,
		`SELECT ja.court_case_id, j.judge_name
		 FROM judge_assignment ja JOIN judge j ON j.judge_id = ja.judge_id
		 WHERE ja.court_case_id = ANY($1) ORDER BY j.judge_name`, citations)
	if err != nil {
		return nil, err
	}
	tags, err := s.namesByCitation(ctx,
		`SELECT ta.court_case_id, t.tag_name
		 FROM tag_assignment ta JOIN tag t ON t.tag_id = ta.tag_id
		 WHERE ta.court_case_id = ANY($1) ORDER BY t.tag_name`, citations)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		cases[i].Judges = judges[cases[i].Citation]
		cases[i].Tags = tags[cases[i].Citation]
	}
	return cases, nil
}

func (s *PostgresStore) namesByCitation(ctx context.Context, sql string, citations []string) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, sql, citations)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query case names")
	}
	defer rows.Close()

	m := make(map[string][]string)
	for rows.Next() {
		var citation, name string
		if err := rows.Scan(&citation, &name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan case name")
		}
		m[citation] = append(m[citation], name)
	}
	return m, eris.Wrap(rows.Err(), "postgres: read case names")
}

func (s *PostgresStore) namedCounts(ctx context.Context, sql, what, search string, limit int) ([]NamedCount, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, sql, search, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s counts", what)
	}
	defer rows.Close()

	var out []NamedCount
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Cases); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s count", what)
		}
		out = append(out, nc)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: read %s counts", what)
}

func (s *PostgresStore) CourtCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT c.court_name, COUNT(cc.court_case_id)
		FROM court c LEFT JOIN court_case cc ON cc.court_id = c.court_id
		WHERE ($1 = '' OR c.court_name ILIKE '%' || $1 || '%')
		GROUP BY c.court_name ORDER BY 2 DESC, 1 LIMIT $2`, "court", search, limit)
}

func (s *PostgresStore) JudgeCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT j.judge_name, COUNT(ja.court_case_id)
		FROM judge j LEFT JOIN judge_assignment ja ON ja.judge_id = j.judge_id
		WHERE ($1 = '' OR j.judge_name ILIKE '%' || $1 || '%')
		GROUP BY j.judge_name ORDER BY 2 DESC, 1 LIMIT $2`, "judge", search, limit)
}

func (s *PostgresStore) TagCounts(ctx context.Context, search string, limit int) ([]NamedCount, error) {
	return s.namedCounts(ctx, `
		SELECT t.tag_name, COUNT(ta.court_case_id)
		FROM tag t LEFT JOIN tag_assignment ta ON ta.tag_id = t.tag_id
		WHERE ($1 = '' OR t.tag_name ILIKE '%' || $1 || '%')
		GROUP BY t.tag_name ORDER BY 2 DESC, 1 LIMIT $2`, "tag", search, limit)
}
