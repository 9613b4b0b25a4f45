package enrich

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

var judgeCaser = cases.Title(language.English)

// BuildRecord merges a scraped case with its validated enrichment into the
// loadable record form. Judges are title-cased and tags sentence-cased so the
// resolver and the store see one casing convention regardless of what the
// model emitted.
func BuildRecord(raw model.RawCase, e *model.Enrichment) (model.CaseRecord, error) {
	if err := e.Validate(); err != nil {
		return model.CaseRecord{}, eris.Wrapf(err, "assemble %s", raw.Citation)
	}

	date, err := model.ParseCaseDate(raw.Date)
	if err != nil {
		return model.CaseRecord{}, eris.Wrapf(err, "assemble %s", raw.Citation)
	}

	judges := make([]string, 0, len(e.Judges))
	for _, j := range e.Judges {
		if j = strings.TrimSpace(j); j != "" {
			judges = append(judges, judgeCaser.String(j))
		}
	}

	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, sentenceCase(t))
		}
	}

	return model.CaseRecord{
		Citation:       raw.Citation,
		Title:          raw.Title,
		URL:            raw.URL,
		Court:          raw.Court,
		Date:           date,
		CaseNumber:     e.CaseNumber,
		Summary:        e.Summary,
		Verdict:        e.Verdict,
		VerdictSummary: e.VerdictSummary,
		Judges:         judges,
		Tags:           tags,
		Sides:          model.SidesFromRaw(e.FirstSide, e.SecondSide),
	}, nil
}

// sentenceCase upper-cases the first rune and lower-cases the rest, so
// "Data Protection" and "data protection" collapse to one tag spelling.
func sentenceCase(s string) string {
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
