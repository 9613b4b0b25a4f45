// Package model defines the typed records that flow through the ingestion
// pipeline: scraped listings, enrichment output, and fully assembled case
// records ready for loading.
package model

import (
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RawCase is one scraped listing entry, before enrichment. Citation is the
// neutral citation string and acts as the natural key everywhere downstream:
// the enrichment cache, the progress ledger, and the court_case table.
type RawCase struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Court    string `json:"court"`
	Citation string `json:"citation"`
	Date     string `json:"date"`
	RawText  string `json:"text_raw,omitempty"`
}

// RawSide is one opposing side as returned by the enrichment model: a
// mapping from participant name to that participant's counsel. A nil counsel
// map means the participant appeared without a lawyer; a nil firm value means
// the lawyer's firm is unknown.
type RawSide map[string]RawCounsel

// RawCounsel maps a lawyer name to a law-firm name (nil = no firm recorded).
type RawCounsel map[string]*string

// Enrichment is the structured record produced by the summarization model
// for a single transcript. Shape violations surface as JSON decode errors;
// content rules are enforced by Validate.
type Enrichment struct {
	Verdict        string   `json:"verdict"`
	Summary        string   `json:"summary"`
	CaseNumber     string   `json:"case_number"`
	VerdictSummary string   `json:"verdict_summary"`
	Judges         []string `json:"judge"`
	Tags           []string `json:"tags"`
	FirstSide      RawSide  `json:"first_side"`
	SecondSide     RawSide  `json:"second_side"`
}

// Validate checks presence and content of every required field. Empty
// strings and empty lists are invalid; null scalars are tolerated only
// inside the opposing-side structures.
func (e *Enrichment) Validate() error {
	for name, v := range map[string]string{
		"verdict":         e.Verdict,
		"summary":         e.Summary,
		"case_number":     e.CaseNumber,
		"verdict_summary": e.VerdictSummary,
	} {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("enrichment: missing or blank %s", name)
		}
	}
	if len(e.Judges) == 0 {
		return eris.New("enrichment: empty judge list")
	}
	if len(e.Tags) == 0 {
		return eris.New("enrichment: empty tag list")
	}
	if e.FirstSide == nil || e.SecondSide == nil {
		return eris.New("enrichment: missing opposing-side structure")
	}
	return nil
}

// Representation is one participant of a case together with their lawyer and
// the lawyer's firm. The positional-parity tuple decoding of the old loader
// is replaced by this explicit shape: Lawyer may be empty (participant
// appeared unrepresented) and LawFirm nil (no firm recorded).
type Representation struct {
	Participant string
	Lawyer      string
	LawFirm     *string
	IsDefendant bool
}

// CaseRecord is one fully assembled case: scraped metadata merged with its
// validated enrichment, ready for entity resolution and loading.
type CaseRecord struct {
	Citation       string
	Title          string
	URL            string
	Court          string
	Date           *time.Time
	CaseNumber     string
	Summary        string
	Verdict        string
	VerdictSummary string
	Judges         []string
	Tags           []string
	Sides          []Representation
}

// Batch is the unit of loading: all cases from one listing page.
type Batch struct {
	Cases []CaseRecord
}

// Citations returns the citation of every case in the batch, in order.
func (b *Batch) Citations() []string {
	out := make([]string, len(b.Cases))
	for i, c := range b.Cases {
		out[i] = c.Citation
	}
	return out
}

// ParseCaseDate converts a listing date string ("07 Apr 2009", sometimes
// suffixed with ", midnight") to a time value. Returns nil for a blank
// string rather than an error, since the listing date is optional.
func ParseCaseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ", midnight", ""))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2 Jan 2006", s)
	if err != nil {
		// Listing <time datetime=...> attributes use ISO dates.
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, eris.Wrapf(err, "model: parse case date %q", s)
		}
	}
	return &t, nil
}

// SidesFromRaw flattens the two opposing-side structures into explicit
// representations, claimant side first. Participants with an unknown (blank)
// name are dropped; a participant with no counsel map is kept with an empty
// lawyer and nil firm.
func SidesFromRaw(first, second RawSide) []Representation {
	out := appendSide(nil, first, false)
	return appendSide(out, second, true)
}

func appendSide(out []Representation, side RawSide, defendant bool) []Representation {
	// Map iteration order is random; sort so repeated runs of the same batch
	// produce the same representation order.
	participants := make([]string, 0, len(side))
	for p := range side {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	for _, participant := range participants {
		counsel := side[participant]
		if strings.TrimSpace(participant) == "" || isNullWord(participant) {
			continue
		}
		if len(counsel) == 0 {
			out = append(out, Representation{Participant: participant, IsDefendant: defendant})
			continue
		}
		lawyers := make([]string, 0, len(counsel))
		for l := range counsel {
			lawyers = append(lawyers, l)
		}
		sort.Strings(lawyers)
		for _, lawyer := range lawyers {
			firm := counsel[lawyer]
			rep := Representation{Participant: participant, IsDefendant: defendant}
			if !isNullWord(lawyer) {
				rep.Lawyer = strings.TrimSpace(lawyer)
			}
			if firm != nil && strings.TrimSpace(*firm) != "" && !isNullWord(*firm) {
				f := strings.TrimSpace(*firm)
				rep.LawFirm = &f
			}
			out = append(out, rep)
		}
	}
	return out
}

// isNullWord reports whether the enrichment model emitted a literal
// null-ish placeholder where it could not find a value.
func isNullWord(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "none", "null", "unknown":
		return true
	}
	return false
}
