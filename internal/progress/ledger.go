// Package progress tracks which citations the live pipeline has already
// ingested, scoped to a start date. The ledger is a single small JSON
// document mapping one date to the citations loaded since that date; when
// the date falls behind, the list resets because the date-scoped search no
// longer returns the old entries.
package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the wire format of the ledger date.
const DateLayout = "02-01-2006"

// Ledger persists the (start date, citations) pair between live runs.
type Ledger interface {
	// Read returns the current start date and the citations loaded since.
	// A missing ledger initializes to (today, empty).
	Read(ctx context.Context) (time.Time, []string, error)
	// Write replaces the ledger contents.
	Write(ctx context.Context, date time.Time, citations []string) error
}

// Advance applies the daily rollover: once the stored date is behind today,
// the next run scopes its search from today and starts a fresh citation
// list.
func Advance(date time.Time, citations []string, today time.Time) (time.Time, []string) {
	if truncate(date).Before(truncate(today)) {
		return truncate(today), nil
	}
	return truncate(date), citations
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// document is the serialized ledger shape: one date key, its citation list.
type document map[string][]string

func encode(date time.Time, citations []string) ([]byte, error) {
	if citations == nil {
		citations = []string{}
	}
	raw, err := json.Marshal(document{date.Format(DateLayout): citations})
	if err != nil {
		return nil, eris.Wrap(err, "progress: encode ledger")
	}
	return raw, nil
}

func decode(raw []byte) (time.Time, []string, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return time.Time{}, nil, eris.Wrap(err, "progress: decode ledger")
	}
	for k, v := range doc {
		date, err := time.Parse(DateLayout, k)
		if err != nil {
			return time.Time{}, nil, eris.Wrapf(err, "progress: bad ledger date %q", k)
		}
		return date, v, nil
	}
	return time.Time{}, nil, eris.New("progress: empty ledger document")
}
