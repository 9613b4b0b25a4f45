package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceVerdict(t *testing.T) {
	assert.Equal(t, VerdictDismissed, CoerceVerdict("Dismissed"))
	assert.Equal(t, VerdictOther, CoerceVerdict("Remanded"))
	assert.Equal(t, VerdictOther, CoerceVerdict(""))
	assert.Equal(t, VerdictOther, CoerceVerdict("guilty")) // case-sensitive enumeration
	assert.Equal(t, VerdictAppealAllowed, CoerceVerdict("Appeal Allowed"))
}

func TestEnrichmentValidate(t *testing.T) {
	valid := func() *Enrichment {
		return &Enrichment{
			Verdict:        "Dismissed",
			Summary:        "a case",
			CaseNumber:     "CO/10442/2007",
			VerdictSummary: "claim dismissed",
			Judges:         []string{"Rabinder Singh"},
			Tags:           []string{"judicial review"},
			FirstSide:      RawSide{"The Queen": {"Michael Bedford": nil}},
			SecondSide:     RawSide{"F H Gilman & Co": nil},
		}
	}

	require.NoError(t, valid().Validate())

	e := valid()
	e.Verdict = "  "
	assert.Error(t, e.Validate())

	e = valid()
	e.Judges = nil
	assert.Error(t, e.Validate())

	e = valid()
	e.Tags = []string{}
	assert.Error(t, e.Validate())

	e = valid()
	e.SecondSide = nil
	assert.Error(t, e.Validate())
}

func TestEnrichmentDecodeRejectsWrongShape(t *testing.T) {
	// judge must be a list, not a scalar
	var e Enrichment
	err := json.Unmarshal([]byte(`{"judge": "Bond"}`), &e)
	assert.Error(t, err)

	// side values must be participant -> lawyer -> firm mappings
	err = json.Unmarshal([]byte(`{"first_side": {"The Queen": ["not", "a", "map"]}}`), &e)
	assert.Error(t, err)

	// null lawyer map and null firm are tolerated shapes
	err = json.Unmarshal([]byte(`{"first_side": {"The Queen": null, "Crown": {"J Smith": null}}}`), &e)
	require.NoError(t, err)
	assert.Nil(t, e.FirstSide["The Queen"])
	assert.Contains(t, e.FirstSide["Crown"], "J Smith")
}

func TestSidesFromRaw(t *testing.T) {
	firm := "Matthew Arnold Baldwin"
	first := RawSide{
		"The Queen": {"Michael Bedford": &firm},
	}
	second := RawSide{
		"F H Gilman & Co": nil,
		"None":            {"ignored": nil},
	}

	sides := SidesFromRaw(first, second)
	require.Len(t, sides, 2)

	assert.Equal(t, "The Queen", sides[0].Participant)
	assert.Equal(t, "Michael Bedford", sides[0].Lawyer)
	require.NotNil(t, sides[0].LawFirm)
	assert.Equal(t, firm, *sides[0].LawFirm)
	assert.False(t, sides[0].IsDefendant)

	assert.Equal(t, "F H Gilman & Co", sides[1].Participant)
	assert.Empty(t, sides[1].Lawyer)
	assert.Nil(t, sides[1].LawFirm)
	assert.True(t, sides[1].IsDefendant)
}

func TestParseCaseDate(t *testing.T) {
	d, err := ParseCaseDate("7 Apr 2009, midnight")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2009, 4, 7, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseCaseDate("2009-04-07")
	require.NoError(t, err)
	require.NotNil(t, d)

	d, err = ParseCaseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseCaseDate("not a date")
	assert.Error(t, err)
}
