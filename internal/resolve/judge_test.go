package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardizeJudgeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"THE HONOURABLE MR JUSTICE JACOB", "Jacob"},
		{"Judge James CBE", "James"},
		{"Lord Justice Pill", "Pill"},
		{"Deputy Senior District Judge (Chief Magistrate) Tanweer Ikram CBE DL", "Tanweer Ikram"},
		{"Rabinder Singh", "Rabinder Singh"},
		{"Her Honour Judge Smith", "Smith"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StandardizeJudgeName(tt.raw), "raw=%q", tt.raw)
	}
}

func TestStandardizeJudgeNameNeverEmpty(t *testing.T) {
	// A name made entirely of titles falls back to the trimmed input.
	assert.Equal(t, "Judge", StandardizeJudgeName(" Judge "))
}

func TestResolveFuzzyMatch(t *testing.T) {
	r := NewJudgeResolver(95)

	// "Judge Bond" token-set matches the canonical "Bond" at full score,
	// so no standardization is applied.
	assert.Equal(t, "Bond", r.Resolve("Judge Bond", []string{"Bond", "Terrence"}))

	// Empty registry forces the fallback.
	assert.Equal(t, "Jacob", r.Resolve("THE HONOURABLE MR JUSTICE JACOB", nil))

	// No candidate clears the cutoff: standardize instead.
	assert.Equal(t, "John", r.Resolve("Judge John", []string{"James", "Terrence"}))
}

func TestMatchCutoff(t *testing.T) {
	r := NewJudgeResolver(95)

	match, ok := r.Match("Justice James", []string{"James", "Terrence"})
	assert.True(t, ok)
	assert.Equal(t, "James", match)

	_, ok = r.Match("Wilkinson", []string{"James", "Terrence"})
	assert.False(t, ok)
}
