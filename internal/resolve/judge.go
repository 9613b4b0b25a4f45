// Package resolve maps free-text entity names extracted from transcripts
// onto canonical registry entries: fuzzy judge matching with a deterministic
// standardization fallback, and batch-wide tag collapsing.
package resolve

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// judgeTitleWords are honorifics, titles and decorations stripped during
// name standardization. Matching is case-insensitive.
var judgeTitleWords = map[string]bool{
	"the": true, "honourable": true, "honorable": true, "right": true,
	"mr": true, "mrs": true, "ms": true, "miss": true, "mister": true,
	"sir": true, "dame": true, "lord": true, "lady": true,
	"justice": true, "judge": true, "master": true, "recorder": true,
	"his": true, "her": true, "honour": true, "honor": true,
	"deputy": true, "senior": true, "district": true, "tribunal": true,
	"circuit": true, "chief": true, "magistrate": true, "magistrates": true,
	"president": true, "vice-president": true, "lead": true,
	"kc": true, "qc": true, "cbe": true, "obe": true, "mbe": true,
	"dbe": true, "kbe": true, "dl": true, "jp": true, "hhj": true,
	"dcrj": true,
}

var titleCaser = cases.Title(language.English)

// JudgeResolver maps raw extracted judge names to canonical personal names.
type JudgeResolver struct {
	cutoff int
}

// NewJudgeResolver creates a resolver accepting fuzzy matches scoring at
// least cutoff on the 0-100 token-set scale (production uses 95).
func NewJudgeResolver(cutoff int) *JudgeResolver {
	return &JudgeResolver{cutoff: cutoff}
}

// Resolve returns the canonical name for a raw judge name. It first looks
// for the best token-set fuzzy match in the canonical list; if no candidate
// clears the cutoff it falls back to deterministic standardization. The
// result is always a non-empty best-effort name.
func (r *JudgeResolver) Resolve(raw string, canonical []string) string {
	if match, ok := r.Match(raw, canonical); ok {
		return match
	}
	return StandardizeJudgeName(raw)
}

// Match returns the best fuzzy match for raw among the canonical names, and
// whether it cleared the cutoff.
func (r *JudgeResolver) Match(raw string, canonical []string) (string, bool) {
	best, bestScore := "", 0
	for _, name := range canonical {
		if score := fuzzy.TokenSetRatio(raw, name); score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= r.cutoff && best != "" {
		return best, true
	}
	return "", false
}

// StandardizeJudgeName strips titles, honorifics and decorations from a raw
// judge name: tokens on the stop-list and tokens not starting with a letter
// are dropped, the remainder is title-cased and joined with single spaces.
// "THE HONOURABLE MR JUSTICE JACOB" becomes "Jacob". If every token is
// dropped the trimmed input is returned so the result is never empty.
func StandardizeJudgeName(raw string) string {
	var kept []string
	for _, token := range strings.Fields(raw) {
		if judgeTitleWords[strings.ToLower(strings.Trim(token, ".,"))] {
			continue
		}
		runes := []rune(token)
		if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(raw)
	}
	return titleCaser.String(strings.Join(kept, " "))
}
