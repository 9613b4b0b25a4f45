package resolve

import (
	"strings"

	"github.com/xrash/smetrics"
	"go.uber.org/zap"
)

// TagCanonicalizer collapses synonymous and near-duplicate tags across a
// batch before they are persisted, so that e.g. "Somali" and "Somalian" do
// not become two canonical tag rows. Collapsing is batch-global: the chosen
// representative is whichever string already coexists in the batch, even
// when the two tags came from different cases.
type TagCanonicalizer struct {
	thesaurus  Thesaurus
	similarity float64
}

// NewTagCanonicalizer creates a canonicalizer with the given Jaro-Winkler
// rewrite threshold (0.9 matches the production setting).
func NewTagCanonicalizer(th Thesaurus, similarity float64) *TagCanonicalizer {
	return &TagCanonicalizer{thesaurus: th, similarity: similarity}
}

// Canonicalize rewrites near-duplicate tags across the whole batch while
// preserving per-case groupings and arity: the result has exactly the same
// shape as the input, with some strings rewritten. All rewrite decisions are
// computed from a frozen snapshot of the input and applied in one pass, so
// no decision can observe a partially rewritten batch.
func (c *TagCanonicalizer) Canonicalize(perCase [][]string) [][]string {
	var flat []string
	for _, tags := range perCase {
		flat = append(flat, tags...)
	}

	rewrite := c.rewrites(flat)

	out := make([][]string, len(perCase))
	i := 0
	for caseIdx, tags := range perCase {
		group := make([]string, len(tags))
		for j := range tags {
			tag := flat[i]
			if to, ok := rewrite[tag]; ok {
				group[j] = to
			} else {
				group[j] = tag
			}
			i++
		}
		out[caseIdx] = group
	}
	return out
}

// rewrites computes the full old→new tag mapping for one batch: first the
// synonym pass, then the string-similarity pass over the synonym-rewritten
// tag set.
func (c *TagCanonicalizer) rewrites(flat []string) map[string]string {
	distinct, present := distinctTags(flat)

	// Synonym pass: a tag is rewritten to the first of its synonyms that is
	// itself present in the batch (the coexisting string wins).
	synRewrite := make(map[string]string)
	for _, tag := range distinct {
		for _, syn := range c.thesaurus.Synonyms(tag) {
			if rep, ok := present[syn]; ok && !strings.EqualFold(rep, tag) {
				synRewrite[tag] = rep
				zap.L().Debug("tag collapsed by synonym",
					zap.String("from", tag),
					zap.String("to", rep),
				)
				break
			}
		}
	}

	// Similarity pass runs on the synonym-rewritten tag set. Once a tag has
	// been rewritten to a survivor it is removed from the working set, so a
	// pair cannot swap into each other.
	intermediate := make([]string, 0, len(distinct))
	seen := make(map[string]bool)
	for _, tag := range distinct {
		t := tag
		if to, ok := synRewrite[tag]; ok {
			t = to
		}
		if !seen[t] {
			seen[t] = true
			intermediate = append(intermediate, t)
		}
	}

	simRewrite := make(map[string]string)
	removed := make(map[string]bool)
	for _, a := range intermediate {
		if removed[a] {
			continue
		}
		for _, b := range intermediate {
			if a == b || removed[b] {
				continue
			}
			if smetrics.JaroWinkler(a, b, 0.7, 4) > c.similarity {
				simRewrite[a] = b
				removed[a] = true
				zap.L().Debug("tag collapsed by similarity",
					zap.String("from", a),
					zap.String("to", b),
				)
				break
			}
		}
	}

	// Combine: original → synonym representative → similarity survivor.
	combined := make(map[string]string)
	for _, tag := range distinct {
		to := tag
		if s, ok := synRewrite[to]; ok {
			to = s
		}
		if s, ok := simRewrite[to]; ok {
			to = s
		}
		if to != tag {
			combined[tag] = to
		}
	}
	return combined
}

// distinctTags returns the distinct tags of a batch in first-appearance
// order, plus a lowercase→representative lookup for case-insensitive
// membership checks.
func distinctTags(flat []string) ([]string, map[string]string) {
	var distinct []string
	present := make(map[string]string, len(flat))
	for _, tag := range flat {
		key := strings.ToLower(tag)
		if _, ok := present[key]; !ok {
			present[key] = tag
			distinct = append(distinct, tag)
		}
	}
	return distinct, present
}
