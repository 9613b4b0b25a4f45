package resolve

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Thesaurus supplies lexical synonyms for tag collapsing.
type Thesaurus interface {
	// Synonyms returns the synonyms of a word, excluding the word itself.
	// An unknown word returns nil.
	Synonyms(word string) []string
}

//go:embed thesaurus.yaml
var thesaurusYAML []byte

type thesaurusFile struct {
	Synonyms [][]string `yaml:"synonyms"`
}

// StaticThesaurus is a Thesaurus backed by the embedded synonym sets.
type StaticThesaurus struct {
	sets map[string][]string
}

// LoadThesaurus parses the embedded synonym table.
func LoadThesaurus() (*StaticThesaurus, error) {
	var f thesaurusFile
	if err := yaml.Unmarshal(thesaurusYAML, &f); err != nil {
		return nil, eris.Wrap(err, "resolve: parse thesaurus")
	}

	sets := make(map[string][]string)
	for _, set := range f.Synonyms {
		for _, word := range set {
			w := strings.ToLower(word)
			for _, other := range set {
				o := strings.ToLower(other)
				if o != w {
					sets[w] = append(sets[w], o)
				}
			}
		}
	}
	return &StaticThesaurus{sets: sets}, nil
}

// Synonyms returns the synonyms of word, case-insensitively.
func (t *StaticThesaurus) Synonyms(word string) []string {
	return t.sets[strings.ToLower(strings.TrimSpace(word))]
}
