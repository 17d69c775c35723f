package classify

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed phrases.json
var phrasesJSON []byte

// Phrases holds the substrings that mark a block as closing-clause material.
// Signals are the primary list; Fragments catch partial matches. Both are
// matched case-insensitively and a hit in either excludes the block from the
// body.
type Phrases struct {
	Signals   []string `json:"signals" yaml:"signals" mapstructure:"signals"`
	Fragments []string `json:"fragments" yaml:"fragments" mapstructure:"fragments"`
}

// DefaultPhrases returns the built-in phrase lists.
func DefaultPhrases() Phrases {
	p, err := ParsePhrases(phrasesJSON)
	if err != nil {
		panic(fmt.Sprintf("classify: embedded phrases.json: %v", err))
	}
	return p
}

// ParsePhrases decodes a phrase list document in the phrases.json shape.
func ParsePhrases(data []byte) (Phrases, error) {
	var p Phrases
	if err := json.Unmarshal(data, &p); err != nil {
		return Phrases{}, fmt.Errorf("failed to parse phrases: %w", err)
	}
	if len(p.Signals) == 0 {
		return Phrases{}, fmt.Errorf("phrase list has no signals")
	}
	return p, nil
}

// Merge returns p with any non-empty list in override replacing its
// counterpart.
func (p Phrases) Merge(override Phrases) Phrases {
	out := p
	if len(override.Signals) > 0 {
		out.Signals = override.Signals
	}
	if len(override.Fragments) > 0 {
		out.Fragments = override.Fragments
	}
	return out
}

// union lowercases and de-duplicates both lists, signals first.
func (p Phrases) union() []string {
	seen := make(map[string]bool, len(p.Signals)+len(p.Fragments))
	out := make([]string, 0, len(p.Signals)+len(p.Fragments))
	for _, list := range [][]string{p.Signals, p.Fragments} {
		for _, phrase := range list {
			phrase = strings.ToLower(strings.TrimSpace(phrase))
			if phrase == "" || seen[phrase] {
				continue
			}
			seen[phrase] = true
			out = append(out, phrase)
		}
	}
	return out
}
