package threecrumbs

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

// Question is one round's answer and its three clues, hardest first.
type Question struct {
	Answer           string   `yaml:"answer" json:"answer"`
	AlternateAnswers []string `yaml:"alternate_answers" json:"alternate_answers"`
	Clues            []string `yaml:"clues" json:"clues"`
}

// Bank maps a category to its question pool.
type Bank map[string][]Question

// LoadBank parses a YAML question bank and checks every entry.
func LoadBank(data []byte) (Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for category, pool := range b {
		if len(pool) == 0 {
			return nil, fmt.Errorf("category %q has no questions", category)
		}
		for i, q := range pool {
			if q.Answer == "" {
				return nil, fmt.Errorf("category %q question %d has no answer", category, i)
			}
			if len(q.Clues) != clueCount {
				return nil, fmt.Errorf("category %q question %q needs %d clues, has %d", category, q.Answer, clueCount, len(q.Clues))
			}
		}
	}
	if _, ok := b[defaultCategory]; !ok {
		return nil, fmt.Errorf("question bank is missing the %q category", defaultCategory)
	}
	return b, nil
}

// DefaultBank returns the embedded question bank.
var DefaultBank = sync.OnceValues(func() (Bank, error) {
	return LoadBank(questionsYAML)
})

// Pool returns a copy of category's questions, falling back to the default
// category when it is unknown.
func (b Bank) Pool(category string) []Question {
	pool, ok := b[category]
	if !ok {
		pool = b[defaultCategory]
	}
	return append([]Question(nil), pool...)
}

func (b Bank) Categories() []string {
	out := make([]string, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
