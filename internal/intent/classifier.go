// Package intent turns free text into a classification, a topic phrase and a
// keyword list. Everything here is a pure function of the input text and the
// knowledge tables.
package intent

import (
	"strings"

	"github.com/kalambet/agentskel/internal/knowledge"
)

// Classification is the result of scoring a request against the category and
// domain tables.
type Classification struct {
	Category      string `json:"category"`
	MatchedDomain string `json:"matched_domain,omitempty"`
	Score         int    `json:"score"`
	CategoryScore int    `json:"category_score"`
	DomainScore   int    `json:"domain_score"`
	Complex       bool   `json:"complex"`
	// Overridden is set when the matched domain's preferred category
	// replaced the keyword winner.
	Overridden bool `json:"overridden"`
}

type scoredSet struct {
	name    string
	phrases []phrase
}

// Classifier scores text against pre-tokenized category and domain patterns.
// It is safe for concurrent use.
type Classifier struct {
	fallback   string
	categories []scoredSet
	domains    []scoredSet
	preferred  map[string]string
	complex    []phrase
	minWords   int
}

// NewClassifier compiles the patterns in t.
func NewClassifier(t *knowledge.Tables) *Classifier {
	c := &Classifier{
		fallback:  t.Fallback.Name,
		preferred: make(map[string]string, len(t.Domains)),
		complex:   compile(t.ComplexIndicators),
		minWords:  t.ComplexMinWords,
	}
	for _, cat := range t.Categories {
		c.categories = append(c.categories, scoredSet{name: cat.Name, phrases: compile(cat.Patterns)})
	}
	for _, d := range t.Domains {
		c.domains = append(c.domains, scoredSet{name: d.Name, phrases: compile(d.Keywords)})
		c.preferred[d.Name] = d.PreferredCategory
	}
	return c
}

// Classify picks the highest-scoring category, ties going to the category
// declared first, and the fallback when nothing scores. A second pass picks
// the top domain; when its score beats the category score, the domain's
// preferred category wins instead.
func (c *Classifier) Classify(text string) Classification {
	tokens := tokenize(text)

	result := Classification{Category: c.fallback}
	if name, s := best(tokens, c.categories); s > 0 {
		result.Category = name
		result.CategoryScore = s
	}

	if name, s := best(tokens, c.domains); s > 0 {
		result.MatchedDomain = name
		result.DomainScore = s
		if s > result.CategoryScore {
			result.Category = c.preferred[name]
			result.Overridden = true
		}
	}

	result.Score = max(result.CategoryScore, result.DomainScore)
	result.Complex = c.isComplex(text, tokens)
	return result
}

func (c *Classifier) isComplex(text string, tokens []string) bool {
	if len(strings.Fields(text)) <= c.minWords {
		return false
	}
	for _, p := range c.complex {
		if p.in(tokens) {
			return true
		}
	}
	return false
}

// best returns the first set with the strictly highest score.
func best(tokens []string, sets []scoredSet) (string, int) {
	var (
		name string
		top  int
	)
	for _, s := range sets {
		if n := score(tokens, s.phrases); n > top {
			name, top = s.name, n
		}
	}
	return name, top
}
