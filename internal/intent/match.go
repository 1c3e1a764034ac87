package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minPrefixLen is the shortest pattern word allowed to match as a token
// prefix. Shorter words ("ar", "ui", "ai") must match a whole token.
const minPrefixLen = 4

// tokenize lower-cases s and splits it on anything that is not a letter or
// digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// phrase is a tokenized keyword pattern.
type phrase []string

func compile(patterns []string) []phrase {
	out := make([]phrase, 0, len(patterns))
	for _, p := range patterns {
		if toks := tokenize(p); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

// in reports whether the phrase occurs as a consecutive run in tokens.
func (p phrase) in(tokens []string) bool {
	for i := 0; i+len(p) <= len(tokens); i++ {
		matched := true
		for j, w := range p {
			if !wordMatch(w, tokens[i+j]) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func wordMatch(pat, tok string) bool {
	if pat == tok {
		return true
	}
	return utf8.RuneCountInString(pat) >= minPrefixLen && strings.HasPrefix(tok, pat)
}

// score counts the distinct phrases present in tokens.
func score(tokens []string, phrases []phrase) int {
	n := 0
	for _, p := range phrases {
		if p.in(tokens) {
			n++
		}
	}
	return n
}

// KeywordSet is a named list of keyword phrases.
type KeywordSet struct {
	Name     string
	Keywords []string
}

// Tagger finds the first keyword set, in declaration order, that has a phrase
// present in a piece of text. Phrases match the same way classification
// patterns do.
type Tagger struct {
	sets []scoredSet
}

// NewTagger compiles sets for repeated Tag calls.
func NewTagger(sets []KeywordSet) *Tagger {
	t := &Tagger{sets: make([]scoredSet, 0, len(sets))}
	for _, s := range sets {
		t.sets = append(t.sets, scoredSet{name: s.Name, phrases: compile(s.Keywords)})
	}
	return t
}

// Tag returns the name of the first matching set.
func (t *Tagger) Tag(text string) (string, bool) {
	tokens := tokenize(text)
	for _, s := range t.sets {
		if score(tokens, s.phrases) > 0 {
			return s.name, true
		}
	}
	return "", false
}
