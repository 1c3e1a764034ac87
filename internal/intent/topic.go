package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kalambet/agentskel/internal/knowledge"
)

// maxTopicRunes bounds the extracted topic.
const maxTopicRunes = 80

// politeness lead-ins are stripped repeatedly before the stop-phrases run.
var politeness = []*regexp.Regexp{
	regexp.MustCompile(`^(?:please|kindly)[,\s]+`),
	regexp.MustCompile(`^(?:can|could|would|will) you(?: please)?\s+`),
	regexp.MustCompile(`^i(?:'d| would)? (?:want|need|like)(?: you)? to\s+`),
	regexp.MustCompile(`^help me(?: to)?\s+`),
}

// stopPhrases are tried in order; the first match is removed.
var stopPhrases = []*regexp.Regexp{
	regexp.MustCompile(`^tell me (?:more )?about\s+`),
	regexp.MustCompile(`^write (?:me )?(?:a |an |the )?(?:short |long |detailed |brief )?(?:blog post|blog|article|essay|report|post|summary|whitepaper|script|guide|overview) (?:about|on)\s+`),
	regexp.MustCompile(`^(?:design|build|develop|create|implement|plan) (?:a|an|the)\s+.*?\s+for\s+`),
	regexp.MustCompile(`^(?:explain|describe|summari[sz]e|outline)\s+`),
	regexp.MustCompile(`^(?:what|who) (?:is|are)\s+`),
	regexp.MustCompile(`^how (?:do|can|should|would) (?:i|we|you)\s+`),
	regexp.MustCompile(`^how to\s+`),
	regexp.MustCompile(`^(?:analy[sz]e|evaluate|assess|research|investigate|compare|review|study)\s+`),
	regexp.MustCompile(`^(?:write|draft|design|build|develop|create|implement|code)\s+`),
}

var leadingArticle = regexp.MustCompile(`^(?:a|an|the|my|our)\s+`)

// ExtractTopic pulls a short noun phrase out of text for template filling.
//
// A leading stop-phrase ("tell me about", "design a ... for") is removed and
// the rest is returned lower-cased. Without one, the longest run of
// capitalized or technical words is used, then the raw text. The result is
// bounded to a few dozen runes and is never empty: blank input gives
// knowledge.PlaceholderTopic.
func ExtractTopic(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return knowledge.PlaceholderTopic
	}

	if topic := stripStopPhrase(strings.ToLower(trimmed)); topic != "" {
		return bound(topic)
	}
	if run := technicalRun(trimmed); run != "" {
		return bound(run)
	}
	if raw := trimPunct(trimmed); raw != "" {
		return bound(raw)
	}
	return bound(trimmed)
}

func stripStopPhrase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for changed := true; changed; {
		changed = false
		for _, re := range politeness {
			if loc := re.FindStringIndex(s); loc != nil {
				s = s[loc[1]:]
				changed = true
			}
		}
	}
	for _, re := range stopPhrases {
		loc := re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		rest := s[loc[1]:]
		rest = leadingArticle.ReplaceAllString(rest, "")
		return trimPunct(rest)
	}
	return ""
}

// technicalRun returns the longest run of words that start with a capital or
// look technical. A run of one word only counts when that word is technical,
// so a capitalized sentence opener alone is ignored.
func technicalRun(s string) string {
	var (
		bestRun []string
		cur     []string
	)
	flush := func() {
		if len(cur) > len(bestRun) && (len(cur) > 1 || isTechnical(cur[0])) {
			bestRun = append([]string(nil), cur...)
		}
		cur = cur[:0]
	}
	for _, w := range strings.Fields(s) {
		w = trimPunct(w)
		if w != "" && (isCapitalized(w) || isTechnical(w)) {
			cur = append(cur, w)
			continue
		}
		if len(cur) > 0 {
			flush()
		}
	}
	if len(cur) > 0 {
		flush()
	}
	return strings.Join(bestRun, " ")
}

func isCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

// isTechnical matches acronyms, camelCase, and words with inner digits.
func isTechnical(w string) bool {
	var upper, digits int
	for _, r := range w {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return upper >= 2 || (digits > 0 && digits < utf8.RuneCountInString(w))
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-' && r != '#' && r != '+')
	})
}

// bound cuts s to maxTopicRunes, preferring a word boundary.
func bound(s string) string {
	if utf8.RuneCountInString(s) <= maxTopicRunes {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxTopicRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
