package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ExtractKeywords returns up to n distinct lower-case words from text, in
// order of first appearance, skipping stopwords and words of two runes or
// fewer. n <= 0 means no limit.
func ExtractKeywords(text string, stopwords []string, n int) []string {
	stop := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stop[w] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, ok := stop[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
