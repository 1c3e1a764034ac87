// Package retrieval looks up context topics by keyword overlap against the
// static document table.
package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/agentskel/internal/intent"
	"github.com/kalambet/agentskel/internal/knowledge"
)

// ContextChunk is one matched topic rendered for prompt context.
type ContextChunk struct {
	Topic string // display title
	Text  string
}

// Group is a list of extras that came from one topic.
type Group struct {
	Topic string   `json:"topic"`
	Items []string `json:"items"`
}

// Extras are the offers, tips and documents attached to a retrieval, already
// trimmed by how many topics matched.
type Extras struct {
	Offers []Group
	Tips   []Group
	Docs   []Group
}

// Retrieval is the outcome of one lookup. Topics keep table order.
type Retrieval struct {
	Keywords []string
	Topics   []knowledge.RAGTopic
}

// Found reports whether any topic matched.
func (r Retrieval) Found() bool { return len(r.Topics) > 0 }

// TopicNames returns the matched topic keys.
func (r Retrieval) TopicNames() []string {
	names := make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		names = append(names, t.Name)
	}
	return names
}

// Chunks renders one context chunk per matched topic.
func (r Retrieval) Chunks() []ContextChunk {
	chunks := make([]ContextChunk, 0, len(r.Topics))
	for _, t := range r.Topics {
		chunks = append(chunks, ContextChunk{
			Topic: Title(t.Name),
			Text:  fmt.Sprintf("Topic: %s\nContext: %s", Title(t.Name), t.Context),
		})
	}
	return chunks
}

// Extras selects offers, tips and documents. One matched topic contributes
// everything, two contribute up to two items each, three or more contribute
// one item each.
func (r Retrieval) Extras() Extras {
	limit := perTopicLimit(len(r.Topics))
	var ex Extras
	for _, t := range r.Topics {
		title := Title(t.Name)
		if items := take(t.Offers, limit); len(items) > 0 {
			ex.Offers = append(ex.Offers, Group{Topic: title, Items: items})
		}
		if items := take(t.Tips, limit); len(items) > 0 {
			ex.Tips = append(ex.Tips, Group{Topic: title, Items: items})
		}
		if items := take(t.RelatedDocs, limit); len(items) > 0 {
			ex.Docs = append(ex.Docs, Group{Topic: title, Items: items})
		}
	}
	return ex
}

func perTopicLimit(n int) int {
	switch {
	case n <= 1:
		return -1
	case n == 2:
		return 2
	default:
		return 1
	}
}

func take(items []string, limit int) []string {
	if limit < 0 || limit >= len(items) {
		return append([]string(nil), items...)
	}
	return append([]string(nil), items[:limit]...)
}

// Retriever matches extracted keywords against topic keywords.
type Retriever struct {
	topics      []knowledge.RAGTopic
	stopwords   []string
	numKeywords int
}

// NewRetriever creates a Retriever over the tables' topic list. numKeywords
// caps how many keywords Retrieve extracts from a request.
func NewRetriever(t *knowledge.Tables, numKeywords int) *Retriever {
	return &Retriever{topics: t.Topics, stopwords: t.Stopwords, numKeywords: numKeywords}
}

// Retrieve extracts keywords from text and looks them up.
func (r *Retriever) Retrieve(text string) Retrieval {
	return r.Lookup(intent.ExtractKeywords(text, r.stopwords, r.numKeywords))
}

// Lookup returns every topic, in table order, that any keyword hits. A
// keyword hits a topic when it is a substring of one of the topic's keywords,
// or when a single-word topic keyword of four or more runes is its prefix
// ("mortgages" hits "mortgage").
func (r *Retriever) Lookup(keywords []string) Retrieval {
	res := Retrieval{Keywords: keywords}
	for _, t := range r.topics {
		if topicMatches(t, keywords) {
			res.Topics = append(res.Topics, t)
		}
	}
	return res
}

func topicMatches(t knowledge.RAGTopic, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		for _, tk := range t.Keywords {
			tk = strings.ToLower(tk)
			if strings.Contains(tk, kw) {
				return true
			}
			if !strings.Contains(tk, " ") && utf8.RuneCountInString(tk) >= 4 && strings.HasPrefix(kw, tk) {
				return true
			}
		}
	}
	return false
}

// Title turns a topic key like "first_time_buyer_mortgage" into
// "First Time Buyer Mortgage".
func Title(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
