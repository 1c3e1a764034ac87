package retrieval

import (
	"reflect"
	"testing"

	"github.com/kalambet/agentskel/internal/knowledge"
)

func testTables() *knowledge.Tables {
	return &knowledge.Tables{
		Stopwords: []string{"the", "about", "tell", "me", "for"},
		Topics: []knowledge.RAGTopic{
			{
				Name:        "home_loans",
				Keywords:    []string{"mortgage", "first time buyer"},
				Context:     "Home loan products.",
				Offers:      []string{"o1", "o2", "o3"},
				Tips:        []string{"t1", "t2", "t3"},
				RelatedDocs: []string{"d1", "d2", "d3"},
			},
			{
				Name:        "savings",
				Keywords:    []string{"isa", "easy access"},
				Context:     "Savings products.",
				Offers:      []string{"s1", "s2", "s3"},
				Tips:        []string{"st1"},
				RelatedDocs: []string{"sd1", "sd2"},
			},
			{
				Name:        "cards",
				Keywords:    []string{"credit card", "balance transfer"},
				Context:     "Card products.",
				Offers:      []string{"c1", "c2"},
				RelatedDocs: []string{"cd1"},
			},
		},
	}
}

func TestRetrieve_SingleTopicKeepsEverything(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	got := r.Retrieve("Tell me about mortgages for first-time buyers.")
	if !got.Found() {
		t.Fatal("expected a match")
	}
	if names := got.TopicNames(); !reflect.DeepEqual(names, []string{"home_loans"}) {
		t.Fatalf("TopicNames = %v, want [home_loans]", names)
	}

	ex := got.Extras()
	if len(ex.Offers) != 1 || len(ex.Offers[0].Items) != 3 {
		t.Errorf("Offers = %+v, want all 3 offers from one topic", ex.Offers)
	}
	if len(ex.Docs) != 1 || len(ex.Docs[0].Items) != 3 {
		t.Errorf("Docs = %+v, want all 3 docs", ex.Docs)
	}
	if ex.Offers[0].Topic != "Home Loans" {
		t.Errorf("group topic = %q, want %q", ex.Offers[0].Topic, "Home Loans")
	}
}

func TestLookup_TwoTopicsCapAtTwo(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	got := r.Lookup([]string{"isa", "mortgage"})
	if names := got.TopicNames(); !reflect.DeepEqual(names, []string{"home_loans", "savings"}) {
		t.Fatalf("TopicNames = %v, want table order", names)
	}

	ex := got.Extras()
	for _, g := range ex.Offers {
		if len(g.Items) != 2 {
			t.Errorf("offers for %s = %v, want 2 items", g.Topic, g.Items)
		}
	}
	if len(ex.Tips) != 2 || len(ex.Tips[1].Items) != 1 {
		t.Errorf("Tips = %+v, want savings to keep its single tip", ex.Tips)
	}
}

func TestLookup_ThreeTopicsCapAtOne(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	got := r.Lookup([]string{"card", "isa", "buyer"})
	if len(got.Topics) != 3 {
		t.Fatalf("matched %d topics, want 3", len(got.Topics))
	}
	ex := got.Extras()
	for _, g := range append(append(ex.Offers, ex.Docs...), ex.Tips...) {
		if len(g.Items) != 1 {
			t.Errorf("group %s = %v, want 1 item", g.Topic, g.Items)
		}
	}
	if len(ex.Tips) != 2 {
		t.Errorf("Tips groups = %d, want 2 (cards has no tips)", len(ex.Tips))
	}
}

func TestLookup_NoMatch(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	got := r.Lookup([]string{"zebra", "giraffe"})
	if got.Found() {
		t.Fatalf("unexpected match: %v", got.TopicNames())
	}
	if chunks := got.Chunks(); len(chunks) != 0 {
		t.Errorf("Chunks = %v, want none", chunks)
	}
	ex := got.Extras()
	if ex.Offers != nil || ex.Docs != nil || ex.Tips != nil {
		t.Errorf("Extras = %+v, want empty", ex)
	}
}

func TestLookup_ShortTopicKeywordNeedsSubstring(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	// "isa" is too short to act as a prefix, so "isabella" must not hit savings.
	if got := r.Lookup([]string{"isabella"}); got.Found() {
		t.Errorf("isabella matched %v", got.TopicNames())
	}
}

func TestChunks(t *testing.T) {
	r := NewRetriever(testTables(), 5)

	chunks := r.Lookup([]string{"mortgage"}).Chunks()
	want := []ContextChunk{{Topic: "Home Loans", Text: "Topic: Home Loans\nContext: Home loan products."}}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("Chunks = %+v, want %+v", chunks, want)
	}
}

func TestRetrieve_DefaultTables(t *testing.T) {
	tables := knowledge.MustDefault()
	r := NewRetriever(tables, 5)

	got := r.Retrieve("Tell me about mortgages for first-time buyers.")
	if names := got.TopicNames(); !reflect.DeepEqual(names, []string{"first_time_buyer_mortgage"}) {
		t.Errorf("TopicNames = %v, want [first_time_buyer_mortgage]", names)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"first_time_buyer_mortgage": "First Time Buyer Mortgage",
		"savings":                   "Savings",
		"":                          "",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}
