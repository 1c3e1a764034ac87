package knowledge

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesLoad(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"data-science", "analyze", "design", "write", "develop", "general"}, tables.CategoryNames())
	assert.Equal(t, "general", tables.Fallback.Name)
	assert.NotEmpty(t, tables.Persona)
	assert.NotEmpty(t, tables.Restrictions)
	assert.NotEmpty(t, tables.PlannerPrompt)
	assert.Equal(t, 15, tables.ComplexMinWords)

	for _, c := range append([]Category{tables.Fallback}, tables.Categories...) {
		assert.GreaterOrEqual(t, len(c.Plan), 5, "category %s plan", c.Name)
		assert.LessOrEqual(t, len(c.Plan), 7, "category %s plan", c.Name)
	}

	d, ok := tables.Domain("mortgage")
	require.True(t, ok)
	assert.Equal(t, "write", d.PreferredCategory)

	_, ok = tables.Domain("astrology")
	assert.False(t, ok)
}

func TestDefaultIsShared(t *testing.T) {
	a := MustDefault()
	b := MustDefault()
	assert.Same(t, a, b)
}

func TestCategoryLookup(t *testing.T) {
	tables := MustDefault()

	c, ok := tables.Category("design")
	assert.True(t, ok)
	assert.Equal(t, "design", c.Name)

	c, ok = tables.Category("general")
	assert.True(t, ok)
	assert.Equal(t, "general", c.Name)

	c, ok = tables.Category("poetry")
	assert.False(t, ok)
	assert.Equal(t, "general", c.Name)
}

func TestSkillFallsBackToBeginner(t *testing.T) {
	tables := MustDefault()

	assert.InDelta(t, 0.3, tables.Skill(Expert).Temperature, 1e-9)
	assert.Equal(t, 550, tables.Skill(Ambassador).MaxTokens)
	assert.Equal(t, tables.Skill(Beginner), tables.Skill(Expertise("wizard")))
}

func TestParseExpertise(t *testing.T) {
	tests := []struct {
		in   string
		want Expertise
	}{
		{"", Beginner},
		{"BEGINNER", Beginner},
		{" Intermediate ", Intermediate},
		{"expert", Expert},
		{"BANK_AMBASSADOR_TRAINEE", Ambassador},
		{"ambassador", Ambassador},
		{"guru", Beginner},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseExpertise(tt.in), "ParseExpertise(%q)", tt.in)
	}
}

// embeddedCopy returns a writable map FS seeded from the embedded tables.
func embeddedCopy(t *testing.T) fstest.MapFS {
	t.Helper()
	m := fstest.MapFS{}
	for _, name := range []string{"categories.yaml", "domains.yaml", "profiles.yaml", "prompts.yaml", "rag.yaml"} {
		data, err := fs.ReadFile(embedded, "tables/"+name)
		require.NoError(t, err)
		m[name] = &fstest.MapFile{Data: data}
	}
	return m
}

func TestLoadFromFS(t *testing.T) {
	tables, err := Load(embeddedCopy(t))
	require.NoError(t, err)
	assert.Len(t, tables.Categories, 5)
	assert.NotEmpty(t, tables.Topics)
}

func TestLoadMissingFile(t *testing.T) {
	m := embeddedCopy(t)
	delete(m, "rag.yaml")

	_, err := Load(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag.yaml")
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
		want   string
	}{
		{
			name:   "template without placeholder",
			mutate: func(tb *Tables) { tb.Categories[0].Templates = []string{"no placeholder"} },
			want:   "exactly once",
		},
		{
			name:   "template with two placeholders",
			mutate: func(tb *Tables) { tb.Categories[1].Templates = []string{"{topic} and {topic}"} },
			want:   "exactly once",
		},
		{
			name:   "empty plan",
			mutate: func(tb *Tables) { tb.Categories[2].Plan = nil },
			want:   "has no plan",
		},
		{
			name:   "unknown preferred category",
			mutate: func(tb *Tables) { tb.Domains[0].PreferredCategory = "poetry" },
			want:   "unknown category",
		},
		{
			name:   "duplicate domain",
			mutate: func(tb *Tables) { tb.Domains[1].Name = tb.Domains[0].Name },
			want:   "duplicated",
		},
		{
			name:   "missing beginner skill",
			mutate: func(tb *Tables) { delete(tb.Skills, Beginner) },
			want:   "beginner",
		},
		{
			name: "plan longer than the step cap",
			mutate: func(tb *Tables) {
				tb.Categories[0].Plan = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}
			},
			want: "more than 7",
		},
		{
			name:   "fallback plan too short to pad",
			mutate: func(tb *Tables) { tb.Fallback.Plan = []string{"g1", "g2"} },
			want:   "needs at least 5",
		},
		{
			name:   "fallback plan with repeated steps",
			mutate: func(tb *Tables) { tb.Fallback.Plan = []string{"g1", "g2", "g1", "g2", "g3"} },
			want:   "3 distinct steps",
		},
		{
			name:   "fallback with patterns",
			mutate: func(tb *Tables) { tb.Fallback.Patterns = []string{"anything"} },
			want:   "must not declare patterns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := Load(embeddedCopy(t))
			require.NoError(t, err)

			tt.mutate(tables)
			err = tables.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTable))
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err.Error(), tt.want)
		})
	}
}
