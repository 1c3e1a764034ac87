// Package knowledge holds the static tables behind classification and
// generation: categories, domains, user profiles, skill parameters, prompt
// text and the context document table. Tables are parsed once and are
// read-only afterwards, so a *Tables may be shared across goroutines.
package knowledge

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var embedded embed.FS

type Tables struct {
	Categories        []Category
	Fallback          Category
	ComplexIndicators []string
	ComplexMinWords   int
	ComplexSteps      []string
	SubtaskGuidance   []SubtaskGuidance

	Domains []DomainEntry

	Profiles []ProfileEntry
	Skills   map[Expertise]SkillParams

	Persona        string
	Restrictions   []string
	PlannerPrompt  string
	ExecutorPrompt string

	Stopwords []string
	Topics    []RAGTopic
}

type categoriesFile struct {
	Categories        []Category        `yaml:"categories"`
	Fallback          Category          `yaml:"fallback"`
	ComplexIndicators []string          `yaml:"complex_indicators"`
	ComplexMinWords   int               `yaml:"complex_min_words"`
	ComplexSteps      []string          `yaml:"complex_steps"`
	SubtaskGuidance   []SubtaskGuidance `yaml:"subtask_guidance"`
}

type domainsFile struct {
	Domains []DomainEntry `yaml:"domains"`
}

type profilesFile struct {
	Profiles []ProfileEntry         `yaml:"profiles"`
	Skills   map[string]SkillParams `yaml:"skills"`
}

type promptsFile struct {
	Persona      string   `yaml:"persona"`
	Restrictions []string `yaml:"restrictions"`
	Planner      string   `yaml:"planner"`
	Executor     string   `yaml:"executor"`
}

type ragFile struct {
	Stopwords []string   `yaml:"stopwords"`
	Topics    []RAGTopic `yaml:"topics"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the tables compiled into the binary. They are parsed on
// first use.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "tables")
		if err != nil {
			defaultErr = err
			return
		}
		defaultTables, defaultErr = Load(sub)
	})
	return defaultTables, defaultErr
}

// MustDefault is Default for callers that cannot recover from a broken
// embedded table, such as tests and package-level setup.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// LoadDir reads replacement tables from a directory holding the same file
// names as the embedded set. An empty dir returns the embedded tables.
func LoadDir(dir string) (*Tables, error) {
	if dir == "" {
		return Default()
	}
	return Load(os.DirFS(dir))
}

// Load parses categories.yaml, domains.yaml, profiles.yaml, prompts.yaml and
// rag.yaml from fsys and validates the result.
func Load(fsys fs.FS) (*Tables, error) {
	var (
		cf categoriesFile
		df domainsFile
		pf profilesFile
		mf promptsFile
		rf ragFile
	)
	files := []struct {
		name string
		dst  any
	}{
		{"categories.yaml", &cf},
		{"domains.yaml", &df},
		{"profiles.yaml", &pf},
		{"prompts.yaml", &mf},
		{"rag.yaml", &rf},
	}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.name, err)
		}
		if err := yaml.Unmarshal(data, f.dst); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}
	}

	skills := make(map[Expertise]SkillParams, len(pf.Skills))
	for level, p := range pf.Skills {
		skills[Expertise(normalizeLevel(level))] = p
	}

	t := &Tables{
		Categories:        cf.Categories,
		Fallback:          cf.Fallback,
		ComplexIndicators: cf.ComplexIndicators,
		ComplexMinWords:   cf.ComplexMinWords,
		ComplexSteps:      cf.ComplexSteps,
		SubtaskGuidance:   cf.SubtaskGuidance,
		Domains:           df.Domains,
		Profiles:          pf.Profiles,
		Skills:            skills,
		Persona:           strings.TrimSpace(mf.Persona),
		Restrictions:      mf.Restrictions,
		PlannerPrompt:     strings.TrimSpace(mf.Planner),
		ExecutorPrompt:    strings.TrimSpace(mf.Executor),
		Stopwords:         rf.Stopwords,
		Topics:            rf.Topics,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the structural rules the generators rely on.
func (t *Tables) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidTable)
	}
	seen := make(map[string]bool)
	for _, c := range append([]Category{t.Fallback}, t.Categories...) {
		if c.Name == "" {
			return fmt.Errorf("%w: category without a name", ErrInvalidTable)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidTable, c.Name)
		}
		seen[c.Name] = true
		if len(c.Plan) == 0 {
			return fmt.Errorf("%w: category %q has no plan", ErrInvalidTable, c.Name)
		}
		if len(c.Plan) > MaxPlanSteps {
			return fmt.Errorf("%w: category %q plan has %d steps, more than %d", ErrInvalidTable, c.Name, len(c.Plan), MaxPlanSteps)
		}
		if len(c.Templates) == 0 {
			return fmt.Errorf("%w: category %q has no templates", ErrInvalidTable, c.Name)
		}
		for i, tmpl := range c.Templates {
			if strings.Count(tmpl, TopicPlaceholder) != 1 {
				return fmt.Errorf("%w: category %q template %d must contain %s exactly once", ErrInvalidTable, c.Name, i, TopicPlaceholder)
			}
		}
	}
	distinct := make(map[string]bool, len(t.Fallback.Plan))
	for _, step := range t.Fallback.Plan {
		distinct[step] = true
	}
	if len(distinct) < MinPlanSteps {
		return fmt.Errorf("%w: fallback plan has %d distinct steps, needs at least %d", ErrInvalidTable, len(distinct), MinPlanSteps)
	}
	if len(t.Fallback.Patterns) > 0 {
		return fmt.Errorf("%w: fallback category %q must not declare patterns", ErrInvalidTable, t.Fallback.Name)
	}

	domains := make(map[string]bool)
	for _, d := range t.Domains {
		if d.Name == "" || domains[d.Name] {
			return fmt.Errorf("%w: domain name %q is empty or duplicated", ErrInvalidTable, d.Name)
		}
		domains[d.Name] = true
		if !seen[d.PreferredCategory] {
			return fmt.Errorf("%w: domain %q prefers unknown category %q", ErrInvalidTable, d.Name, d.PreferredCategory)
		}
		for _, st := range d.Subtasks {
			if st.Result != "" && strings.Count(st.Result, TopicPlaceholder) != 1 {
				return fmt.Errorf("%w: domain %q subtask %q result must contain %s exactly once", ErrInvalidTable, d.Name, st.Kind, TopicPlaceholder)
			}
		}
	}

	if _, ok := t.Skills[Beginner]; !ok {
		return fmt.Errorf("%w: skills table is missing %q", ErrInvalidTable, Beginner)
	}
	return nil
}

// Category returns the named category, or the fallback when the name is
// unknown. The bool reports whether name was found.
func (t *Tables) Category(name string) (Category, bool) {
	if name == t.Fallback.Name {
		return t.Fallback, true
	}
	for _, c := range t.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return t.Fallback, false
}

// Domain returns the named domain entry.
func (t *Tables) Domain(name string) (DomainEntry, bool) {
	for _, d := range t.Domains {
		if d.Name == name {
			return d, true
		}
	}
	return DomainEntry{}, false
}

// CategoryNames lists category names in precedence order, fallback last.
func (t *Tables) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories)+1)
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return append(names, t.Fallback.Name)
}

// Skill returns the parameters for e, using beginner for unknown levels.
func (t *Tables) Skill(e Expertise) SkillParams {
	if p, ok := t.Skills[e]; ok {
		return p
	}
	return t.Skills[Beginner]
}

func normalizeLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "bank_ambassador_trainee" {
		return string(Ambassador)
	}
	return s
}
