// Package planner turns a classification and a topic into a multi-step plan
// with one templated result per step.
package planner

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/agentskel/internal/intent"
	"github.com/kalambet/agentskel/internal/knowledge"
)

const (
	// MaxSteps caps every plan, whether templated or parsed from a model.
	MaxSteps = knowledge.MaxPlanSteps
	// MinSteps is the length plans are padded to from the fallback plan.
	MinSteps = knowledge.MinPlanSteps
)

// ErrNoSteps is returned by ParseSteps when text holds no numbered lines.
var ErrNoSteps = errors.New("no numbered steps found")

// Step is one plan entry. Kind is the domain subtask kind that tagged it, if
// any.
type Step struct {
	Text string
	Kind string
}

// Result pairs a plan step with its outcome.
type Result struct {
	Subtask string `json:"subtask"`
	Result  string `json:"result"`
}

// Plan is the generated step list and its per-step results, index aligned.
type Plan struct {
	Steps   []Step
	Results []Result
}

// StepTexts returns the step strings in order.
func (p Plan) StepTexts() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Text
	}
	return out
}

// Generator builds deterministic plans from the knowledge tables. It is safe
// for concurrent use.
type Generator struct {
	t        *knowledge.Tables
	domains  map[string]*intent.Tagger
	guidance *intent.Tagger
	byKind   map[string]string
}

// NewGenerator precompiles the domain subtask and guidance keywords in t.
func NewGenerator(t *knowledge.Tables) *Generator {
	g := &Generator{
		t:       t,
		domains: make(map[string]*intent.Tagger, len(t.Domains)),
		byKind:  make(map[string]string, len(t.SubtaskGuidance)),
	}
	for _, d := range t.Domains {
		sets := make([]intent.KeywordSet, 0, len(d.Subtasks))
		for _, st := range d.Subtasks {
			sets = append(sets, intent.KeywordSet{Name: st.Kind, Keywords: st.Keywords})
		}
		g.domains[d.Name] = intent.NewTagger(sets)
	}
	sets := make([]intent.KeywordSet, 0, len(t.SubtaskGuidance))
	for _, sg := range t.SubtaskGuidance {
		sets = append(sets, intent.KeywordSet{Name: sg.Kind, Keywords: sg.Keywords})
		g.byKind[sg.Kind] = sg.Guidance
	}
	g.guidance = intent.NewTagger(sets)
	return g
}

// Steps builds the step list for c:
//
//  1. the category's base plan, or the fallback plan
//  2. base steps tagged with the matched domain's first matching subtask kind,
//     plus one step for every kind left uncovered
//  3. phased-delivery steps for complex requests
//  4. padding from the fallback plan up to MinSteps, skipping steps
//     already in the plan
//
// Steps 1 to 3 stop at MaxSteps. Every {topic} is filled.
func (g *Generator) Steps(c intent.Classification, topic string) []Step {
	topic = orPlaceholder(topic)
	cat, _ := g.t.Category(c.Category)

	steps := make([]Step, 0, MaxSteps)
	for _, s := range cat.Plan {
		if len(steps) == MaxSteps {
			break
		}
		steps = append(steps, Step{Text: s})
	}

	if d, ok := g.t.Domain(c.MatchedDomain); ok {
		tagger := g.domains[d.Name]
		label := d.Label
		if label == "" {
			label = d.Name
		}
		covered := make(map[string]bool)
		for i := range steps {
			if kind, ok := tagger.Tag(steps[i].Text); ok {
				steps[i].Kind = kind
				covered[kind] = true
			}
		}
		for _, st := range d.Subtasks {
			if len(steps) >= MaxSteps {
				break
			}
			if covered[st.Kind] {
				continue
			}
			steps = append(steps, Step{
				Text: fmt.Sprintf("Complete the %s stage for %s with a focus on %s", st.Kind, knowledge.TopicPlaceholder, label),
				Kind: st.Kind,
			})
		}
	}

	if c.Complex {
		for _, s := range g.t.ComplexSteps {
			if len(steps) >= MaxSteps {
				break
			}
			steps = append(steps, Step{Text: s})
		}
	}

	present := make(map[string]bool, len(steps))
	for _, s := range steps {
		present[s.Text] = true
	}
	for _, s := range g.t.Fallback.Plan {
		if len(steps) >= MinSteps {
			break
		}
		if present[s] {
			continue
		}
		present[s] = true
		steps = append(steps, Step{Text: s})
	}

	for i := range steps {
		steps[i].Text = fill(steps[i].Text, topic)
	}
	return steps
}

// Plan builds the steps for c and a mock result for each of them.
func (g *Generator) Plan(c intent.Classification, topic string) Plan {
	steps := g.Steps(c, topic)
	results := make([]Result, len(steps))
	for i, s := range steps {
		results[i] = Result{Subtask: s.Text, Result: g.MockResult(c, topic, i, s)}
	}
	return Plan{Steps: steps, Results: results}
}

// MockResult returns the templated result for step i. A domain subtask
// result template wins over the category templates, which are cycled by
// index.
func (g *Generator) MockResult(c intent.Classification, topic string, i int, s Step) string {
	topic = orPlaceholder(topic)
	if s.Kind != "" {
		if d, ok := g.t.Domain(c.MatchedDomain); ok {
			for _, st := range d.Subtasks {
				if st.Kind == s.Kind && st.Result != "" {
					return fill(st.Result, topic)
				}
			}
		}
	}
	cat, _ := g.t.Category(c.Category)
	return fill(cat.Templates[i%len(cat.Templates)], topic)
}

// StepGuidance returns the executor guidance for the first subtask kind whose
// keyword appears in step, or "" when none does.
func (g *Generator) StepGuidance(step string) string {
	kind, ok := g.guidance.Tag(step)
	if !ok {
		return ""
	}
	return g.byKind[kind]
}

var numbered = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)

// ParseSteps extracts "1. step" or "1) step" lines from a model reply,
// keeping at most MaxSteps.
func ParseSteps(text string) ([]string, error) {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		m := numbered.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		s := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
		if s == "" {
			continue
		}
		steps = append(steps, s)
		if len(steps) == MaxSteps {
			break
		}
	}
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	return steps, nil
}

func fill(tmpl, topic string) string {
	return strings.ReplaceAll(tmpl, knowledge.TopicPlaceholder, topic)
}

func orPlaceholder(topic string) string {
	if strings.TrimSpace(topic) == "" {
		return knowledge.PlaceholderTopic
	}
	return topic
}
