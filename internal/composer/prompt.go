package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/agentskel/internal/knowledge"
	"github.com/kalambet/agentskel/internal/retrieval"
)

const defaultMaxContextTokens = 4000

// Section headers, in the order they appear in an enhanced prompt.
const (
	headerPrompt       = "--- Prompt ---"
	headerGuidance     = "--- Guidance ---"
	headerContext      = "--- Context ---"
	headerRestrictions = "--- Restrictions ---"
	headerOffers       = "--- Offers/Tips ---"
	headerDocuments    = "--- Documents ---"
	headerSkill        = "--- Skill Level Guidance ---"
)

// Input is everything known about a request by the time it is composed.
type Input struct {
	Prompt   string
	Topic    string
	Category knowledge.Category
	// Domain is nil when no domain matched.
	Domain         *knowledge.DomainEntry
	Retrieval      retrieval.Retrieval
	Snippets       []string // caller-supplied context
	Skill          knowledge.SkillParams
	ProfileSummary string
}

// Composer assembles enhanced prompts and system prompts from classified
// requests, retrieved context and the user's skill level.
type Composer struct {
	MaxContextTokens int

	persona      string
	restrictions []string
}

// New creates a Composer using the persona and restrictions in t. If
// maxContextTokens <= 0, the default (4000) is used.
func New(t *knowledge.Tables, maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{
		MaxContextTokens: maxContextTokens,
		persona:          t.Persona,
		restrictions:     t.Restrictions,
	}
}

// Compose builds the enhanced prompt. Sections without data are left out.
func (c *Composer) Compose(in Input) string {
	sections := []string{section(headerPrompt, in.Prompt)}
	if in.Domain != nil {
		sections = append(sections, section(headerGuidance, c.guidance(in)))
	}
	sections = append(sections,
		section(headerContext, c.context(in)),
		section(headerRestrictions, c.restrictionText(in)),
	)
	sections = append(sections, c.extras(in)...)
	return join(sections)
}

// SystemPrompt builds the system message for the enhancer model: persona,
// skill guidance, context and restrictions.
func (c *Composer) SystemPrompt(in Input) string {
	var skill strings.Builder
	skill.WriteString(in.Skill.SystemPromptAddon)
	if in.ProfileSummary != "" {
		if skill.Len() > 0 {
			skill.WriteString("\n")
		}
		skill.WriteString(in.ProfileSummary)
	}

	return join([]string{
		c.persona,
		section(headerSkill, skill.String()),
		section(headerContext, c.context(in)),
		section(headerRestrictions, bullets(c.filledRestrictions(in))),
	})
}

// Extras renders only the Offers/Tips and Documents sections. It is appended
// to model output so the extras survive whatever the model returns.
func (c *Composer) Extras(in Input) string {
	return join(c.extras(in))
}

func (c *Composer) guidance(in Input) string {
	var parts []string
	if in.Domain.Guidance != "" {
		label := in.Domain.Label
		if label == "" {
			label = in.Domain.Name
		}
		parts = append(parts, fmt.Sprintf("Domain (%s): %s", label, in.Domain.Guidance))
	}
	if in.Category.Guidance != "" {
		parts = append(parts, fmt.Sprintf("Task (%s): %s", in.Category.Name, in.Category.Guidance))
	}
	return strings.Join(parts, "\n")
}

// context renders retrieved chunks, then caller snippets, dropping any entry
// that would push the section past the token budget.
func (c *Composer) context(in Input) string {
	var entries []string
	for _, ch := range in.Retrieval.Chunks() {
		entries = append(entries, ch.Text)
	}
	for _, s := range in.Snippets {
		if s = strings.TrimSpace(s); s != "" {
			entries = append(entries, s)
		}
	}

	var sb strings.Builder
	remaining := c.MaxContextTokens - EstimateTokens(headerContext)
	for _, e := range entries {
		tokens := EstimateTokens(e)
		if tokens > remaining {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(e)
		remaining -= tokens
	}
	return sb.String()
}

func (c *Composer) restrictionText(in Input) string {
	var lines []string
	if in.Skill.SystemPromptAddon != "" {
		lines = append(lines, "Tone: "+in.Skill.SystemPromptAddon)
	}
	if in.ProfileSummary != "" {
		lines = append(lines, "Audience: "+in.ProfileSummary)
	}
	if b := bullets(c.filledRestrictions(in)); b != "" {
		lines = append(lines, b)
	}
	return strings.Join(lines, "\n")
}

// filledRestrictions replaces [topic] with the first matched context topic,
// or the request topic when nothing matched.
func (c *Composer) filledRestrictions(in Input) []string {
	topic := in.Topic
	if in.Retrieval.Found() {
		topic = retrieval.Title(in.Retrieval.Topics[0].Name)
	}
	if strings.TrimSpace(topic) == "" {
		topic = knowledge.PlaceholderTopic
	}
	out := make([]string, len(c.restrictions))
	for i, r := range c.restrictions {
		out[i] = strings.ReplaceAll(r, "[topic]", topic)
	}
	return out
}

func (c *Composer) extras(in Input) []string {
	ex := in.Retrieval.Extras()

	var offers strings.Builder
	if len(ex.Offers) > 0 {
		offers.WriteString("Offers:\n")
		offers.WriteString(groups(ex.Offers))
	}
	if len(ex.Tips) > 0 {
		if offers.Len() > 0 {
			offers.WriteString("\n")
		}
		offers.WriteString("Tips:\n")
		offers.WriteString(groups(ex.Tips))
	}
	return []string{
		section(headerOffers, offers.String()),
		section(headerDocuments, groups(ex.Docs)),
	}
}

func groups(gs []retrieval.Group) string {
	var sb strings.Builder
	for i, g := range gs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "From topic '%s':\n", g.Topic)
		sb.WriteString(bullets(g.Items))
	}
	return sb.String()
}

func bullets(items []string) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(it)
	}
	return sb.String()
}

// section returns "" when body is empty so join can drop it.
func section(header, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return header + "\n" + body
}

func join(sections []string) string {
	kept := sections[:0:0]
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
