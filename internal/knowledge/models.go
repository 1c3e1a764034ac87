package knowledge

import "errors"

// ErrInvalidTable is returned when a loaded table breaks a structural rule.
var ErrInvalidTable = errors.New("invalid knowledge table")

// TopicPlaceholder is the token every result template carries exactly once.
const TopicPlaceholder = "{topic}"

// Plan length bounds. Category plans may not exceed MaxPlanSteps, and the
// fallback plan must carry MinPlanSteps distinct steps so padding can always
// reach the minimum.
const (
	MaxPlanSteps = 7
	MinPlanSteps = 5
)

// PlaceholderTopic stands in for a topic that could not be extracted.
const PlaceholderTopic = "this topic"

// Expertise is a user's skill level. It drives tone text and sampling
// parameters.
type Expertise string

const (
	Beginner     Expertise = "beginner"
	Intermediate Expertise = "intermediate"
	Expert       Expertise = "expert"
	Ambassador   Expertise = "ambassador"
)

// ParseExpertise normalizes s. Unknown or empty levels map to Beginner.
func ParseExpertise(s string) Expertise {
	switch Expertise(normalizeLevel(s)) {
	case Intermediate:
		return Intermediate
	case Expert:
		return Expert
	case Ambassador:
		return Ambassador
	default:
		return Beginner
	}
}

type Category struct {
	Name      string   `yaml:"name" json:"name"`
	Guidance  string   `yaml:"guidance" json:"guidance"`
	Patterns  []string `yaml:"patterns" json:"patterns"`
	Plan      []string `yaml:"plan" json:"plan"`
	Templates []string `yaml:"templates" json:"templates"`
}

type SubtaskKind struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Result   string   `yaml:"result,omitempty" json:"result,omitempty"` // optional, replaces the category template
}

type DomainEntry struct {
	Name              string        `yaml:"name" json:"name"`
	Label             string        `yaml:"label" json:"label"`
	Keywords          []string      `yaml:"keywords" json:"keywords"`
	PreferredCategory string        `yaml:"preferred_category" json:"preferred_category"`
	Guidance          string        `yaml:"guidance" json:"guidance"`
	Subtasks          []SubtaskKind `yaml:"subtasks" json:"subtasks"`
}

type SubtaskGuidance struct {
	Kind     string   `yaml:"kind"`
	Keywords []string `yaml:"keywords"`
	Guidance string   `yaml:"guidance"`
}

type ProfileEntry struct {
	UserID      string   `yaml:"user_id"`
	Name        string   `yaml:"name"`
	Expertise   string   `yaml:"expertise"`
	Preferences []string `yaml:"preferences"`
}

type SkillParams struct {
	SystemPromptAddon string  `yaml:"system_prompt_addon" json:"system_prompt_addon"`
	Temperature       float64 `yaml:"temperature" json:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" json:"max_tokens"`
}

type RAGTopic struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	Context     string   `yaml:"context"`
	Offers      []string `yaml:"offers"`
	Tips        []string `yaml:"tips"`
	RelatedDocs []string `yaml:"related_docs"`
}
