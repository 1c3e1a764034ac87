package profile

import (
	"fmt"
	"strings"

	"github.com/kalambet/agentskel/internal/knowledge"
)

// ProfileStore defines the lookups the Manager needs.
type ProfileStore interface {
	Profile(userID string) (knowledge.ProfileEntry, bool)
	Skill(e knowledge.Expertise) knowledge.SkillParams
}

// tableStore serves profiles from the static knowledge tables.
type tableStore struct {
	t *knowledge.Tables
}

func (s tableStore) Profile(userID string) (knowledge.ProfileEntry, bool) {
	for _, p := range s.t.Profiles {
		if p.UserID == userID {
			return p, true
		}
	}
	return knowledge.ProfileEntry{}, false
}

func (s tableStore) Skill(e knowledge.Expertise) knowledge.SkillParams {
	return s.t.Skill(e)
}

// Manager resolves user ids to profiles and skill parameters.
type Manager struct {
	store ProfileStore
}

// NewManager creates a Manager over the knowledge tables.
func NewManager(t *knowledge.Tables) *Manager {
	return &Manager{store: tableStore{t: t}}
}

// NewManagerWithStore creates a Manager over a custom store (for testing).
func NewManagerWithStore(store ProfileStore) *Manager {
	return &Manager{store: store}
}

// Lookup returns the stored profile for userID. Unknown ids, including the
// empty id, get a beginner profile with no preferences.
func (m *Manager) Lookup(userID string) UserProfile {
	entry, ok := m.store.Profile(userID)
	if !ok {
		return UserProfile{UserID: userID, Expertise: knowledge.Beginner, Preferences: []string{}}
	}
	prefs := make([]string, len(entry.Preferences))
	copy(prefs, entry.Preferences)
	return UserProfile{
		UserID:      entry.UserID,
		Name:        entry.Name,
		Expertise:   knowledge.ParseExpertise(entry.Expertise),
		Preferences: prefs,
	}
}

// Resolve applies an inline profile on top of Lookup. Only non-empty inline
// fields replace stored ones.
func (m *Manager) Resolve(userID string, inline *Inline) UserProfile {
	p := m.Lookup(userID)
	if inline == nil {
		return p
	}
	if inline.Name != "" {
		p.Name = inline.Name
	}
	if inline.Expertise != "" {
		p.Expertise = knowledge.ParseExpertise(inline.Expertise)
	}
	if len(inline.Preferences) > 0 {
		p.Preferences = append([]string(nil), inline.Preferences...)
	}
	return p
}

// Params returns the skill parameters for the profile's expertise.
func (m *Manager) Params(p UserProfile) knowledge.SkillParams {
	return m.store.Skill(p.Expertise)
}

// maxSummaryChars caps the summary injected into prompts.
const maxSummaryChars = 400

// Summary renders a one-line description of p for prompt text.
func Summary(p UserProfile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("User: %s.", p.Name))
	}
	parts = append(parts, fmt.Sprintf("Expertise: %s.", p.Expertise))
	if len(p.Preferences) > 0 {
		parts = append(parts, fmt.Sprintf("Interested in: %s.", strings.Join(p.Preferences, ", ")))
	}
	s := strings.Join(parts, " ")
	if r := []rune(s); len(r) > maxSummaryChars {
		s = string(r[:maxSummaryChars])
	}
	return s
}
