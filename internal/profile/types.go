package profile

import "github.com/kalambet/agentskel/internal/knowledge"

// UserProfile is the read-only view of a user that drives tone and sampling.
type UserProfile struct {
	UserID      string              `json:"user_id"`
	Name        string              `json:"name,omitempty"`
	Expertise   knowledge.Expertise `json:"expertise"`
	Preferences []string            `json:"preferences"`
}

// Inline is a caller-supplied profile that takes precedence over the table.
type Inline struct {
	Name        string   `json:"name,omitempty"`
	Expertise   string   `json:"expertise,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}
