package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kalambet/agentskel/internal/profile"
)

// ErrMissingRequest is returned when a request carries none of request_text,
// request or prompt. An empty string counts as present.
var ErrMissingRequest = errors.New("request_text is required")

// Request is the input to Run and Enhance.
type Request struct {
	Text    string
	UserID  string
	Profile *profile.Inline
	// Context holds caller-supplied snippets added to the prompt context.
	Context []string

	hasText bool
}

// NewRequest builds a Request whose text is present, even when empty.
func NewRequest(text, userID string) Request {
	return Request{Text: text, UserID: userID, hasText: true}
}

// Validate reports ErrMissingRequest when no text field was supplied.
func (r Request) Validate() error {
	if !r.hasText {
		return ErrMissingRequest
	}
	return nil
}

// UnmarshalJSON accepts request_text, request or prompt for the text, in that
// order of preference, and a context given as one string or a list.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		RequestText *string         `json:"request_text"`
		Request     *string         `json:"request"`
		Prompt      *string         `json:"prompt"`
		UserID      string          `json:"user_id"`
		UserProfile *profile.Inline `json:"user_profile"`
		Context     json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Request{UserID: raw.UserID, Profile: raw.UserProfile}
	for _, v := range []*string{raw.RequestText, raw.Request, raw.Prompt} {
		if v != nil {
			r.Text, r.hasText = *v, true
			break
		}
	}

	ctx, err := parseContext(raw.Context)
	if err != nil {
		return err
	}
	r.Context = ctx
	return nil
}

func parseContext(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil, nil
		}
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("context must be a string or a list of strings: %w", err)
	}
	return many, nil
}
