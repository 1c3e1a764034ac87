package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CompletionRequest is a single-turn chat completion: one system message and
// one user message against a deployment.
type CompletionRequest struct {
	Model  string
	System string
	User   string
	// Temperature and MaxTokens are sent only when positive.
	Temperature float64
	MaxTokens   int
}

// cacheKey identifies identical requests.
func (r CompletionRequest) cacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%g\x00%d", r.Model, r.System, r.User, r.Temperature, r.MaxTokens)
	return hex.EncodeToString(h.Sum(nil))
}

// Completer returns the assistant text for a request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
