package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/agentskel/internal/pipeline"
)

const maxRequestBodySize = 1 << 20 // 1MB

// HealthInfo is reported by GET /health next to the agent mode.
type HealthInfo struct {
	Model   string
	Version string
}

// NewAgentHandler returns the HTTP API over agent: health, plan execution,
// prompt enhancement and classification.
func NewAgentHandler(agent *pipeline.Agent, info HealthInfo) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(allowAllOrigins)

	r.Get("/health", handleHealth(agent, info))
	r.Post("/run-agent", handleRunAgent(agent))
	r.Post("/enhance_prompt", handleEnhancePrompt(agent))
	r.Post("/classify", handleClassify(agent))

	return r
}

func handleHealth(agent *pipeline.Agent, info HealthInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := info.Model
		if agent.Mode() == pipeline.ModeMock {
			model = "mock"
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"mode":    agent.Mode(),
			"model":   model,
			"version": info.Version,
		})
	}
}

func handleRunAgent(agent *pipeline.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		resp, err := agent.Run(r.Context(), req)
		if err != nil {
			agentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleEnhancePrompt(agent *pipeline.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		resp, err := agent.Enhance(r.Context(), req)
		if err != nil {
			agentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleClassify(agent *pipeline.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, agent.Classify(req.Text))
	}
}

// decodeRequest reads a size-capped JSON body and writes a 400 when it is
// malformed or carries no request text.
func decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "malformed JSON: %v", err)
		return req, false
	}
	if err := req.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return req, false
	}
	return req, true
}

func agentError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrMissingRequest) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	httpError(w, http.StatusBadGateway, "upstream_error", "upstream error: %v", err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
