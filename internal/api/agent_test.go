package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/kalambet/agentskel/internal/knowledge"
	"github.com/kalambet/agentskel/internal/pipeline"
	"github.com/kalambet/agentskel/internal/proxy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(ctx context.Context, req proxy.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.reply, s.err
}

func newMockHandler() http.Handler {
	agent := pipeline.New(knowledge.MustDefault(), pipeline.Options{})
	return NewAgentHandler(agent, HealthInfo{Model: "gpt-4", Version: "test"})
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (msg, typ string) {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error.Message, body.Error.Type
}

func TestHealth(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "healthy" || body["mode"] != "mock" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestHealth_AzureReportsModel(t *testing.T) {
	agent := pipeline.New(knowledge.MustDefault(), pipeline.Options{Completer: stubCompleter{reply: "ok"}})
	h := NewAgentHandler(agent, HealthInfo{Model: "gpt-4", Version: "test"})

	var body map[string]string
	json.NewDecoder(do(h, http.MethodGet, "/health", "").Body).Decode(&body)
	if body["mode"] != "azure" || body["model"] != "gpt-4" {
		t.Errorf("body = %v, want azure/gpt-4", body)
	}
}

func TestRunAgent(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodPost, "/run-agent", `{"request_text":"Tell me about mortgages for first-time buyers.","user_id":"user001"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp struct {
		Plan    []string `json:"plan"`
		Results []struct {
			Subtask string `json:"subtask"`
			Result  string `json:"result"`
		} `json:"results"`
		Details map[string]any `json:"processing_details"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Plan) != 5 || len(resp.Results) != 5 {
		t.Errorf("plan/results = %d/%d", len(resp.Plan), len(resp.Results))
	}
	for _, k := range []string{"request_id", "mode", "category", "matched_domain", "topic", "keywords", "expertise", "rag_topics", "duration_ms"} {
		if _, ok := resp.Details[k]; !ok {
			t.Errorf("processing_details missing %q", k)
		}
	}
	if resp.Details["category"] != "write" {
		t.Errorf("category = %v, want write", resp.Details["category"])
	}
}

func TestRunAgent_Aliases(t *testing.T) {
	h := newMockHandler()

	for _, body := range []string{`{"request":"design a logo"}`, `{"prompt":"design a logo"}`, `{"request_text":""}`} {
		if rr := do(h, http.MethodPost, "/run-agent", body); rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, body = %s", body, rr.Code, rr.Body.String())
		}
	}
}

func TestRunAgent_MalformedJSON(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodPost, "/run-agent", `{"request_text":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	msg, typ := decodeError(t, rr)
	if typ != "invalid_request_error" || !strings.HasPrefix(msg, "malformed JSON:") {
		t.Errorf("error = %q/%q", typ, msg)
	}
}

func TestRunAgent_MissingText(t *testing.T) {
	h := newMockHandler()

	for _, path := range []string{"/run-agent", "/enhance_prompt", "/classify"} {
		rr := do(h, http.MethodPost, path, `{"user_id":"user001"}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", path, rr.Code, http.StatusBadRequest)
		}
		msg, typ := decodeError(t, rr)
		if typ != "invalid_request_error" || msg != "request_text is required" {
			t.Errorf("%s: error = %q/%q", path, typ, msg)
		}
	}
}

func TestRunAgent_BodyTooLarge(t *testing.T) {
	h := newMockHandler()

	big := `{"request_text":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	rr := do(h, http.MethodPost, "/run-agent", big)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRunAgent_UpstreamError(t *testing.T) {
	agent := pipeline.New(knowledge.MustDefault(), pipeline.Options{Completer: stubCompleter{reply: "1. a"}})
	h := NewAgentHandler(agent, HealthInfo{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/run-agent", strings.NewReader(`{"request_text":"hi"}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if _, typ := decodeError(t, rr); typ != "upstream_error" {
		t.Errorf("type = %q, want upstream_error", typ)
	}
}

func TestEnhancePrompt(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodPost, "/enhance_prompt", `{"prompt":"Tell me about mortgages for first-time buyers.","context":"extra note"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	json.NewDecoder(rr.Body).Decode(&resp)
	prompt, _ := resp["enhanced_prompt"].(string)
	if !strings.Contains(prompt, "--- Prompt ---") || !strings.Contains(prompt, "extra note") {
		t.Errorf("enhanced_prompt = %q", prompt)
	}
	if _, ok := resp["enhanced_response"]; ok {
		t.Error("mock mode must omit enhanced_response")
	}
}

func TestClassifyEndpoint(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodPost, "/classify", `{"request_text":"Analyze small business loan trends"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp pipeline.Analysis
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Classification.Category != "analyze" {
		t.Errorf("category = %q, want analyze", resp.Classification.Category)
	}
	if resp.Topic == "" {
		t.Error("topic must not be empty")
	}
}

func TestPreflight(t *testing.T) {
	h := newMockHandler()

	rr := do(h, http.MethodOptions, "/run-agent", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newMockHandler()

	if rr := do(h, http.MethodGet, "/v1/models", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
