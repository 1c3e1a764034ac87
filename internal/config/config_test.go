package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secretStore interface.
type mockSecrets struct {
	value string
	err   error
}

func (m mockSecrets) Get(service, account string) (string, error) {
	return m.value, m.err
}

var noSecrets = mockSecrets{err: errors.New("not found")}

// clearEnv blanks every env var the loader reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(writeTempConfig(t, `{}`), noSecrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if !cfg.Mock {
		t.Error("Mock = false, want true")
	}
	if cfg.Mode() != "mock" {
		t.Errorf("Mode() = %q, want %q", cfg.Mode(), "mock")
	}
	if cfg.Azure.APIVersion != "2024-10-21" {
		t.Errorf("Azure.APIVersion = %q, want %q", cfg.Azure.APIVersion, "2024-10-21")
	}
	if cfg.Models.Planner != "gpt-4" || cfg.Models.Executor != "gpt-4" || cfg.Models.Enhancer != "gpt-4" {
		t.Errorf("Models = %+v, want gpt-4 everywhere", cfg.Models)
	}
	if cfg.RAG.NumKeywords != 5 {
		t.Errorf("RAG.NumKeywords = %d, want 5", cfg.RAG.NumKeywords)
	}
	if cfg.LLMTimeout() != 60*time.Second {
		t.Errorf("LLMTimeout() = %v, want 60s", cfg.LLMTimeout())
	}
	if cfg.Addr() != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestFileValues(t *testing.T) {
	clearEnv(t)

	b := writeTempConfig(t, `{
  "server.port": 9100,
  "models.planner": "gpt-4o",
  "rag.num_keywords": "3",
  "mock": "true",
  "llm.timeout": "15s"
}`)

	cfg, err := loadWith(b, noSecrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Models.Planner != "gpt-4o" {
		t.Errorf("Models.Planner = %q, want %q", cfg.Models.Planner, "gpt-4o")
	}
	if cfg.RAG.NumKeywords != 3 {
		t.Errorf("RAG.NumKeywords = %d, want 3", cfg.RAG.NumKeywords)
	}
	if cfg.LLMTimeout() != 15*time.Second {
		t.Errorf("LLMTimeout() = %v, want 15s", cfg.LLMTimeout())
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8123")
	t.Setenv("MODEL_EXECUTOR", "gpt-35-turbo")

	cfg, err := loadWith(writeTempConfig(t, `{"server.port": 9000}`), noSecrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", cfg.Server.Port)
	}
	if cfg.Models.Executor != "gpt-35-turbo" {
		t.Errorf("Models.Executor = %q, want %q", cfg.Models.Executor, "gpt-35-turbo")
	}
}

func TestBadEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("MOCK_RESPONSES", "maybe")

	cfg, err := loadWith(writeTempConfig(t, `{}`), noSecrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
	if !cfg.Mock {
		t.Error("Mock = false, want default true")
	}
}

func TestAzureModeRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOCK_RESPONSES", "false")

	_, err := loadWith(writeTempConfig(t, `{}`), noSecrets)
	if err == nil {
		t.Fatal("expected error for missing azure credentials, got nil")
	}
	for _, want := range []string{"missing required config", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to contain %q", err.Error(), want)
		}
	}
}

func TestAzureKeyFromSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOCK_RESPONSES", "false")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")

	cfg, err := loadWith(writeTempConfig(t, `{}`), mockSecrets{value: "secret-key\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Azure.APIKey != "secret-key" {
		t.Errorf("Azure.APIKey = %q, want %q", cfg.Azure.APIKey, "secret-key")
	}
	if cfg.Mode() != "azure" {
		t.Errorf("Mode() = %q, want %q", cfg.Mode(), "azure")
	}
}

func TestSecretsFileRoundTrip(t *testing.T) {
	s := fileSecrets{path: filepath.Join(t.TempDir(), "nested", "secrets.json")}
	if err := s.set("agentskel", "azure_api_key", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get("agentskel", "azure_api_key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "abc" {
		t.Errorf("Get = %q, want %q", got, "abc")
	}
	if _, err := s.Get("agentskel", "other"); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestSecretsSetKeepsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	corrupt := []byte(`{"agentskel": {"azure_api_key": "old"`)
	if err := os.WriteFile(path, corrupt, 0o600); err != nil {
		t.Fatal(err)
	}

	err := fileSecrets{path: path}.set("agentskel", "azure_api_key", "new")
	if err == nil || !strings.Contains(err.Error(), "parsing secrets file") {
		t.Fatalf("set error = %v, want parse error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(corrupt) {
		t.Errorf("secrets file was rewritten: %s", data)
	}
}

func TestSetKey(t *testing.T) {
	b := writeTempConfig(t, `{}`)

	if err := setKey(b, "server.port", "9001"); err != nil {
		t.Fatalf("setKey port: %v", err)
	}
	if err := setKey(b, "mock", "false"); err != nil {
		t.Fatalf("setKey mock: %v", err)
	}

	reloaded := newFileBackend(b.path)
	if v, ok, _ := reloaded.GetInt("server.port"); !ok || v != 9001 {
		t.Errorf("server.port = %d (ok=%v), want 9001", v, ok)
	}
	if v, ok, _ := reloaded.GetString("mock"); !ok || v != "false" {
		t.Errorf("mock = %q (ok=%v), want %q", v, ok, "false")
	}

	if err := setKey(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKey(b, "azure.api_key", "x"); err == nil {
		t.Error("expected error when setting a secret")
	}
	if err := setKey(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Azure.APIKey = "hidden"

	for _, ki := range ShowAll(cfg) {
		if ki.Key == "azure.api_key" {
			t.Fatal("ShowAll exposed azure.api_key")
		}
		if ki.Value == "hidden" {
			t.Fatalf("ShowAll leaked secret value under %s", ki.Key)
		}
	}
	if len(ShowAll(cfg)) != len(ValidKeys()) {
		t.Errorf("ShowAll returned %d keys, ValidKeys %d", len(ShowAll(cfg)), len(ValidKeys()))
	}
}
