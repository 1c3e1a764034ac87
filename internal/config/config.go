package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Mock      bool
	Azure     AzureConfig
	Models    ModelsConfig
	LLM       LLMConfig
	Planner   PlannerConfig
	RAG       RAGConfig
	Knowledge KnowledgeConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type AzureConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
}

type ModelsConfig struct {
	Planner  string
	Executor string
	Enhancer string
}

type LLMConfig struct {
	Timeout    string
	MaxRetries int
	CacheSize  int
}

type PlannerConfig struct {
	MaxParallel int
}

type RAGConfig struct {
	NumKeywords int
}

type KnowledgeConfig struct {
	// Directory of YAML tables replacing the embedded ones. Empty uses the
	// embedded defaults.
	Path string
}

type LogConfig struct {
	Level string
}

// Mode reports the active generation backend.
func (c Config) Mode() string {
	if c.Mock {
		return "mock"
	}
	return "azure"
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LLMTimeout parses llm.timeout, falling back to 60s on a bad value.
func (c Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Mock: true,
		Azure: AzureConfig{
			APIVersion: "2024-10-21",
		},
		Models: ModelsConfig{
			Planner:  "gpt-4",
			Executor: "gpt-4",
			Enhancer: "gpt-4",
		},
		LLM: LLMConfig{
			Timeout:    "60s",
			MaxRetries: 2,
			CacheSize:  256,
		},
		Planner: PlannerConfig{
			MaxParallel: 4,
		},
		RAG: RAGConfig{
			NumKeywords: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend, environment
// variables, and the local secrets file.
//
// The backend is a JSON file at $XDG_CONFIG_HOME/agentskel/config.json.
// Environment variables override backend values. The Azure API key is a
// secret: it is read from AZURE_OPENAI_KEY or, failing that, from
// $XDG_DATA_HOME/agentskel/secrets.json.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), fileSecrets{path: secretsFilePath()})
}

// secretStore abstracts secret lookup for testing.
type secretStore interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, ss secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Azure.APIKey == "" {
		if key, err := ss.Get("agentskel", "azure_api_key"); err == nil && key != "" {
			cfg.Azure.APIKey = strings.TrimSpace(key)
		}
	}

	if !cfg.Mock {
		var missing []string
		if cfg.Azure.Endpoint == "" {
			missing = append(missing, "azure.endpoint (AZURE_OPENAI_ENDPOINT)")
		}
		if cfg.Azure.APIKey == "" {
			missing = append(missing, "azure.api_key (AZURE_OPENAI_KEY)")
		}
		if len(missing) > 0 {
			return Config{}, fmt.Errorf("missing required config for azure mode: %s. "+
				"Set the environment variables or run with MOCK_RESPONSES=true",
				strings.Join(missing, ", "))
		}
	}

	return cfg, nil
}
