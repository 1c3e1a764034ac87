package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "AGENTSKEL_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "mock", typ: kBool, env: "MOCK_RESPONSES",
		apply:   func(cfg *Config, v any) { cfg.Mock = v.(bool) },
		extract: func(cfg Config) any { return cfg.Mock },
	},
	{
		key: "azure.endpoint", typ: kString, env: "AZURE_OPENAI_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Azure.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.Endpoint },
	},
	{
		key: "azure.api_key", typ: kString, env: "AZURE_OPENAI_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Azure.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.APIKey },
	},
	{
		key: "azure.api_version", typ: kString, env: "AZURE_OPENAI_API_VERSION",
		apply:   func(cfg *Config, v any) { cfg.Azure.APIVersion = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.APIVersion },
	},
	{
		key: "models.planner", typ: kString, env: "MODEL_PLANNER",
		apply:   func(cfg *Config, v any) { cfg.Models.Planner = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.Planner },
	},
	{
		key: "models.executor", typ: kString, env: "MODEL_EXECUTOR",
		apply:   func(cfg *Config, v any) { cfg.Models.Executor = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.Executor },
	},
	{
		key: "models.enhancer", typ: kString, env: "MODEL_PROMPT_ENHANCER",
		apply:   func(cfg *Config, v any) { cfg.Models.Enhancer = v.(string) },
		extract: func(cfg Config) any { return cfg.Models.Enhancer },
	},
	{
		key: "llm.timeout", typ: kString, env: "AGENTSKEL_LLM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Timeout },
	},
	{
		key: "llm.max_retries", typ: kInt, env: "AGENTSKEL_LLM_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxRetries },
	},
	{
		key: "llm.cache_size", typ: kInt, env: "AGENTSKEL_LLM_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.LLM.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.CacheSize },
	},
	{
		key: "planner.max_parallel", typ: kInt, env: "AGENTSKEL_PLANNER_MAX_PARALLEL",
		apply:   func(cfg *Config, v any) { cfg.Planner.MaxParallel = v.(int) },
		extract: func(cfg Config) any { return cfg.Planner.MaxParallel },
	},
	{
		key: "rag.num_keywords", typ: kInt, env: "AGENTSKEL_RAG_NUM_KEYWORDS",
		apply:   func(cfg *Config, v any) { cfg.RAG.NumKeywords = v.(int) },
		extract: func(cfg Config) any { return cfg.RAG.NumKeywords },
	},
	{
		key: "knowledge.path", typ: kString, env: "AGENTSKEL_KNOWLEDGE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Knowledge.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Knowledge.Path },
	},
	{
		key: "log.level", typ: kString, env: "AGENTSKEL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
