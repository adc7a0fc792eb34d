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
		key: "server.host", typ: kString, env: "WSR_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "WSR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "WSR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "WSR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "hevy.base_url", typ: kString, env: "HEVY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Hevy.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Hevy.BaseURL },
	},
	{
		key: "hevy.api_key", typ: kString, env: "HEVY_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Hevy.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Hevy.APIKey },
	},
	{
		key: "hevy.webhook_secret", typ: kString, env: "HEVY_WEBHOOK_SECRET",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Hevy.WebhookSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Hevy.WebhookSecret },
	},
	{
		key: "withings.client_id", typ: kString, env: "WITHINGS_CLIENT_ID",
		apply:   func(cfg *Config, v any) { cfg.Withings.ClientID = v.(string) },
		extract: func(cfg Config) any { return cfg.Withings.ClientID },
	},
	{
		key: "withings.redirect_uri", typ: kString, env: "WITHINGS_REDIRECT_URI",
		apply:   func(cfg *Config, v any) { cfg.Withings.RedirectURI = v.(string) },
		extract: func(cfg Config) any { return cfg.Withings.RedirectURI },
	},
	{
		key: "openai.api_key", typ: kString, env: "OPENAI_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
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
		}
	}
}
