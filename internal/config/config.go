package config

import "strings"

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Hevy     HevyConfig
	Withings WithingsConfig
	OpenAI   OpenAIConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type HevyConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

type WithingsConfig struct {
	ClientID    string
	RedirectURI string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8787,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Hevy: HevyConfig{
			BaseURL: "https://api.hevyapp.com",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.wsr.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/wsr/config.json
// and secrets fall back to $XDG_DATA_HOME/wsr/secrets.json.
//
// Environment variables override backend values on all platforms. App
// settings use the WSR_ prefix; provider credentials keep their
// conventional names (HEVY_API_KEY, WITHINGS_CLIENT_ID, OPENAI_API_KEY).
//
// Missing values never fail Load: absent provider credentials degrade to
// the deterministic fallbacks built into the handlers and clients.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Consult the secret store only for credentials still unset.
	if cfg.Hevy.APIKey == "" {
		if key, err := kc.Get("wsr", "hevy_api_key"); err == nil && key != "" {
			cfg.Hevy.APIKey = key
		}
	}
	if cfg.Hevy.WebhookSecret == "" {
		if key, err := kc.Get("wsr", "hevy_webhook_secret"); err == nil && key != "" {
			cfg.Hevy.WebhookSecret = key
		}
	}
	if cfg.OpenAI.APIKey == "" {
		if key, err := kc.Get("wsr", "openai_api_key"); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
