package config

import (
	"errors"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }

func (b *mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }

func (b *mapBackend) Delete(key string) error { delete(b.data, key); return nil }

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
	err    error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[account], nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies default values survive an empty backend and
// empty environment, and that missing credentials do not fail Load.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&mapBackend{data: map[string]any{}}, mockKeychain{err: errors.New("no store")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want 8787", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Hevy.BaseURL != "https://api.hevyapp.com" {
		t.Errorf("Hevy.BaseURL = %q", cfg.Hevy.BaseURL)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Hevy.APIKey != "" || cfg.OpenAI.APIKey != "" {
		t.Error("expected credentials to stay empty when unset everywhere")
	}
}

// TestBackendValues verifies non-secret keys are read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{data: map[string]any{
		"server.host":           "127.0.0.1",
		"server.port":           9000,
		"storage.data_dir":      "/tmp/wsr-test",
		"log.level":             "debug",
		"hevy.base_url":         "http://hevy.local",
		"withings.client_id":    "wcid",
		"withings.redirect_uri": "https://app.example/cb",
		"openai.base_url":       "http://llm.local/v1",
	}}

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no store")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/wsr-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Hevy.BaseURL != "http://hevy.local" {
		t.Errorf("Hevy.BaseURL = %q", cfg.Hevy.BaseURL)
	}
	if cfg.Withings.ClientID != "wcid" {
		t.Errorf("Withings.ClientID = %q", cfg.Withings.ClientID)
	}
	if cfg.Withings.RedirectURI != "https://app.example/cb" {
		t.Errorf("Withings.RedirectURI = %q", cfg.Withings.RedirectURI)
	}
	if cfg.OpenAI.BaseURL != "http://llm.local/v1" {
		t.Errorf("OpenAI.BaseURL = %q", cfg.OpenAI.BaseURL)
	}
}

// TestSecretsSkipBackend verifies credentials are never read from the
// config backend, only from env or the secret store.
func TestSecretsSkipBackend(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{data: map[string]any{
		"hevy.api_key":   "from-backend",
		"openai.api_key": "from-backend",
	}}

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no store")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Hevy.APIKey != "" {
		t.Errorf("Hevy.APIKey = %q, want empty", cfg.Hevy.APIKey)
	}
	if cfg.OpenAI.APIKey != "" {
		t.Errorf("OpenAI.APIKey = %q, want empty", cfg.OpenAI.APIKey)
	}
}

// TestEnvOverride verifies environment variables win over backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("WSR_SERVER_PORT", "4242")
	t.Setenv("HEVY_API_KEY", "env-key")
	t.Setenv("WITHINGS_CLIENT_ID", "env-cid")

	b := &mapBackend{data: map[string]any{
		"server.port":        9000,
		"withings.client_id": "backend-cid",
	}}

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no store")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4242 {
		t.Errorf("Server.Port = %d, want 4242", cfg.Server.Port)
	}
	if cfg.Hevy.APIKey != "env-key" {
		t.Errorf("Hevy.APIKey = %q, want %q", cfg.Hevy.APIKey, "env-key")
	}
	if cfg.Withings.ClientID != "env-cid" {
		t.Errorf("Withings.ClientID = %q, want %q", cfg.Withings.ClientID, "env-cid")
	}
}

// TestBadEnvInt verifies a malformed integer env var falls back to the default.
func TestBadEnvInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("WSR_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(&mapBackend{data: map[string]any{}}, mockKeychain{err: errors.New("no store")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want default 8787", cfg.Server.Port)
	}
}

// TestKeychainFallback verifies the secret store is consulted only for
// credentials that env left unset.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-openai")

	kc := mockKeychain{values: map[string]string{
		"hevy_api_key":        "kc-hevy",
		"hevy_webhook_secret": "kc-hook",
		"openai_api_key":      "kc-openai",
	}}

	cfg, err := loadWith(&mapBackend{data: map[string]any{}}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Hevy.APIKey != "kc-hevy" {
		t.Errorf("Hevy.APIKey = %q, want %q", cfg.Hevy.APIKey, "kc-hevy")
	}
	if cfg.Hevy.WebhookSecret != "kc-hook" {
		t.Errorf("Hevy.WebhookSecret = %q, want %q", cfg.Hevy.WebhookSecret, "kc-hook")
	}
	if cfg.OpenAI.APIKey != "env-openai" {
		t.Errorf("OpenAI.APIKey = %q, want env value", cfg.OpenAI.APIKey)
	}
}

// TestManageKeys verifies the non-secret key listing used by the config command.
func TestManageKeys(t *testing.T) {
	keys := ValidKeys()
	want := map[string]bool{
		"server.host":           true,
		"server.port":           true,
		"storage.data_dir":      true,
		"log.level":             true,
		"hevy.base_url":         true,
		"withings.client_id":    true,
		"withings.redirect_uri": true,
		"openai.base_url":       true,
	}
	if len(keys) != len(want) {
		t.Fatalf("ValidKeys() returned %d keys, want %d: %v", len(keys), len(want), keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected key %q", k)
		}
	}

	if err := SetKey("hevy.api_key", "x"); err == nil {
		t.Error("expected SetKey to reject a secret key")
	}
	if err := SetKey("nope", "x"); err == nil {
		t.Error("expected SetKey to reject an unknown key")
	}
}
