package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `{
  "server": {"port": ${PIPBOY_TEST_PORT:8090}, "log_level": "info"},
  "providers": [
    {
      "id": "openai",
      "type": "openai",
      "name": "OpenAI",
      "endpoint": "${PIPBOY_TEST_BASE_URL:https://api.openai.com/v1}",
      "api_key": "${PIPBOY_TEST_API_KEY:}"
    }
  ],
  "chat": {"default_model": "${PIPBOY_TEST_MODEL:gpt-4o-mini}", "max_history": 20, "rate_limit_per_minute": 60},
  "context": {"max_tokens": 4000, "compression_threshold": 0.8, "token_factor": 0.3, "retain_recent_non_user": 5},
  "database": {"sqlite": {"dsn": "file:test.db", "seed": true}},
  "workers": 4
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("got port %d, want 8090", cfg.Server.Port)
	}
	if cfg.Chat.DefaultModel != "gpt-4o-mini" {
		t.Errorf("got model %q, want gpt-4o-mini", cfg.Chat.DefaultModel)
	}
	if cfg.Providers[0].APIKey != "" {
		t.Errorf("got api key %q, want empty default", cfg.Providers[0].APIKey)
	}
	if cfg.Context.MaxTokens != 4000 || cfg.Context.CompressionThreshold != 0.8 {
		t.Errorf("got context %+v", cfg.Context)
	}
	if !cfg.Database.SQLite.Seed {
		t.Error("got seed false, want true")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PIPBOY_TEST_PORT", "9001")
	t.Setenv("PIPBOY_TEST_MODEL", "gpt-4o")
	t.Setenv("PIPBOY_TEST_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("got port %d, want 9001", cfg.Server.Port)
	}
	if cfg.Chat.DefaultModel != "gpt-4o" {
		t.Errorf("got model %q, want gpt-4o", cfg.Chat.DefaultModel)
	}
	if cfg.Providers[0].APIKey != "sk-test" {
		t.Errorf("got api key %q, want sk-test", cfg.Providers[0].APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("got %v, want read error", err)
	}
}

func TestLoadBadJSON(t *testing.T) {
	_, err := Load(writeConfig(t, "{not json"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestLoadRejectsEmptyProviders(t *testing.T) {
	_, err := Load(writeConfig(t, `{"server": {"port": 8090}, "providers": []}`))
	if err == nil || !strings.Contains(err.Error(), "validate config") {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestLoadRejectsUnknownProviderType(t *testing.T) {
	bad := `{"server": {"port": 8090}, "providers": [{"id": "x", "type": "carrier-pigeon"}]}`
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "validate config") {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if e.Model != "gpt-4o-mini" {
		t.Errorf("got model %q, want gpt-4o-mini", e.Model)
	}
	if e.MaxHistory != 20 || e.RatePerMinute != 60 {
		t.Errorf("got history %d rate %d, want 20/60", e.MaxHistory, e.RatePerMinute)
	}
	if e.MaxTokens != 4000 || e.CompressionThreshold != 0.8 {
		t.Errorf("got tokens %d threshold %v, want 4000/0.8", e.MaxTokens, e.CompressionThreshold)
	}
}

func TestFromEnvOverride(t *testing.T) {
	t.Setenv("PIPBOY_MAX_TOKENS", "2000")
	t.Setenv("PIPBOY_RATE_LIMIT_PER_MINUTE", "10")

	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if e.MaxTokens != 2000 || e.RatePerMinute != 10 {
		t.Errorf("got tokens %d rate %d, want 2000/10", e.MaxTokens, e.RatePerMinute)
	}
}

func TestFromEnvRejectsBadThreshold(t *testing.T) {
	t.Setenv("PIPBOY_COMPRESSION_THRESHOLD", "1.5")
	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "validate environment") {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestContextConfig(t *testing.T) {
	e := &Env{MaxTokens: 2000, CompressionThreshold: 0.9}
	cfg := e.ContextConfig()
	if cfg.MaxTokens != 2000 || cfg.CompressionThreshold != 0.9 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.TokenFactor != 0.3 || cfg.RetainRecentNonUser != 5 {
		t.Errorf("got %+v, want default factor and retention", cfg)
	}
}
