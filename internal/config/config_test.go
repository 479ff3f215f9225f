package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Session.BaseDelay != time.Second || cfg.Session.SpeedFactor != 500*time.Millisecond {
		t.Fatalf("unexpected timing: %+v", cfg.Session)
	}
	settings, err := cfg.Session.Settings()
	if err != nil {
		t.Fatalf("Settings err: %v", err)
	}
	if settings != chat.DefaultSettings() {
		t.Fatalf("unexpected default settings: %+v", settings)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.KeyPrefix != "portfolio:" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("SESSION_DEFAULT_PERSONALITY", "Casual")
	t.Setenv("SESSION_DEFAULT_SPEED", "3")
	t.Setenv("SESSION_EMOJI_MODE", "false")
	t.Setenv("SESSION_BASE_DELAY", "250ms")
	t.Setenv("STORAGE_DRIVER", "bolt")
	t.Setenv("STORAGE_PATH", "/tmp/chat.bolt")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	settings, err := cfg.Session.Settings()
	if err != nil {
		t.Fatalf("Settings err: %v", err)
	}
	if settings.Personality != chat.Casual || settings.ResponseSpeed != 3 || settings.EmojiMode {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	if cfg.Session.BaseDelay != 250*time.Millisecond {
		t.Fatalf("unexpected base delay %s", cfg.Session.BaseDelay)
	}
	if opts := cfg.Storage.Options(); opts.Driver != "bolt" || opts.Path != "/tmp/chat.bolt" {
		t.Fatalf("unexpected storage options: %+v", opts)
	}
	if cfg.Log.Logger().Format != "json" {
		t.Fatal("log format not applied")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	content := "server:\n  port: \"7070\"\nsession:\n  default_personality: friendly\nprofile:\n  file: ./profile.yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Session.DefaultPersonality != "friendly" || cfg.Profile.File != "./profile.yaml" {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"personality": {"SESSION_DEFAULT_PERSONALITY", "grumpy"},
		"speed":       {"SESSION_DEFAULT_SPEED", "9"},
		"driver":      {"STORAGE_DRIVER", "mongo"},
		"port":        {"PORT", "80 80"},
		"format":      {"LOG_FORMAT", "xml"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
