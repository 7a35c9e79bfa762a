package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}

	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Generation.Provider)
	}

	if cfg.Story.UpdateMinutes != 30 {
		t.Errorf("expected update_minutes 30, got %d", cfg.Story.UpdateMinutes)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
generation:
  provider: ollama
  model: llama3
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Generation.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Generation.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults survive partial configs
	if cfg.Story.ContextSteps != 10 {
		t.Errorf("expected default context_steps 10, got %d", cfg.Story.ContextSteps)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != path {
		t.Errorf("expected %s, got %s", path, resolved)
	}

	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestValidateSetting(t *testing.T) {
	cases := []struct {
		key   string
		value string
		ok    bool
	}{
		{KeyUpdateMinutes, `15`, true},
		{KeyUpdateMinutes, `0`, false},
		{KeyUpdateMinutes, `"soon"`, false},
		{KeyTemperature, `0.7`, true},
		{KeyTemperature, `3.5`, false},
		{KeyProvider, `"openai"`, true},
		{KeyProvider, `"claude"`, false},
		{KeyImageQuality, `"hd"`, true},
		{KeyImageQuality, `"ultra"`, false},
		{KeyImageSize, `"1792x1024"`, true},
		{KeyImageSize, `"512x512"`, false},
		{KeyImagesEnabled, `true`, true},
		{KeyImagesEnabled, `"yes"`, false},
		{KeyModel, `""`, false},
		{"theme", `"dark"`, false},
	}

	for _, tc := range cases {
		err := ValidateSetting(tc.key, json.RawMessage(tc.value))
		if tc.ok && err != nil {
			t.Errorf("%s=%s: unexpected error: %v", tc.key, tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s=%s: expected error", tc.key, tc.value)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatal(err)
	}

	merged := cfg.ApplyOverrides(map[string]json.RawMessage{
		KeyUpdateMinutes: json.RawMessage(`5`),
		KeyModel:         json.RawMessage(`"gpt-4o"`),
		KeyImagesEnabled: json.RawMessage(`true`),
	})

	if merged.Story.UpdateMinutes != 5 {
		t.Errorf("expected update_minutes 5, got %d", merged.Story.UpdateMinutes)
	}
	if merged.Generation.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", merged.Generation.Model)
	}
	if !merged.Images.Enabled {
		t.Error("expected images enabled")
	}

	// Original untouched
	if cfg.Story.UpdateMinutes != 30 {
		t.Errorf("original config mutated: %d", cfg.Story.UpdateMinutes)
	}
}
