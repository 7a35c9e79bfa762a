package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Feeds      []Feed     `yaml:"feeds"`
	Story      Story      `yaml:"story"`
	Generation Generation `yaml:"generation"`
	Images     Images     `yaml:"images"`
	Ingest     Ingest     `yaml:"ingest"`
	Admin      Admin      `yaml:"admin"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// Feed is a default feed source seeded into feed_configurations on first
// run (or via the import-defaults endpoint). The database is the source of
// truth afterwards.
type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

type Story struct {
	UpdateMinutes   int `yaml:"update_minutes"`
	ContextSteps    int `yaml:"context_steps"`
	ExcerptVersions int `yaml:"excerpt_versions"`
}

type Generation struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	OllamaURL   string  `yaml:"ollama_url"`
	OllamaModel string  `yaml:"ollama_model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Images struct {
	Enabled  bool   `yaml:"enabled"`
	Interval int    `yaml:"interval"` // generate every Nth story version
	Model    string `yaml:"model"`
	Size     string `yaml:"size"`
	Quality  string `yaml:"quality"`
}

type Ingest struct {
	FetchContent bool `yaml:"fetch_content"`
	Concurrency  int  `yaml:"concurrency"`
}

type Admin struct {
	PasswordEnv  string `yaml:"password_env"`
	SessionHours int    `yaml:"session_hours"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for singl.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "singl")
}

// DataDir returns the XDG data directory for singl.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "singl")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/singl/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'singl init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Story: Story{
			UpdateMinutes:   30,
			ContextSteps:    10,
			ExcerptVersions: 2,
		},
		Generation: Generation{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "qwen2.5:7b",
			MaxTokens:   2048,
			Temperature: 0.8,
		},
		Images: Images{
			Enabled:  false,
			Interval: 5,
			Model:    "dall-e-3",
			Size:     "1024x1024",
			Quality:  "standard",
		},
		Ingest: Ingest{
			FetchContent: false,
			Concurrency:  4,
		},
		Admin: Admin{
			PasswordEnv:  "SINGL_ADMIN_PASSWORD",
			SessionHours: 24,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
