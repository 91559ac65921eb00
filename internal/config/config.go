package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TrelloConfig holds the source account credentials
type TrelloConfig struct {
	APIKey  string `yaml:"api_key"`
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// KanboardConfig holds the target instance credentials
type KanboardConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// Config represents the application configuration
type Config struct {
	Trello    TrelloConfig   `yaml:"trello"`
	Kanboard  KanboardConfig `yaml:"kanboard"`
	StatePath string         `yaml:"state_path"`
	LogLevel  string         `yaml:"log_level"`
	Output    string         `yaml:"output"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/trello2kanboard/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Output:   "table",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/trello2kanboard/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if v := getEnvOrFile("TRELLO_API_KEY", "TRELLO_API_KEY_FILE"); v != "" {
		cfg.Trello.APIKey = v
	}
	if v := getEnvOrFile("TRELLO_TOKEN", "TRELLO_TOKEN_FILE"); v != "" {
		cfg.Trello.Token = v
	}
	if v := os.Getenv("TRELLO_BASE_URL"); v != "" {
		cfg.Trello.BaseURL = v
	}
	if v := os.Getenv("KANBOARD_URL"); v != "" {
		cfg.Kanboard.URL = v
	}
	if v := os.Getenv("KANBOARD_USERNAME"); v != "" {
		cfg.Kanboard.Username = v
	}
	if v := getEnvOrFile("KANBOARD_TOKEN", "KANBOARD_TOKEN_FILE"); v != "" {
		cfg.Kanboard.Token = v
	}
	if v := getEnvOrFile("T2K_STATE_PATH", "T2K_STATE_PATH_FILE"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("T2K_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("T2K_OUTPUT"); v != "" {
		cfg.Output = v
	}

	if cfg.StatePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.StatePath = filepath.Join(homeDir, ".local", "share", "trello2kanboard", "state.db")
	}

	return cfg, nil
}

// RequireTrello reports missing Trello credentials
func (c *Config) RequireTrello() error {
	var missing []string
	if c.Trello.APIKey == "" {
		missing = append(missing, "TRELLO_API_KEY")
	}
	if c.Trello.Token == "" {
		missing = append(missing, "TRELLO_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("trello credentials not configured (set %s)", strings.Join(missing, ", "))
	}
	return nil
}

// RequireKanboard reports missing Kanboard settings
func (c *Config) RequireKanboard() error {
	var missing []string
	if c.Kanboard.URL == "" {
		missing = append(missing, "KANBOARD_URL")
	}
	if c.Kanboard.Token == "" {
		missing = append(missing, "KANBOARD_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("kanboard connection not configured (set %s)", strings.Join(missing, ", "))
	}
	return nil
}

// loadYAMLConfig loads configuration from ~/.config/trello2kanboard/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "trello2kanboard", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
