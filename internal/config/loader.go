package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".moltbot"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("MOLTBOT_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the JSON config file (if present) and applies environment
// overrides. Env files are loaded first without overriding existing process
// env vars.
func Load() (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	path, err := ConfigPath()
	if err == nil {
		if data, readErr := os.ReadFile(path); readErr == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func loadEnvFiles() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("MOLTBOT_ENV_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, ".env")
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ConfigDir, "env"))
	}
	for _, p := range candidates {
		_ = godotenv.Load(p)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Feishu.DmPolicy == "" {
		cfg.Feishu.DmPolicy = DmPolicyOpen
	}
	if cfg.Responder.Model == "" {
		cfg.Responder.Model = "gpt-4o-mini"
	}
	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "moltbot.inbound"
	}
	if cfg.Storage.ActivityDBPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.ActivityDBPath = filepath.Join(home, ConfigDir, "activity.db")
		}
	}
}
