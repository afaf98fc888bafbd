package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"feishu": {"enabled": true, "appId": "cli_from_file", "appSecret": "secret_from_file"},
		"responder": {"model": "gpt-4o"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MOLTBOT_CONFIG", path)
	t.Setenv("FEISHU_APP_ID", "cli_from_env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Feishu.Enabled {
		t.Fatal("enabled flag from file lost")
	}
	if cfg.Feishu.AppID != "cli_from_env" {
		t.Fatalf("env must override file, got %q", cfg.Feishu.AppID)
	}
	if cfg.Feishu.AppSecret != "secret_from_file" {
		t.Fatalf("file value lost, got %q", cfg.Feishu.AppSecret)
	}
	if cfg.Responder.Model != "gpt-4o" {
		t.Fatalf("file model lost, got %q", cfg.Responder.Model)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("MOLTBOT_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("FEISHU_APP_ID", "")
	t.Setenv("AUDIT_KAFKA_TOPIC", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feishu.DmPolicy != DmPolicyOpen {
		t.Fatalf("default dm policy = %q", cfg.Feishu.DmPolicy)
	}
	if cfg.Audit.Topic != "moltbot.inbound" {
		t.Fatalf("default audit topic = %q", cfg.Audit.Topic)
	}
	if cfg.Storage.ActivityDBPath == "" {
		t.Fatal("activity db path default missing")
	}
}
