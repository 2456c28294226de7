package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.GitHub.Path != "/webhooks/github" {
		t.Fatalf("expected default github path, got %q", cfg.GitHub.Path)
	}
	if cfg.User.PagureInstanceURL != "https://src.fedoraproject.org" {
		t.Fatalf("expected default pagure instance, got %q", cfg.User.PagureInstanceURL)
	}
	if cfg.Watermill.Driver != "gochannel" {
		t.Fatalf("expected default watermill driver, got %q", cfg.Watermill.Driver)
	}
	if cfg.Watermill.TopicPrefix != "packit" {
		t.Fatalf("expected default topic prefix, got %q", cfg.Watermill.TopicPrefix)
	}
	if cfg.Watermill.RiverQueue.Kind != "packit.event" {
		t.Fatalf("expected default river kind, got %q", cfg.Watermill.RiverQueue.Kind)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("PAGURE_TOKEN", "from-env")
	content := "user:\n  pagure_user_token: ${PAGURE_TOKEN}\n  dry_run: true\n  github_app_id: 12\n"
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.User.PagureUserToken != "from-env" {
		t.Fatalf("expected token from env, got %q", cfg.User.PagureUserToken)
	}
	if !cfg.User.DryRun || cfg.User.GitHubAppID != 12 {
		t.Fatalf("unexpected user config %+v", cfg.User)
	}
}

func TestLoadConfigInvalidRule(t *testing.T) {
	content := "rules:\n  - when: trigger == \"release\"\n"
	if _, err := LoadConfig(writeConfig(t, content)); err == nil {
		t.Fatalf("expected error for missing emit")
	}
}

func TestLoadConfigTrimsRules(t *testing.T) {
	content := "rules:\n  - when: \"  trigger == \\\"release\\\"  \"\n    emit: \"  packit.release  \"\n    drivers: [\" AMQP \", \"\"]\n"
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Rules[0].When != "trigger == \"release\"" {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[0].When)
	}
	if cfg.Rules[0].Emit != "packit.release" {
		t.Fatalf("expected trimmed emit, got %q", cfg.Rules[0].Emit)
	}
	if len(cfg.Rules[0].Drivers) != 1 || cfg.Rules[0].Drivers[0] != "amqp" {
		t.Fatalf("expected normalized drivers, got %v", cfg.Rules[0].Drivers)
	}
}
