package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/squadron/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDeployConfigAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[[services]]
name = "web"
version = "1.0"

[[services]]
name = "db"
`)
	cfg, err := LoadDeployConfig(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Root != base {
		t.Fatalf("expected root to default to config dir %q, got %q", base, cfg.Root)
	}
	if cfg.ServiceDir != filepath.Join(base, DefaultServiceDir) {
		t.Fatalf("unexpected service dir %q", cfg.ServiceDir)
	}
	if cfg.Runner != RunnerLocal {
		t.Fatalf("expected local runner default, got %q", cfg.Runner)
	}
	if len(cfg.Services) != 2 || cfg.Services[1].Name != "db" || cfg.Services[1].Version != "" {
		t.Fatalf("unexpected services %+v", cfg.Services)
	}
	if cfg.CommandTimeoutDuration() != 0 {
		t.Fatalf("expected unbounded command timeout")
	}
}

func TestLoadDeployConfigEnvOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
root = "/srv/app"
runner = "local"
command_timeout = "1m"

[[services]]
name = "web"
`)
	t.Setenv("SQUADRON_COMMAND_TIMEOUT", "90s")
	t.Setenv("SQUADRON_RUNNER", "ssh")
	t.Setenv("SQUADRON_SSH_HOST", "node-a")
	t.Setenv("SQUADRON_SSH_USER", "deploy")
	t.Setenv("SQUADRON_SSH_KEY_PATH", "/keys/id_ed25519")

	cfg, err := LoadDeployConfig(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.Root != "/srv/app" || cfg.ServiceDir != "/srv/app/services" {
		t.Fatalf("unexpected paths root=%q service_dir=%q", cfg.Root, cfg.ServiceDir)
	}
	if cfg.CommandTimeoutDuration() != 90*time.Second {
		t.Fatalf("expected env timeout override, got %v", cfg.CommandTimeoutDuration())
	}
	if cfg.Runner != RunnerSSH || cfg.SSH.Host != "node-a" || cfg.SSH.User != "deploy" {
		t.Fatalf("unexpected ssh overrides %+v runner=%q", cfg.SSH, cfg.Runner)
	}
}

func TestLoadDeployConfigRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
runer = "local"

[[services]]
name = "web"
`)
	_, err := LoadDeployConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected strict decode failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "runer") {
		t.Fatalf("expected unknown key in message, got %v", err)
	}
}

func TestValidateDeployConfig(t *testing.T) {
	testlog.Start(t)
	valid := DeployConfig{Root: "/srv", Runner: RunnerLocal, Services: []ServiceConfig{{Name: "web"}}}
	if err := ValidateDeployConfig(valid); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	cases := map[string]func(c *DeployConfig){
		"no services":       func(c *DeployConfig) { c.Services = nil },
		"dotted name":       func(c *DeployConfig) { c.Services = []ServiceConfig{{Name: "web.app"}} },
		"duplicate service": func(c *DeployConfig) { c.Services = []ServiceConfig{{Name: "web"}, {Name: "web"}} },
		"bad timeout":       func(c *DeployConfig) { c.CommandTimeout = "soon" },
		"unknown runner":    func(c *DeployConfig) { c.Runner = "docker" },
		"ssh without host": func(c *DeployConfig) {
			c.Runner = RunnerSSH
			c.SSH = SSHConfig{User: "deploy", KeyPath: "k"}
		},
	}
	for name, mutate := range cases {
		cfg := valid
		cfg.Services = append([]ServiceConfig(nil), valid.Services...)
		mutate(&cfg)
		if err := ValidateDeployConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.toml")
	if err := WriteTemplate(path, "deploy", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "deploy", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := LoadDeployConfig(path)
	if err != nil {
		t.Fatalf("template should load: %v", err)
	}
	if cfg.CommandTimeoutDuration() != 10*time.Minute {
		t.Fatalf("unexpected template timeout %v", cfg.CommandTimeoutDuration())
	}
	if _, err := Template("compose"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
