package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	RunnerLocal = "local"
	RunnerSSH   = "ssh"

	DefaultServiceDir = "services"
)

var ErrInvalidConfig = errors.New("config: invalid deploy config")

// DeployConfig describes one deployment: where it lives, which services it carries and how commands run.
type DeployConfig struct {
	Root           string          `toml:"root" env:"SQUADRON_ROOT"`
	ServiceDir     string          `toml:"service_dir" env:"SQUADRON_SERVICE_DIR"`
	Services       []ServiceConfig `toml:"services" env:"-"`
	Runner         string          `toml:"runner" env:"SQUADRON_RUNNER"`
	CommandTimeout string          `toml:"command_timeout" env:"SQUADRON_COMMAND_TIMEOUT"`
	MetricsFile    string          `toml:"metrics_file" env:"SQUADRON_METRICS_FILE"`
	SSH            SSHConfig       `toml:"ssh" envPrefix:"SQUADRON_SSH_"`
}

type ServiceConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type SSHConfig struct {
	Host                string `toml:"host" env:"HOST"`
	Port                string `toml:"port" env:"PORT"`
	User                string `toml:"user" env:"USER"`
	KeyPath             string `toml:"key_path" env:"KEY_PATH"`
	KnownHosts          string `toml:"known_hosts" env:"KNOWN_HOSTS"`
	InsecureSkipHostKey bool   `toml:"insecure_skip_host_key" env:"INSECURE_SKIP_HOST_KEY"`
	Timeout             string `toml:"timeout" env:"TIMEOUT"`
}

// LoadDeployConfig reads path, applies SQUADRON_* env overrides and defaults, then validates.
func LoadDeployConfig(path string) (DeployConfig, error) {
	var cfg DeployConfig
	if err := loadToml(path, &cfg); err != nil {
		return DeployConfig{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return DeployConfig{}, fmt.Errorf("config env overrides failed: %w", err)
	}
	applyDefaults(&cfg, filepath.Dir(path))
	if err := ValidateDeployConfig(cfg); err != nil {
		return DeployConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): %w: %s", path, ErrInvalidConfig, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// applyDefaults resolves relative paths against base (the config file's directory).
func applyDefaults(cfg *DeployConfig, base string) {
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = base
	} else if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(base, cfg.Root)
	}
	if strings.TrimSpace(cfg.ServiceDir) == "" {
		cfg.ServiceDir = DefaultServiceDir
	}
	if !filepath.IsAbs(cfg.ServiceDir) {
		cfg.ServiceDir = filepath.Join(cfg.Root, cfg.ServiceDir)
	}
	if strings.TrimSpace(cfg.Runner) == "" {
		cfg.Runner = RunnerLocal
	}
	cfg.Runner = strings.ToLower(strings.TrimSpace(cfg.Runner))
}

func ValidateDeployConfig(cfg DeployConfig) error {
	if strings.TrimSpace(cfg.Root) == "" {
		return fmt.Errorf("%w: missing root", ErrInvalidConfig)
	}
	if len(cfg.Services) == 0 {
		return fmt.Errorf("%w: no services declared", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(cfg.Services))
	for i, svc := range cfg.Services {
		if err := ValidateServiceEntry(svc); err != nil {
			return fmt.Errorf("%w: services[%d]: %w", ErrInvalidConfig, i, err)
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("%w: services[%d]: duplicate service %q", ErrInvalidConfig, i, svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	if _, err := parseDuration(cfg.CommandTimeout); err != nil {
		return fmt.Errorf("%w: command_timeout: %w", ErrInvalidConfig, err)
	}

	switch cfg.Runner {
	case RunnerLocal:
	case RunnerSSH:
		if err := ValidateSSHConfig(cfg.SSH); err != nil {
			return fmt.Errorf("%w: ssh: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown runner %q", ErrInvalidConfig, cfg.Runner)
	}
	return nil
}

func ValidateServiceEntry(svc ServiceConfig) error {
	name := strings.TrimSpace(svc.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if name != svc.Name || strings.ContainsAny(name, "./\\") {
		return fmt.Errorf("invalid service name %q", svc.Name)
	}
	return nil
}

func ValidateSSHConfig(cfg SSHConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return fmt.Errorf("user is required")
	}
	if strings.TrimSpace(cfg.KeyPath) == "" {
		return fmt.Errorf("key_path is required")
	}
	if _, err := parseDuration(cfg.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

// CommandTimeoutDuration is the per-command bound; zero means unbounded.
func (c DeployConfig) CommandTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.CommandTimeout)
	return d
}

func (c SSHConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}
