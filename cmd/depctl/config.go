package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/depctl/internal/hostlock"
	"github.com/danmuck/depctl/internal/provision"
)

// DefaultConfigPath is read when present and --config is not given.
const DefaultConfigPath = "/etc/depctl/config.toml"

// Config is the resolved runtime configuration.
type Config struct {
	ManifestPath    string
	LockPath        string
	UpdateIndex     bool
	Retry           provision.RetryConfig
	MetricsTextfile string
	Target          TargetConfig
}

// TargetConfig selects the host to provision. An empty Host means local.
type TargetConfig struct {
	Host                string
	Port                string
	User                string
	KeyPath             string
	// KeyPassphraseEnv names the environment variable holding the key passphrase.
	KeyPassphraseEnv    string
	KnownHosts          string
	InsecureSkipHostKey bool
	Timeout             time.Duration
	Sudo                bool
}

func (t TargetConfig) Remote() bool {
	return strings.TrimSpace(t.Host) != ""
}

func DefaultConfig() Config {
	return Config{
		LockPath:    hostlock.DefaultPath,
		UpdateIndex: true,
		Retry:       provision.DefaultRetryConfig(),
		Target: TargetConfig{
			Timeout: 15 * time.Second,
		},
	}
}

type fileConfig struct {
	Manifest          string     `toml:"manifest"`
	LockPath          string     `toml:"lock_path"`
	UpdateIndex       bool       `toml:"update_index"`
	RetryAttempts     int        `toml:"retry_attempts"`
	RetryInitialDelay string     `toml:"retry_initial_delay"`
	RetryMaxDelay     string     `toml:"retry_max_delay"`
	MetricsTextfile   string     `toml:"metrics_textfile"`
	Target            fileTarget `toml:"target"`
}

type fileTarget struct {
	Host                string `toml:"host"`
	Port                string `toml:"port"`
	User                string `toml:"user"`
	KeyPath             string `toml:"key_path"`
	KeyPassphraseEnv    string `toml:"key_passphrase_env"`
	KnownHosts          string `toml:"known_hosts"`
	InsecureSkipHostKey bool   `toml:"insecure_skip_host_key"`
	Timeout             string `toml:"timeout"`
	Sudo                bool   `toml:"sudo"`
}

func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load depctl config: %w", err)
	}

	baseDir := filepath.Dir(path)
	if meta.IsDefined("manifest") {
		cfg.ManifestPath = resolveRelative(baseDir, raw.Manifest)
	}

	if meta.IsDefined("lock_path") {
		lockPath := strings.TrimSpace(raw.LockPath)
		if lockPath == "" {
			return Config{}, fmt.Errorf("parse lock_path: must not be empty")
		}
		cfg.LockPath = lockPath
	}

	if meta.IsDefined("update_index") {
		cfg.UpdateIndex = raw.UpdateIndex
	}

	if meta.IsDefined("retry_attempts") {
		if raw.RetryAttempts < 1 {
			return Config{}, fmt.Errorf("parse retry_attempts: must be at least 1, got %d", raw.RetryAttempts)
		}
		cfg.Retry.Attempts = raw.RetryAttempts
	}

	if meta.IsDefined("retry_initial_delay") {
		d, err := parsePositiveDuration(raw.RetryInitialDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry_initial_delay: %w", err)
		}
		cfg.Retry.InitialDelay = d
	}

	if meta.IsDefined("retry_max_delay") {
		d, err := parsePositiveDuration(raw.RetryMaxDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry_max_delay: %w", err)
		}
		cfg.Retry.MaxDelay = d
	}
	if cfg.Retry.MaxDelay < cfg.Retry.InitialDelay {
		return Config{}, fmt.Errorf("parse retry_max_delay: %s is below retry_initial_delay %s", cfg.Retry.MaxDelay, cfg.Retry.InitialDelay)
	}

	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = resolveRelative(baseDir, raw.MetricsTextfile)
	}

	if meta.IsDefined("target", "host") {
		cfg.Target.Host = strings.TrimSpace(raw.Target.Host)
	}
	if meta.IsDefined("target", "port") {
		cfg.Target.Port = strings.TrimSpace(raw.Target.Port)
	}
	if meta.IsDefined("target", "user") {
		cfg.Target.User = strings.TrimSpace(raw.Target.User)
	}
	if meta.IsDefined("target", "key_path") {
		cfg.Target.KeyPath = resolveRelative(baseDir, raw.Target.KeyPath)
	}
	if meta.IsDefined("target", "key_passphrase_env") {
		cfg.Target.KeyPassphraseEnv = strings.TrimSpace(raw.Target.KeyPassphraseEnv)
	}
	if meta.IsDefined("target", "known_hosts") {
		cfg.Target.KnownHosts = resolveRelative(baseDir, raw.Target.KnownHosts)
	}
	if meta.IsDefined("target", "insecure_skip_host_key") {
		cfg.Target.InsecureSkipHostKey = raw.Target.InsecureSkipHostKey
	}
	if meta.IsDefined("target", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Target.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse target.timeout: %w", err)
		}
		cfg.Target.Timeout = d
	}
	if meta.IsDefined("target", "sudo") {
		cfg.Target.Sudo = raw.Target.Sudo
	}

	if cfg.Target.Remote() && cfg.Target.User == "" {
		return Config{}, fmt.Errorf("parse target: user is required when host is set")
	}
	if cfg.Target.Remote() && !meta.IsDefined("lock_path") {
		cfg.LockPath = remoteLockPath(cfg.Target.Host)
	}

	return cfg, nil
}

// resolveConfig loads explicit, else the default config file when it exists,
// else returns defaults.
func resolveConfig(explicit string) (Config, error) {
	if path := strings.TrimSpace(explicit); path != "" {
		return loadConfig(path)
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return loadConfig(DefaultConfigPath)
	}
	return DefaultConfig(), nil
}

// remoteLockPath keeps runs against different hosts independent.
func remoteLockPath(host string) string {
	name := strings.NewReplacer("/", "_", ":", "_").Replace(strings.TrimSpace(host))
	return filepath.Join(os.TempDir(), "depctl-"+name+".lock")
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func resolveRelative(baseDir string, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
