package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/depctl/internal/hostlock"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigExample(t *testing.T) {
	cfg, err := loadConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ManifestPath != "packages.toml" {
		t.Fatalf("unexpected manifest path: %q", cfg.ManifestPath)
	}
	if cfg.LockPath != "/run/depctl-example.lock" {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath)
	}
	if cfg.UpdateIndex {
		t.Fatalf("expected update_index disabled")
	}
	if cfg.Retry.Attempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.InitialDelay != 500*time.Millisecond {
		t.Fatalf("unexpected retry initial delay: %v", cfg.Retry.InitialDelay)
	}
	if cfg.Retry.MaxDelay != 10*time.Second {
		t.Fatalf("unexpected retry max delay: %v", cfg.Retry.MaxDelay)
	}
	if cfg.Retry.Multiplier != 2 {
		t.Fatalf("expected default multiplier, got %v", cfg.Retry.Multiplier)
	}
	if cfg.MetricsTextfile != "/var/lib/node_exporter/textfile/depctl.prom" {
		t.Fatalf("unexpected metrics textfile: %q", cfg.MetricsTextfile)
	}
	if !cfg.Target.Remote() {
		t.Fatalf("expected remote target")
	}
	if cfg.Target.Host != "media-box.lan" || cfg.Target.Port != "2222" || cfg.Target.User != "deploy" {
		t.Fatalf("unexpected target: %+v", cfg.Target)
	}
	if cfg.Target.KeyPath != filepath.Join("keys", "id_ed25519") {
		t.Fatalf("unexpected key path: %q", cfg.Target.KeyPath)
	}
	if cfg.Target.KeyPassphraseEnv != "DEPCTL_SSH_KEY_PASSPHRASE" {
		t.Fatalf("unexpected key passphrase env: %q", cfg.Target.KeyPassphraseEnv)
	}
	if cfg.Target.Timeout != 5*time.Second {
		t.Fatalf("unexpected target timeout: %v", cfg.Target.Timeout)
	}
	if !cfg.Target.Sudo {
		t.Fatalf("expected sudo enabled")
	}
	if cfg.Target.InsecureSkipHostKey {
		t.Fatalf("expected host key checking enabled")
	}
}

func TestLoadConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "# empty\n")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.LockPath != hostlock.DefaultPath || !cfg.UpdateIndex {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigRelativePathsFollowConfigFile(t *testing.T) {
	path := writeConfig(t, `
manifest = "deps/packages.toml"
metrics_textfile = "/abs/depctl.prom"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ManifestPath != filepath.Join(filepath.Dir(path), "deps", "packages.toml") {
		t.Fatalf("unexpected manifest path: %q", cfg.ManifestPath)
	}
	if cfg.MetricsTextfile != "/abs/depctl.prom" {
		t.Fatalf("unexpected metrics textfile: %q", cfg.MetricsTextfile)
	}
}

func TestLoadConfigRemoteTargetGetsOwnLock(t *testing.T) {
	path := writeConfig(t, `
[target]
host = "10.0.0.7:2200"
user = "root"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := filepath.Join(os.TempDir(), "depctl-10.0.0.7_2200.lock")
	if cfg.LockPath != want {
		t.Fatalf("unexpected lock path: %q want %q", cfg.LockPath, want)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad duration":   `retry_initial_delay = "soon"`,
		"bad max delay":  `retry_max_delay = "10"`,
		"zero max delay": `retry_max_delay = "0s"`,
		"negative delay": `retry_initial_delay = "-1s"`,
		"max below init": "retry_initial_delay = \"10s\"\nretry_max_delay = \"1s\"",
		"zero attempts":  `retry_attempts = 0`,
		"empty lock":     `lock_path = " "`,
		"bad timeout":    "[target]\nhost = \"h\"\nuser = \"u\"\ntimeout = \"x\"",
		"host no user":   "[target]\nhost = \"h\"",
		"syntax":         `retry_attempts = `,
		"wrong type":     `update_index = "yes"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestResolveConfigExplicitMissingFile(t *testing.T) {
	if _, err := resolveConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestSSHConfigReadsPassphraseFromEnv(t *testing.T) {
	cfg, err := loadConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	t.Setenv("DEPCTL_SSH_KEY_PASSPHRASE", "hunter2")
	ssh := sshConfig(cfg.Target)
	if string(ssh.Passphrase) != "hunter2" {
		t.Fatalf("unexpected passphrase: %q", ssh.Passphrase)
	}
	if ssh.Host != "media-box.lan" || ssh.Port != "2222" || ssh.User != "deploy" || ssh.Timeout != 5*time.Second {
		t.Fatalf("unexpected ssh config: %+v", ssh)
	}
	if addr, err := ssh.Address(); err != nil || addr != "media-box.lan:2222" {
		t.Fatalf("unexpected address %q: %v", addr, err)
	}

	t.Setenv("DEPCTL_SSH_KEY_PASSPHRASE", "")
	if ssh := sshConfig(cfg.Target); ssh.Passphrase != nil {
		t.Fatalf("expected no passphrase, got %q", ssh.Passphrase)
	}
}
