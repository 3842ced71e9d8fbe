package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		lvl zerolog.Level
		ok  bool
	}{
		"":         {zerolog.InfoLevel, false},
		"DEBUG":    {zerolog.DebugLevel, true},
		" warning": {zerolog.WarnLevel, true},
		"off":      {zerolog.Disabled, true},
		"loud":     {zerolog.InfoLevel, false},
	}
	for raw, want := range cases {
		lvl, ok := parseLevel(raw)
		if lvl != want.lvl || ok != want.ok {
			t.Fatalf("parseLevel(%q) = %v,%v want %v,%v", raw, lvl, ok, want.lvl, want.ok)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")

	cfg := DefaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Fatalf("unexpected config after overrides: %+v", cfg)
	}
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvLogLevel, "shout")
	t.Setenv(EnvLogTimestamp, "maybe")

	cfg := DefaultConfig(ProfileTest)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.DebugLevel || cfg.Timestamp {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewWritesConsoleFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &buf})
	logger.Debug().Msg("hidden")
	logger.Info().Str("package", "curl").Msg("provision.Run installed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "provision.Run installed") || !strings.Contains(out, "package=curl") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
