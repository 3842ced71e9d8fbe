package pkgdb

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/depctl/internal/manifest"
	"github.com/danmuck/depctl/internal/tools"
	"github.com/danmuck/depctl/internal/version"
	"github.com/rs/zerolog/log"
)

const dpkgQueryFormat = "${db:Status-Abbrev}|${Version}\n"

// AptConfig configures the dpkg/apt backed database.
type AptConfig struct {
	Runner tools.CommandRunner
	// UpdateIndex runs apt-get update once, before the first install of a run.
	UpdateIndex bool
}

// Apt queries dpkg and installs through apt-get.
type Apt struct {
	runner      tools.CommandRunner
	updateIndex bool

	mu           sync.Mutex
	indexRefresh bool
}

// NewApt returns an apt backend, defaulting to the local host runner.
func NewApt(cfg AptConfig) *Apt {
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Apt{
		runner:      runner,
		updateIndex: cfg.UpdateIndex,
	}
}

func (a *Apt) Query(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	stdout, stderr, exitCode, err := a.runner.Run("dpkg-query", "-W", "-f="+dpkgQueryFormat, name)
	if err != nil {
		if exitCode == 1 && strings.Contains(string(stderr), "no packages found matching") {
			return "", false, nil
		}
		return "", false, commandError("dpkg-query", []string{"-W", name}, stdout, stderr, exitCode, err)
	}
	ver, installed := parseDpkgQuery(string(stdout))
	return ver, installed, nil
}

func (a *Apt) Install(ctx context.Context, spec manifest.PackageSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	constraint, err := spec.ParsedConstraint()
	if err != nil {
		return err
	}
	a.refreshIndexOnce()

	target := spec.Name
	if constraint.Op == version.OpEQ {
		target = spec.Name + "=" + constraint.Version.String()
	}
	args := []string{
		"DEBIAN_FRONTEND=noninteractive",
		"apt-get", "install", "-y", "-q",
		"--no-install-recommends",
		"-o", "Dpkg::Options::=--force-confold",
		target,
	}
	log.Info().Str("package", spec.Name).Str("target", target).Msg("pkgdb.Apt.Install exec")
	stdout, stderr, exitCode, err := a.runner.Run("env", args...)
	if err != nil {
		return commandError("apt-get", args[1:], stdout, stderr, exitCode, err)
	}
	return nil
}

// Close releases the runner's connection, if it holds one.
func (a *Apt) Close() error {
	if c, ok := a.runner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// refreshIndexOnce runs apt-get update at most once per Apt value. A failed
// refresh is logged; installs still try against the existing index.
func (a *Apt) refreshIndexOnce() {
	if !a.updateIndex {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.indexRefresh {
		return
	}
	a.indexRefresh = true

	args := []string{"DEBIAN_FRONTEND=noninteractive", "apt-get", "update", "-q"}
	log.Info().Msg("pkgdb.Apt refreshing package index")
	stdout, stderr, exitCode, err := a.runner.Run("env", args...)
	if err != nil {
		log.Warn().
			Err(commandError("apt-get", args[1:], stdout, stderr, exitCode, err)).
			Msg("pkgdb.Apt index refresh failed")
	}
}

// parseDpkgQuery picks the first installed line of dpkg-query output. Status
// abbreviations: second column i (installed), W (triggers awaited) and t
// (triggers pending) count as installed.
func parseDpkgQuery(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		status, ver, ok := strings.Cut(line, "|")
		if !ok || len(status) < 2 {
			continue
		}
		switch status[1] {
		case 'i', 'W', 't':
			ver = strings.TrimSpace(ver)
			if ver != "" {
				return ver, true
			}
		}
	}
	return "", false
}

// commandError wraps a failed package manager command, tagging it with the
// matching pkgdb sentinel when the output identifies one.
func commandError(name string, args []string, stdout, stderr []byte, exitCode int32, err error) error {
	detail := fmt.Errorf(
		"pkgdb command failed cmd=%s args=%q exit=%d stdout=%q stderr=%q: %w",
		name,
		strings.Join(args, " "),
		exitCode,
		lastLines(stdout, 3),
		lastLines(stderr, 3),
		err,
	)
	if kind := classifyOutput(exitCode, string(stdout)+"\n"+string(stderr)); kind != nil {
		return fmt.Errorf("%w: %w", kind, detail)
	}
	return detail
}

func classifyOutput(exitCode int32, output string) error {
	if exitCode == 127 {
		return ErrBackendUnavailable
	}
	out := strings.ToLower(output)
	switch {
	case strings.Contains(out, "are you root"),
		strings.Contains(out, "permission denied"),
		strings.Contains(out, "operation not permitted"):
		return ErrPermissionDenied
	case strings.Contains(out, "could not get lock"),
		strings.Contains(out, "unable to acquire the dpkg frontend lock"),
		strings.Contains(out, "is another process using it"):
		return ErrLocked
	case strings.Contains(out, "unable to locate package"),
		strings.Contains(out, "has no installation candidate"),
		strings.Contains(out, "no packages found matching"),
		strings.Contains(out, "was not found"):
		return ErrPackageNotFound
	default:
		return nil
	}
}

func lastLines(b []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
