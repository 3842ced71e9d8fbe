package pkgdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmuck/depctl/internal/manifest"
	"github.com/danmuck/depctl/internal/version"
)

type injectedFailure struct {
	err       error
	remaining int
}

// Memory is an in-memory package database. Installing copies the package's
// available version into the installed set.
type Memory struct {
	mu           sync.Mutex
	installed    map[string]string
	available    map[string]string
	installFails map[string]*injectedFailure
	queryFails   map[string]error
	installCalls []string
}

func NewMemory() *Memory {
	return &Memory{
		installed:    make(map[string]string),
		available:    make(map[string]string),
		installFails: make(map[string]*injectedFailure),
		queryFails:   make(map[string]error),
	}
}

// WithInstalled marks name as installed at ver.
func (m *Memory) WithInstalled(name, ver string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installed[name] = ver
	return m
}

// WithAvailable makes name installable at ver.
func (m *Memory) WithAvailable(name, ver string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[name] = ver
	return m
}

// FailInstall makes the next times installs of name return err. times <= 0
// fails every install.
func (m *Memory) FailInstall(name string, err error, times int) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installFails[name] = &injectedFailure{err: err, remaining: times}
	return m
}

// FailQuery makes every query of name return err.
func (m *Memory) FailQuery(name string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryFails[name] = err
	return m
}

// InstallCalls returns the package names passed to Install, in call order.
func (m *Memory) InstallCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.installCalls...)
}

func (m *Memory) Query(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.queryFails[name]; err != nil {
		return "", false, err
	}
	ver, ok := m.installed[name]
	return ver, ok, nil
}

func (m *Memory) Install(ctx context.Context, spec manifest.PackageSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installCalls = append(m.installCalls, spec.Name)

	if f := m.installFails[spec.Name]; f != nil {
		if f.remaining <= 0 {
			return f.err
		}
		f.remaining--
		if f.remaining == 0 {
			delete(m.installFails, spec.Name)
		}
		return f.err
	}

	ver, ok := m.available[spec.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, spec.Name)
	}
	constraint, err := spec.ParsedConstraint()
	if err != nil {
		return err
	}
	if constraint.Op == version.OpEQ {
		cmp, err := version.CompareStrings(ver, constraint.Version.String())
		if err != nil {
			return err
		}
		if cmp != 0 {
			return fmt.Errorf("%w: %s=%s", ErrPackageNotFound, spec.Name, constraint.Version)
		}
	}
	m.installed[spec.Name] = ver
	return nil
}
