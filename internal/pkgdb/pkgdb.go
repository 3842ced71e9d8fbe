package pkgdb

import (
	"context"
	"errors"

	"github.com/danmuck/depctl/internal/manifest"
)

var (
	ErrPackageNotFound    = errors.New("pkgdb: package not found")
	ErrPermissionDenied   = errors.New("pkgdb: permission denied")
	ErrLocked             = errors.New("pkgdb: package manager locked")
	ErrBackendUnavailable = errors.New("pkgdb: package manager unavailable")
)

// Database is the host package database: what is installed, and a way to
// install more. Implementations are not safe for concurrent installs; the
// host package manager holds its own exclusive lock.
type Database interface {
	// Query returns the installed version of name. installed is false when the
	// package is unknown or not fully installed.
	Query(ctx context.Context, name string) (ver string, installed bool, err error)

	// Install installs spec. An install in flight is not interrupted by ctx.
	Install(ctx context.Context, spec manifest.PackageSpec) error
}
