package provision

import (
	"errors"

	"github.com/danmuck/depctl/internal/pkgdb"
)

var (
	ErrNoDatabase = errors.New("provision: package database is required")

	// ErrAlreadySatisfied is informational; it never appears in Report.Failed.
	ErrAlreadySatisfied = errors.New("provision: already satisfied")

	ErrUnsatisfiedAfterInstall = errors.New("provision: installed version does not satisfy constraint")
	ErrNotAttempted            = errors.New("provision: not attempted")
)

// Kind classifies a per-package outcome.
type Kind string

const (
	KindAlreadySatisfied Kind = "already_satisfied"
	KindInstallFailed    Kind = "install_failed"
	KindPermissionDenied Kind = "permission_denied"
	KindPackageNotFound  Kind = "package_not_found"
)

func (k Kind) String() string {
	switch k {
	case KindAlreadySatisfied:
		return "already satisfied"
	case KindInstallFailed:
		return "install failed"
	case KindPermissionDenied:
		return "permission denied"
	case KindPackageNotFound:
		return "package not found"
	default:
		return string(k)
	}
}

// classify maps a backend error onto a failure kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, pkgdb.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, pkgdb.ErrPackageNotFound):
		return KindPackageNotFound
	default:
		return KindInstallFailed
	}
}
