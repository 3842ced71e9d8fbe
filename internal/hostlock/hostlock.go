package hostlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const DefaultPath = "/run/depctl.lock"

var (
	ErrLocked      = errors.New("hostlock: another provisioning run holds the lock")
	ErrInvalidPath = errors.New("hostlock: invalid lock path")
	ErrReleased    = errors.New("hostlock: lock already released")
)

// Lock is an exclusive advisory lock on a file, held until Release.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock without blocking. A lock held by another open file
// description, in this process or another, yields ErrLocked.
func Acquire(path string) (*Lock, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("hostlock: create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hostlock: open %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("hostlock: %s: %w", path, err)
	}

	// Owner pid is informational only.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	log.Debug().Str("path", path).Msg("hostlock acquired")
	return &Lock{path: path, file: f}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return ErrReleased
	}
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil
	log.Debug().Str("path", l.path).Msg("hostlock released")
	if unlockErr != nil {
		return fmt.Errorf("hostlock: unlock %s: %w", l.path, unlockErr)
	}
	return closeErr
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// With runs fn while holding the lock at path and always releases it.
func With(path string, fn func() error) (err error) {
	lock, err := Acquire(path)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn()
}
