package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/danmuck/depctl/internal/version"
)

var ErrInvalidSpec = errors.New("manifest: invalid package spec")

// dpkg package names, optionally arch-qualified (libc6:i386).
var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.\-]+(:[a-z0-9\-]+)?$`)

// PackageSpec is one declared system package with an optional version
// constraint. It is comparable and used as a map key.
type PackageSpec struct {
	Name       string
	Constraint string
}

// Validate checks the package name and that the constraint parses.
func (s PackageSpec) Validate() error {
	if !packageNamePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: name=%q", ErrInvalidSpec, s.Name)
	}
	if _, err := version.ParseConstraint(s.Constraint); err != nil {
		return fmt.Errorf("%w: name=%q: %v", ErrInvalidSpec, s.Name, err)
	}
	return nil
}

// ParsedConstraint returns the version constraint. Specs coming out of Decode
// are already validated; hand-built specs may still fail here.
func (s PackageSpec) ParsedConstraint() (version.Constraint, error) {
	c, err := version.ParseConstraint(s.Constraint)
	if err != nil {
		return version.Constraint{}, fmt.Errorf("%w: name=%q: %v", ErrInvalidSpec, s.Name, err)
	}
	return c, nil
}

func (s PackageSpec) String() string {
	c := strings.TrimSpace(s.Constraint)
	if c == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, c)
}
