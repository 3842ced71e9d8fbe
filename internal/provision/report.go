package provision

import (
	"fmt"
	"io"

	"github.com/danmuck/depctl/internal/manifest"
)

// Outcome is the report bucket a package ended up in.
type Outcome string

const (
	OutcomeInstalled      Outcome = "installed"
	OutcomeAlreadyPresent Outcome = "already_present"
	OutcomeFailed         Outcome = "failed"
)

// Failure records why one package could not be provisioned.
type Failure struct {
	Spec manifest.PackageSpec
	Kind Kind
	Err  error
}

func (f Failure) Reason() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Err.Error()
}

// Report is the result of one provisioning run. Every input spec lands in
// exactly one bucket; buckets keep input order. Failed is the spec -> reason
// mapping.
type Report struct {
	RunID          string
	Installed      []manifest.PackageSpec
	AlreadyPresent []manifest.PackageSpec
	Failed         []Failure
}

// OK reports whether no package failed.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Total is the number of distinct specs the run classified.
func (r *Report) Total() int {
	return len(r.Installed) + len(r.AlreadyPresent) + len(r.Failed)
}

// Outcome returns the bucket spec landed in.
func (r *Report) Outcome(spec manifest.PackageSpec) (Outcome, bool) {
	for _, s := range r.Installed {
		if s == spec {
			return OutcomeInstalled, true
		}
	}
	for _, s := range r.AlreadyPresent {
		if s == spec {
			return OutcomeAlreadyPresent, true
		}
	}
	if _, ok := r.FailureFor(spec); ok {
		return OutcomeFailed, true
	}
	return "", false
}

// FailureFor looks up the failure recorded for spec.
func (r *Report) FailureFor(spec manifest.PackageSpec) (Failure, bool) {
	for _, f := range r.Failed {
		if f.Spec == spec {
			return f, true
		}
	}
	return Failure{}, false
}

// WriteSummary prints bucket counts followed by each failed package.
func (r *Report) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "installed:       %d\n", len(r.Installed)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "already present: %d\n", len(r.AlreadyPresent)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "failed:          %d\n", len(r.Failed)); err != nil {
		return err
	}
	return writeFailures(w, r.Failed)
}

// Missing is a package that is absent or installed at a version the
// constraint rejects. Installed is empty when absent.
type Missing struct {
	Spec      manifest.PackageSpec
	Installed string
}

// CheckResult is the read-only counterpart of Report.
type CheckResult struct {
	Satisfied []manifest.PackageSpec
	Missing   []Missing
	Failed    []Failure
}

// OK reports whether every package is satisfied.
func (c *CheckResult) OK() bool {
	return len(c.Missing) == 0 && len(c.Failed) == 0
}

func (c *CheckResult) WriteSummary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "satisfied: %d\n", len(c.Satisfied)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "missing:   %d\n", len(c.Missing)); err != nil {
		return err
	}
	for _, m := range c.Missing {
		installed := "not installed"
		if m.Installed != "" {
			installed = "installed " + m.Installed
		}
		if _, err := fmt.Fprintf(w, "  - %s: %s\n", m.Spec, installed); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "errors:    %d\n", len(c.Failed)); err != nil {
		return err
	}
	return writeFailures(w, c.Failed)
}

func writeFailures(w io.Writer, failures []Failure) error {
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  - %s [%s]: %s\n", f.Spec, f.Kind, f.Reason()); err != nil {
			return err
		}
	}
	return nil
}
