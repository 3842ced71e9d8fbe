package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/depctl/internal/manifest"
	"github.com/danmuck/depctl/internal/pkgdb"
	"github.com/danmuck/depctl/internal/version"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Observer receives one call per classified package.
type Observer interface {
	ObservePackage(spec manifest.PackageSpec, outcome Outcome, kind Kind, elapsed time.Duration)
}

// Config wires a Provisioner.
type Config struct {
	Database pkgdb.Database
	Retry    RetryConfig
	Observer Observer
	// Sleep waits between retries; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Provisioner installs missing packages one at a time. It holds no lock of
// its own; callers serialize runs per host.
type Provisioner struct {
	db       pkgdb.Database
	retry    RetryConfig
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	logger   zerolog.Logger
}

func New(cfg Config) (*Provisioner, error) {
	if cfg.Database == nil {
		return nil, ErrNoDatabase
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry.Attempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Provisioner{
		db:       cfg.Database,
		retry:    cfg.Retry,
		observer: cfg.Observer,
		sleep:    sleep,
		logger:   logger,
	}, nil
}

// Run provisions specs in order and returns a fresh report. Per-package
// problems are recorded, never returned. Once ctx is done, specs not yet
// started are recorded as failed; an install already running is allowed to
// finish.
func (p *Provisioner) Run(ctx context.Context, specs []manifest.PackageSpec) *Report {
	report := &Report{
		RunID:          uuid.NewString(),
		Installed:      []manifest.PackageSpec{},
		AlreadyPresent: []manifest.PackageSpec{},
		Failed:         []Failure{},
	}
	logger := p.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Int("packages", len(specs)).Msg("provision.Run start")

	seen := make(map[manifest.PackageSpec]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec]; dup {
			logger.Debug().Str("package", spec.String()).Msg("provision.Run skip duplicate")
			continue
		}
		seen[spec] = struct{}{}

		start := time.Now()
		var outcome Outcome
		var failure Failure
		if err := ctx.Err(); err != nil {
			outcome = OutcomeFailed
			failure = Failure{Spec: spec, Kind: KindInstallFailed, Err: fmt.Errorf("%w: %w", ErrNotAttempted, err)}
		} else {
			outcome, failure = p.provisionOne(ctx, logger, spec)
		}

		switch outcome {
		case OutcomeInstalled:
			report.Installed = append(report.Installed, spec)
			logger.Info().Str("package", spec.String()).Msg("provision.Run installed")
		case OutcomeAlreadyPresent:
			report.AlreadyPresent = append(report.AlreadyPresent, spec)
			logger.Debug().Str("package", spec.String()).Err(failure.Err).Msg("provision.Run already present")
		default:
			report.Failed = append(report.Failed, failure)
			logger.Error().
				Str("package", spec.String()).
				Str("kind", string(failure.Kind)).
				Err(failure.Err).
				Msg("provision.Run failed")
		}
		if p.observer != nil {
			p.observer.ObservePackage(spec, outcome, failure.Kind, time.Since(start))
		}
	}

	logger.Info().
		Int("installed", len(report.Installed)).
		Int("already_present", len(report.AlreadyPresent)).
		Int("failed", len(report.Failed)).
		Msg("provision.Run done")
	return report
}

// Check classifies specs without installing anything.
func (p *Provisioner) Check(ctx context.Context, specs []manifest.PackageSpec) *CheckResult {
	result := &CheckResult{
		Satisfied: []manifest.PackageSpec{},
		Missing:   []Missing{},
		Failed:    []Failure{},
	}
	seen := make(map[manifest.PackageSpec]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec]; dup {
			continue
		}
		seen[spec] = struct{}{}

		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, Failure{Spec: spec, Kind: KindInstallFailed, Err: fmt.Errorf("%w: %w", ErrNotAttempted, err)})
			continue
		}
		constraint, err := spec.ParsedConstraint()
		if err != nil {
			result.Failed = append(result.Failed, Failure{Spec: spec, Kind: KindInstallFailed, Err: err})
			continue
		}
		installedVer, satisfied, err := p.satisfied(ctx, spec, constraint)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, Failure{Spec: spec, Kind: classify(err), Err: err})
		case satisfied:
			result.Satisfied = append(result.Satisfied, spec)
		default:
			result.Missing = append(result.Missing, Missing{Spec: spec, Installed: installedVer})
		}
	}
	return result
}

func (p *Provisioner) provisionOne(ctx context.Context, logger zerolog.Logger, spec manifest.PackageSpec) (Outcome, Failure) {
	fail := func(err error) (Outcome, Failure) {
		return OutcomeFailed, Failure{Spec: spec, Kind: classify(err), Err: err}
	}

	constraint, err := spec.ParsedConstraint()
	if err != nil {
		return fail(err)
	}

	installedVer, ok, err := p.satisfied(ctx, spec, constraint)
	if err != nil {
		return fail(err)
	}
	if ok {
		note := fmt.Errorf("%w: %s %s", ErrAlreadySatisfied, spec.Name, installedVer)
		return OutcomeAlreadyPresent, Failure{Spec: spec, Kind: KindAlreadySatisfied, Err: note}
	}
	logger.Debug().
		Str("package", spec.String()).
		Str("installed_version", installedVer).
		Msg("provision.Run needs install")

	if err := p.installWithRetry(ctx, logger, spec); err != nil {
		return fail(err)
	}

	// apt-get exits 0 when the only candidate is older than the constraint.
	installedVer, ok, err = p.satisfied(ctx, spec, constraint)
	if err != nil {
		return fail(err)
	}
	if !ok {
		if installedVer == "" {
			return fail(fmt.Errorf("%w: %s not installed after install", ErrUnsatisfiedAfterInstall, spec.Name))
		}
		return fail(fmt.Errorf("%w: %s installed %s, want %s", ErrUnsatisfiedAfterInstall, spec.Name, installedVer, constraint))
	}
	return OutcomeInstalled, Failure{}
}

// satisfied queries spec.Name and returns the installed version (if any) and
// whether it meets constraint.
func (p *Provisioner) satisfied(ctx context.Context, spec manifest.PackageSpec, constraint version.Constraint) (string, bool, error) {
	ver, installed, err := p.db.Query(ctx, spec.Name)
	if err != nil {
		return "", false, fmt.Errorf("query %s: %w", spec.Name, err)
	}
	if !installed {
		return "", false, nil
	}
	ok, err := constraint.AllowsString(ver)
	if err != nil {
		return ver, false, fmt.Errorf("query %s: installed version %q: %w", spec.Name, ver, err)
	}
	return ver, ok, nil
}

func (p *Provisioner) installWithRetry(ctx context.Context, logger zerolog.Logger, spec manifest.PackageSpec) error {
	for attempt := 1; ; attempt++ {
		err := p.db.Install(ctx, spec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pkgdb.ErrLocked) || attempt >= p.retry.Attempts {
			return err
		}
		delay := NextBackoffDelay(p.retry, attempt, nil)
		logger.Warn().
			Str("package", spec.Name).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("provision.Run package manager locked")
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%w (retry abandoned: %v)", err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
