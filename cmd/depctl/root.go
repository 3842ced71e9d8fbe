package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/depctl/internal/hostlock"
	"github.com/danmuck/depctl/internal/logging"
	"github.com/danmuck/depctl/internal/manifest"
	"github.com/danmuck/depctl/internal/observability"
	"github.com/danmuck/depctl/internal/pkgdb"
	"github.com/danmuck/depctl/internal/provision"
	"github.com/danmuck/depctl/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set via -ldflags.
	Version = "dev"

	ErrNotRoot = errors.New("depctl: provisioning the local host requires root")
)

// RootOptions holds global flags.
type RootOptions struct {
	ConfigPath   string
	ManifestPath string
	Verbose      bool
}

// runtimeDeps are the host touch points tests replace.
type runtimeDeps struct {
	geteuid      func() int
	openDatabase func(Config) pkgdb.Database
	now          func() time.Time
}

func defaultDeps() runtimeDeps {
	return runtimeDeps{
		geteuid:      os.Geteuid,
		openDatabase: openAptDatabase,
		now:          time.Now,
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	code := exitCode(err)
	var exitErr *ExitError
	if err != nil && (!errors.As(err, &exitErr) || exitErr.Err != nil) {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("depctl: ")+err.Error())
	}
	return code
}

// NewRootCommand creates the depctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(deps runtimeDeps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "depctl",
		Short: "Install the system packages the player needs",
		Long: TitleStyle.Render("depctl") + ` installs the missing system packages from a declared manifest.

Run with no arguments as root to provision this host from the built-in
manifest. Packages already installed at a compatible version are left alone;
a package that fails to install does not stop the rest.

Exit status is 0 when every package is installed or already present, 1 when
any package failed, and 2 when the run could not start.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetVerbose(opts.Verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, opts, deps)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+DefaultConfigPath+" when present)")
	cmd.PersistentFlags().StringVar(&opts.ManifestPath, "manifest", "", "package manifest file (default: built-in manifest)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newCheckCommand(opts, deps))
	cmd.AddCommand(newManifestCommand(opts))

	return cmd
}

func runProvision(cmd *cobra.Command, opts *RootOptions, deps runtimeDeps) error {
	cfg, specs, err := loadInputs(opts)
	if err != nil {
		return fatal(err)
	}
	if !cfg.Target.Remote() && deps.geteuid() != 0 {
		return fatal(ErrNotRoot)
	}

	db := deps.openDatabase(cfg)
	defer closeDatabase(db)

	metrics := observability.NewMetrics()
	p, err := provision.New(provision.Config{
		Database: db,
		Retry:    cfg.Retry,
		Observer: metrics,
	})
	if err != nil {
		return fatal(err)
	}

	var report *provision.Report
	start := deps.now()
	err = hostlock.With(cfg.LockPath, func() error {
		report = p.Run(cmd.Context(), specs)
		return nil
	})
	if err != nil {
		return fatal(err)
	}
	finished := deps.now()
	metrics.ObserveRun(report, finished, finished.Sub(start))
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("depctl metrics textfile write failed")
		}
	}

	out := cmd.OutOrStdout()
	if report.OK() {
		fmt.Fprintln(out, SuccessStyle.Render("provisioning complete"))
	} else {
		fmt.Fprintln(out, ErrorStyle.Render(fmt.Sprintf("provisioning finished with %d failed package(s)", len(report.Failed))))
	}
	if err := report.WriteSummary(out); err != nil {
		return fatal(err)
	}
	if !report.OK() {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// loadInputs resolves the config and the package list. Either failing is fatal.
func loadInputs(opts *RootOptions) (Config, []manifest.PackageSpec, error) {
	cfg, err := resolveConfig(opts.ConfigPath)
	if err != nil {
		return Config{}, nil, err
	}
	if opts.ManifestPath != "" {
		cfg.ManifestPath = opts.ManifestPath
	}
	specs, err := loadSpecs(cfg.ManifestPath)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, specs, nil
}

func loadSpecs(path string) ([]manifest.PackageSpec, error) {
	if path == "" {
		return manifest.Default()
	}
	return manifest.LoadFile(path)
}

// openAptDatabase builds the apt backend for the configured target.
func openAptDatabase(cfg Config) pkgdb.Database {
	var runner tools.CommandRunner = tools.ExecRunner{}
	if cfg.Target.Remote() {
		runner = tools.NewSSHRunner(sshConfig(cfg.Target))
	}
	if cfg.Target.Sudo {
		runner = tools.SudoRunner{Inner: runner}
	}
	return pkgdb.NewApt(pkgdb.AptConfig{
		Runner:      runner,
		UpdateIndex: cfg.UpdateIndex,
	})
}

func sshConfig(target TargetConfig) tools.SSHConfig {
	cfg := tools.SSHConfig{
		Host:                        target.Host,
		Port:                        target.Port,
		User:                        target.User,
		KeyPath:                     target.KeyPath,
		KnownHostsPath:              target.KnownHosts,
		InsecureSkipHostKeyChecking: target.InsecureSkipHostKey,
		Timeout:                     target.Timeout,
	}
	if target.KeyPassphraseEnv != "" {
		if passphrase := os.Getenv(target.KeyPassphraseEnv); passphrase != "" {
			cfg.Passphrase = []byte(passphrase)
		}
	}
	return cfg
}

// closeDatabase drops a backend's target connection once a command is done.
func closeDatabase(db pkgdb.Database) {
	c, ok := db.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("depctl close package database")
	}
}
