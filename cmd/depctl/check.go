package main

import (
	"fmt"

	"github.com/danmuck/depctl/internal/provision"
	"github.com/spf13/cobra"
)

func newCheckCommand(opts *RootOptions, deps runtimeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which packages are missing without installing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, specs, err := loadInputs(opts)
			if err != nil {
				return fatal(err)
			}
			db := deps.openDatabase(cfg)
			defer closeDatabase(db)

			p, err := provision.New(provision.Config{Database: db})
			if err != nil {
				return fatal(err)
			}

			result := p.Check(cmd.Context(), specs)
			out := cmd.OutOrStdout()
			if result.OK() {
				fmt.Fprintln(out, SuccessStyle.Render("all packages satisfied"))
			} else {
				fmt.Fprintln(out, WarningStyle.Render("host is out of date"))
			}
			if err := result.WriteSummary(out); err != nil {
				return fatal(err)
			}
			if !result.OK() {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}
