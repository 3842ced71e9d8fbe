package main

import (
	"github.com/danmuck/depctl/internal/manifest"
	"github.com/spf13/cobra"
)

func newManifestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the effective package manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, specs, err := loadInputs(opts)
			if err != nil {
				return fatal(err)
			}
			if err := manifest.Encode(cmd.OutOrStdout(), specs); err != nil {
				return fatal(err)
			}
			return nil
		},
	}
}
