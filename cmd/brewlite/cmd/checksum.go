package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/brewlite/internal/service/packager"
)

var (
	// writeChecksums saves refreshed digests into the formula.
	writeChecksums bool

	checksumCmd = &cobra.Command{
		Use:   "checksum <formula>",
		Short: "Download every variant of a formula and print its SHA-256 digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := packager.Run(cmd.Context(), &packager.Options{
				ConfigPath:  configPath,
				FormulaPath: args[0],
				Write:       writeChecksums,
				Stdout:      cmd.OutOrStdout(),
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checksumCmd.Flags().BoolVarP(&writeChecksums, "write", "w", false, "rewrite the formula with the computed digests")

	rootCmd.AddCommand(checksumCmd)
}
