package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/brewlite/internal/service/install"
)

var (
	// installOptions collects the flags of the install command.
	installOptions install.Options

	installCmd = &cobra.Command{
		Use:   "install <formula>",
		Short: "Download, verify and install the binary described by a formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := installOptions
			options.ConfigPath = configPath
			options.FormulaPath = args[0]
			options.Stdout = cmd.OutOrStdout()
			options.Stderr = cmd.ErrOrStderr()

			_, err := install.Run(cmd.Context(), &options)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVar(&installOptions.BinDir, "bin-dir", "", "directory to install into (overrides settings)")
	installCmd.Flags().StringVar(&installOptions.Arch, "arch", "", "architecture to install instead of the detected one")
	installCmd.Flags().BoolVar(&installOptions.NoProgress, "no-progress", false, "disable the download progress bar")

	rootCmd.AddCommand(installCmd)
}
