package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to the provided root command.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the brewlite version together with the commit hash and build timestamp injected at build time.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
