package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/brewlite/internal/config"
	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/logger"
	"github.com/oshokin/brewlite/internal/platform"
	"github.com/oshokin/brewlite/internal/repository/manifest"
	"github.com/oshokin/brewlite/internal/repository/receipt"
)

var (
	// infoArch overrides the detected architecture.
	infoArch string

	infoCmd = &cobra.Command{
		Use:   "info <formula>",
		Short: "Validate a formula and show what it would install on this host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			var detector platform.Detector = platform.NewDetector()
			if infoArch != "" {
				detector = &platform.StaticDetector{Info: *platform.NewInfo(runtime.GOOS, infoArch)}
			}

			host, err := detector.Detect(cmd.Context())
			if err != nil {
				return err
			}

			return printInfo(cmd.OutOrStdout(), m, host, loadReceipt(cmd.Context(), m.Name))
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	infoCmd.Flags().StringVar(&infoArch, "arch", "", "architecture to evaluate instead of the detected one")

	rootCmd.AddCommand(infoCmd)
}

// loadReceipt returns the install receipt for name, or nil when the formula
// was never installed or settings are unusable.
func loadReceipt(ctx context.Context, name string) *formula.Receipt {
	settings, err := config.Load(configPath)
	if err != nil {
		logger.DebugKV(ctx, "Settings unavailable, skipping receipt", "error", err)
		return nil
	}

	record, err := receipt.NewFileRepository(settings.ReceiptDir).Load(ctx, name)
	if err != nil {
		if !errors.Is(err, receipt.ErrNotFound) {
			logger.WarnKV(ctx, "Unable to read install receipt", "error", err)
		}

		return nil
	}

	return record
}

func printInfo(w io.Writer, m *formula.Manifest, host *platform.Info, record *formula.Receipt) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", m.Name, m.Version)

	if m.Desc != "" {
		fmt.Fprintln(&b, m.Desc)
	}

	if m.Homepage != "" {
		fmt.Fprintln(&b, m.Homepage)
	}

	fmt.Fprintf(&b, "installs: %s (from %s)\n", m.Install.Target, m.Install.Source)

	if len(m.DependsOn.OS) > 0 {
		fmt.Fprintf(&b, "requires: %s\n", strings.Join(m.DependsOn.OS, ", "))
	}

	for _, arch := range m.SupportedArchitectures() {
		fmt.Fprintf(&b, "%s: %s\n", arch, m.Variants[arch].URL)
	}

	status := "supported"

	if _, err := m.VariantFor(host.Arch); err != nil {
		status = "no variant"
	} else if !m.SupportsOS(host.OS) {
		status = "unsupported os"
	}

	fmt.Fprintf(&b, "host: %s/%s (%s)\n", host.OS, host.ArchLabel(), status)

	if record == nil {
		fmt.Fprintln(&b, "installed: no")
	} else {
		fmt.Fprintf(&b, "installed: %s %s at %s on %s\n",
			record.Version, record.Arch, record.Path, record.InstalledAt.Format(time.RFC3339))
	}

	_, err := io.WriteString(w, b.String())

	return err
}
