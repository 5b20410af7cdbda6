package packager

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/oshokin/brewlite/internal/config"
	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/logger"
	"github.com/oshokin/brewlite/internal/repository/manifest"
	"github.com/oshokin/brewlite/internal/service/fetcher"
)

// Options contains inputs for the checksum entry point.
type Options struct {
	// ConfigPath is the optional settings file used for download limits.
	ConfigPath string
	// FormulaPath is the formula whose variants are hashed.
	FormulaPath string
	// Write saves refreshed digests back into the formula.
	Write bool
	// Stdout receives the digest table; defaults to os.Stdout.
	Stdout io.Writer
}

// Entry is the outcome for one variant.
type Entry struct {
	// Arch is the variant architecture.
	Arch formula.Architecture
	// URL is the downloaded address.
	URL string
	// Declared is the digest currently in the formula.
	Declared string
	// Actual is the digest of the downloaded artifact.
	Actual string
}

// Changed reports whether the formula digest is out of date.
func (e *Entry) Changed() bool {
	return !strings.EqualFold(e.Declared, e.Actual)
}

// packager hashes formula variants. Callers use Run.
type packager struct {
	opts     *Options
	manifest *formula.Manifest
	fetcher  *fetcher.Fetcher
	entries  []*Entry
}

// Run hashes every variant of the formula and optionally rewrites it.
func Run(ctx context.Context, opts *Options) ([]*Entry, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "brewlite-checksum")

	pkg, err := newPackager(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize checksum tool: %w", err)
	}

	if err = pkg.Run(ctx); err != nil {
		return nil, fmt.Errorf("checksum failed: %w", err)
	}

	return pkg.entries, nil
}

func newPackager(in *Options) (*packager, error) {
	opts := *in
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	m, err := manifest.Load(opts.FormulaPath)
	if err != nil {
		return nil, err
	}

	return &packager{
		opts:     &opts,
		manifest: m,
		fetcher: fetcher.New(
			fetcher.WithTimeout(settings.Timeout),
			fetcher.WithMaxSize(settings.MaxDownloadSize),
			fetcher.WithTempRoot(settings.CacheDir),
		),
	}, nil
}

// Run downloads the variants, prints the table and saves the formula if asked.
func (p *packager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Hashing formula variants",
		"formula", p.manifest.Name, "version", p.manifest.Version)

	if err := p.hashVariants(ctx); err != nil {
		return err
	}

	if err := p.printTable(); err != nil {
		return err
	}

	if !p.opts.Write || !p.anyChanged() {
		p.printNextSteps(ctx)
		return nil
	}

	for _, entry := range p.entries {
		variant := p.manifest.Variants[entry.Arch]
		variant.SHA256 = entry.Actual
		p.manifest.Variants[entry.Arch] = variant
	}

	logger.InfoKV(ctx, "Saving formula", "path", p.opts.FormulaPath)

	if err := manifest.Save(p.opts.FormulaPath, p.manifest); err != nil {
		return err
	}

	return nil
}

// hashVariants downloads each variant in architecture order.
func (p *packager) hashVariants(ctx context.Context) error {
	for _, arch := range p.manifest.SupportedArchitectures() {
		variant := p.manifest.Variants[arch]

		artifact, err := p.fetcher.Download(ctx, p.manifest.Name, arch, variant.URL)
		if err != nil {
			return err
		}

		p.entries = append(p.entries, &Entry{
			Arch:     arch,
			URL:      variant.URL,
			Declared: variant.SHA256,
			Actual:   artifact.SHA256,
		})

		if err = artifact.Cleanup(); err != nil {
			logger.WarnKV(ctx, "Unable to remove downloaded artifact", "error", err)
		}
	}

	return nil
}

func (p *packager) printTable() error {
	tw := tabwriter.NewWriter(p.opts.Stdout, 0, 0, 2, ' ', 0)

	for _, entry := range p.entries {
		status := "ok"
		if entry.Changed() {
			status = "changed"
		}

		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Arch, entry.Actual, status); err != nil {
			return fmt.Errorf("write digests: %w", err)
		}
	}

	return tw.Flush()
}

func (p *packager) anyChanged() bool {
	for _, entry := range p.entries {
		if entry.Changed() {
			return true
		}
	}

	return false
}

// printNextSteps logs guidance when the formula was not rewritten.
func (p *packager) printNextSteps(ctx context.Context) {
	if !p.anyChanged() {
		logger.Info(ctx, "All declared checksums match the published artifacts")
		return
	}

	var builder strings.Builder

	builder.WriteString("The following variants have new checksums:\n")

	for _, entry := range p.entries {
		if !entry.Changed() {
			continue
		}

		builder.WriteString(entry.Arch.String())
		builder.WriteString(": ")
		builder.WriteString(entry.URL)
		builder.WriteString("\n")
	}

	builder.WriteString("Run the command again with --write to update ")
	builder.WriteString(p.opts.FormulaPath)

	logger.Info(ctx, builder.String())
}
