package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/oshokin/brewlite/internal/config"
	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/lock"
	"github.com/oshokin/brewlite/internal/logger"
	"github.com/oshokin/brewlite/internal/platform"
	"github.com/oshokin/brewlite/internal/repository/manifest"
	"github.com/oshokin/brewlite/internal/repository/receipt"
	"github.com/oshokin/brewlite/internal/service/caveats"
	"github.com/oshokin/brewlite/internal/service/fetcher"
	"github.com/oshokin/brewlite/internal/service/installer"
)

// Options are inputs accepted by the install entry point.
type Options struct {
	// ConfigPath is the optional settings file; empty means the XDG default.
	ConfigPath string
	// FormulaPath is the YAML or TOML formula to install.
	FormulaPath string
	// Arch overrides the detected architecture when set.
	Arch string
	// BinDir overrides the configured bin directory when set.
	BinDir string
	// NoProgress disables the download progress bar.
	NoProgress bool
	// Stdout receives the caveats; defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives the progress bar; defaults to os.Stderr.
	Stderr io.Writer
	// Detector replaces host detection; used by tests.
	Detector platform.Detector
	// HTTPClient replaces the download client; used by tests.
	HTTPClient *http.Client
}

// Result describes a completed install.
type Result struct {
	// Name is the formula name.
	Name string
	// Version is the installed formula version.
	Version string
	// Arch is the architecture whose variant was installed.
	Arch formula.Architecture
	// Path is the installed binary.
	Path string
	// SHA256 is the verified artifact digest.
	SHA256 string
}

// runner holds the state of a single install execution.
// Callers use Run; the runner is not reusable.
type runner struct {
	opts     *Options
	cfg      *config.Config
	detector platform.Detector
	fetcher  *fetcher.Fetcher
	receipts receipt.Repository
	stage    formula.Stage
	artifact *fetcher.Artifact
	lock     *lock.Lock
}

// Run installs the formula at opts.FormulaPath.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name and run id for tracking.
	ctx = logger.WithName(ctx, "brewlite-install")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	defer r.cleanup(ctx)

	result, err := r.run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Install failed", "stage", r.stage.String(), "error", err)

		return nil, fmt.Errorf("%s: %w", r.stage, err)
	}

	logger.InfoKV(ctx, "Install completed", "path", result.Path)

	return result, nil
}

// newRunner loads settings and applies overrides.
func newRunner(in *Options) (*runner, error) {
	opts := *in

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.BinDir != "" {
		settings.BinDir = opts.BinDir
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	r := &runner{
		opts:     &opts,
		cfg:      settings,
		detector: detectorFor(&opts),
		receipts: receipt.NewFileRepository(settings.ReceiptDir),
		stage:    formula.StageLoading,
	}

	fetchOptions := []fetcher.Option{
		fetcher.WithTimeout(settings.Timeout),
		fetcher.WithMaxSize(settings.MaxDownloadSize),
		fetcher.WithTempRoot(settings.CacheDir),
		fetcher.WithHTTPClient(opts.HTTPClient),
	}

	if settings.Progress && !opts.NoProgress && isTerminal(opts.Stderr) {
		fetchOptions = append(fetchOptions, fetcher.WithProgress(opts.Stderr))
	}

	r.fetcher = fetcher.New(fetchOptions...)

	return r, nil
}

// run walks the stages in order, stopping at the first failure.
func (r *runner) run(ctx context.Context) (*Result, error) {
	r.enter(ctx, formula.StageLoading)

	m, err := manifest.Load(r.opts.FormulaPath)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "formula", m.Name, "version", m.Version)

	host, err := r.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Detected platform", "os", host.OS, "arch", host.ArchLabel())

	if !m.SupportsOS(host.OS) {
		return nil, fmt.Errorf("%w: %s requires %v, host is %s",
			formula.ErrUnsupportedPlatform, m.Name, m.DependsOn.OS, host.OS)
	}

	r.enter(ctx, formula.StageFetching)

	variant, err := m.VariantFor(host.Arch)
	if err != nil {
		return nil, err
	}

	if err = r.acquireLock(ctx, m.Name); err != nil {
		return nil, err
	}

	r.artifact, err = r.fetcher.Fetch(ctx, m, host.Arch)
	if err != nil {
		return nil, err
	}

	r.enter(ctx, formula.StageVerifying)

	verified, err := installer.Verify(r.artifact, variant.SHA256)
	if err != nil {
		return nil, err
	}

	r.enter(ctx, formula.StageInstalling)

	destination, err := installer.New(r.cfg.BinDir).Install(ctx, verified, m.Install)
	if err != nil {
		return nil, err
	}

	r.saveReceipt(ctx, m, host.Arch, destination, verified)

	r.enter(ctx, formula.StageReporting)

	if err = caveats.Report(r.opts.Stdout, m); err != nil {
		return nil, err
	}

	r.enter(ctx, formula.StageDone)

	return &Result{
		Name:    m.Name,
		Version: m.Version,
		Arch:    host.Arch,
		Path:    destination,
		SHA256:  verified.Digest(),
	}, nil
}

// acquireLock serializes installs of the same package.
func (r *runner) acquireLock(ctx context.Context, name string) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.cfg.LockTimeout)
	defer cancel()

	logger.DebugKV(ctx, "Acquiring install lock", "path", lock.Path(r.cfg.LockDir, name))

	l, err := lock.Acquire(lockCtx, r.cfg.LockDir, name)
	if err != nil {
		return fmt.Errorf("%w: %w", formula.ErrInstall, err)
	}

	r.lock = l

	return nil
}

// saveReceipt records the install. The binary is already in place, so a
// failure here is only logged.
func (r *runner) saveReceipt(
	ctx context.Context,
	m *formula.Manifest,
	arch formula.Architecture,
	destination string,
	verified *installer.Verified,
) {
	record := &formula.Receipt{
		Name:        m.Name,
		Version:     m.Version,
		Arch:        arch,
		Path:        destination,
		SourceURL:   verified.Artifact().URL,
		SHA256:      verified.Digest(),
		InstalledAt: time.Now().UTC(),
	}

	actor, err := platform.DetectActor()
	if err != nil {
		logger.DebugKV(ctx, "Unable to detect actor", "error", err)
	} else {
		record.InstalledBy = actor
	}

	if err = r.receipts.Save(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to save install receipt", "error", err)
	}
}

func (r *runner) enter(ctx context.Context, stage formula.Stage) {
	r.stage = stage
	logger.InfoKV(ctx, "Stage", "stage", stage.String())
}

// cleanup removes the artifact and releases the lock on every path.
func (r *runner) cleanup(ctx context.Context) {
	if r.artifact != nil {
		if err := r.artifact.Cleanup(); err != nil {
			logger.WarnKV(ctx, "Unable to remove downloaded artifact", "error", err)
		}
	}

	if r.lock != nil {
		if err := r.lock.Release(); err != nil {
			logger.WarnKV(ctx, "Unable to release install lock", "error", err)
		}
	}
}

func detectorFor(opts *Options) platform.Detector {
	switch {
	case opts.Detector != nil:
		return opts.Detector
	case opts.Arch != "":
		return &platform.StaticDetector{Info: *platform.NewInfo(runtime.GOOS, opts.Arch)}
	default:
		return platform.NewDetector()
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
