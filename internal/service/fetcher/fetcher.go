package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/logger"
	"github.com/oshokin/brewlite/internal/version"
)

const (
	// DefaultTimeout bounds a download when none is configured.
	DefaultTimeout = 5 * time.Minute

	// maxRedirects matches the limit release hosts need (GitHub uses two hops).
	maxRedirects = 10

	tempDirPermissions = 0o700
	artifactFileMode   = 0o600
	progressBarWidth   = 40
	progressThrottle   = 100 * time.Millisecond
)

var (
	errBadHTTPStatus   = errors.New("unexpected http status")
	errTooLarge        = errors.New("artifact exceeds maximum download size")
	errTooManyRedirect = errors.New("too many redirects")
)

// Fetcher downloads formula artifacts over HTTP(S).
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxSize   int64
	tempRoot  string
	progress  io.Writer
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each download.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithMaxSize rejects artifacts larger than limit bytes; zero disables the limit.
func WithMaxSize(limit int64) Option {
	return func(f *Fetcher) {
		if limit >= 0 {
			f.maxSize = limit
		}
	}
}

// WithTempRoot sets where per-download temporary directories are created.
func WithTempRoot(dir string) Option {
	return func(f *Fetcher) {
		f.tempRoot = dir
	}
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) {
		f.progress = w
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirect
				}

				return nil
			},
		},
		timeout:   DefaultTimeout,
		userAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the variant of m matching arch. A missing variant fails
// with formula.ErrUnsupportedArchitecture before any network activity.
func (f *Fetcher) Fetch(ctx context.Context, m *formula.Manifest, arch formula.Architecture) (*Artifact, error) {
	variant, err := m.VariantFor(arch)
	if err != nil {
		return nil, err
	}

	return f.Download(ctx, m.Name, arch, variant.URL)
}

// Download fetches rawURL into a fresh temporary directory. Failures are
// reported as formula.ErrFetch naming the URL.
func (f *Fetcher) Download(
	ctx context.Context,
	name string,
	arch formula.Architecture,
	rawURL string,
) (*Artifact, error) {
	dir, err := f.makeTempDir(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", formula.ErrFetch, rawURL, err)
	}

	artifact := &Artifact{
		Arch: arch,
		URL:  rawURL,
		dir:  dir,
	}

	if err = f.download(ctx, artifact); err != nil {
		_ = artifact.Cleanup()

		return nil, fmt.Errorf("%w: %s: %w", formula.ErrFetch, rawURL, err)
	}

	logger.DebugKV(ctx, "Artifact downloaded",
		"url", rawURL, "path", artifact.Path, "size", artifact.Size, "sha256", artifact.SHA256)

	return artifact, nil
}

func (f *Fetcher) makeTempDir(name string) (string, error) {
	root := f.tempRoot
	if root != "" {
		if err := os.MkdirAll(root, tempDirPermissions); err != nil {
			return "", fmt.Errorf("create temp root: %w", err)
		}
	}

	pattern := "brewlite-" + strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == '*' {
			return '_'
		}

		return r
	}, name) + "-"

	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	return dir, nil
}

// download performs a single GET into artifact.dir.
func (f *Fetcher) download(ctx context.Context, artifact *Artifact) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %w", resp.Status, errBadHTTPStatus)
	}

	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return fmt.Errorf("%d bytes announced, limit %d: %w", resp.ContentLength, f.maxSize, errTooLarge)
	}

	artifact.Path = filepath.Join(artifact.dir, artifactFileName(resp.Request.URL.Path))

	file, err := os.OpenFile(artifact.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, artifactFileMode)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}

	hasher := sha256.New()
	writers := []io.Writer{file, hasher}

	bar := f.newProgressBar(resp.ContentLength, filepath.Base(artifact.Path))
	if bar != nil {
		writers = append(writers, bar)
	}

	var body io.Reader = resp.Body
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}

	written, err := io.Copy(io.MultiWriter(writers...), body)
	if bar != nil {
		_ = bar.Finish()
	}

	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close artifact file: %w", closeErr)
	}

	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if f.maxSize > 0 && written > f.maxSize {
		return fmt.Errorf("limit %d: %w", f.maxSize, errTooLarge)
	}

	artifact.Size = written
	artifact.SHA256 = hex.EncodeToString(hasher.Sum(nil))

	return nil
}

func (f *Fetcher) newProgressBar(total int64, description string) *progressbar.ProgressBar {
	if f.progress == nil || total <= 0 {
		return nil
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(f.progress),
		progressbar.OptionSetDescription("downloading "+description),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionClearOnFinish(),
	)
}

// artifactFileName derives a local name from the final request path.
func artifactFileName(urlPath string) string {
	name := path.Base(urlPath)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "artifact"
	}

	return name
}
