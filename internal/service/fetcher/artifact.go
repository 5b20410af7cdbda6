package fetcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// Artifact is a downloaded file waiting for verification and install.
type Artifact struct {
	// Arch is the architecture whose variant was fetched.
	Arch formula.Architecture
	// URL is the address the artifact was requested from.
	URL string
	// Path is the local file holding the artifact body.
	Path string
	// Size is the number of bytes received.
	Size int64
	// SHA256 is the lowercase hex digest of the body.
	SHA256 string

	// dir is the temporary directory owning Path.
	dir string
}

// Open opens the artifact body for reading.
func (a *Artifact) Open() (*os.File, error) {
	return os.Open(filepath.Clean(a.Path))
}

// Cleanup removes the temporary directory. It is safe to call more than once.
func (a *Artifact) Cleanup() error {
	if a == nil || a.dir == "" {
		return nil
	}

	dir := a.dir
	a.dir = ""

	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact dir: %w", err)
	}

	return nil
}
