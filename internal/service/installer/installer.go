package installer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/brewlite/internal/domain/formula"
	"github.com/oshokin/brewlite/internal/logger"
)

const (
	// BinaryMode is the permission of installed binaries.
	BinaryMode os.FileMode = 0o755

	binDirMode os.FileMode = 0o755
)

var (
	errUnsupportedAction = errors.New("unsupported install action")
	errTargetIsDir       = errors.New("destination is a directory")
)

// Installer places verified binaries into a bin directory.
type Installer struct {
	binDir string
}

// New creates an Installer writing into binDir.
func New(binDir string) *Installer {
	return &Installer{binDir: binDir}
}

// BinDir returns the destination directory.
func (i *Installer) BinDir() string {
	return i.binDir
}

// Install extracts action.Source from the verified artifact and writes it
// to BinDir/action.Target with mode 0755. It returns the destination path.
// Any failure is reported as formula.ErrInstall and leaves the previous
// destination, if any, untouched.
func (i *Installer) Install(ctx context.Context, verified *Verified, action formula.InstallAction) (string, error) {
	if action.Type != formula.ActionCopyRename {
		return "", fmt.Errorf("%w: %q: %w", formula.ErrInstall, action.Type, errUnsupportedAction)
	}

	destination := filepath.Join(i.binDir, action.Target)

	data, kind, err := ExtractMember(verified.Artifact().Path, action.Source)
	if err != nil {
		return "", fmt.Errorf("%w: extract %s: %w", formula.ErrInstall, action.Source, err)
	}

	logger.DebugKV(ctx, "Extracted binary",
		"format", kind.String(), "member", action.Source, "size", len(data))

	if err = os.MkdirAll(i.binDir, binDirMode); err != nil {
		return "", fmt.Errorf("%w: create bin dir %s: %w", formula.ErrInstall, i.binDir, err)
	}

	if err = i.place(ctx, destination, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", formula.ErrInstall, destination, err)
	}

	return destination, nil
}

func (i *Installer) place(ctx context.Context, destination string, data []byte) error {
	sum := sha256.Sum256(data)

	options := &goupdate.Options{
		TargetPath: destination,
		TargetMode: BinaryMode,
		Checksum:   sum[:],
		Hash:       crypto.SHA256,
	}

	if err := options.CheckPermissions(); err != nil {
		return fmt.Errorf("bin dir not writable: %w", err)
	}

	info, err := os.Lstat(destination)

	switch {
	case err == nil && info.IsDir():
		return errTargetIsDir
	case err == nil:
		logger.DebugKV(ctx, "Replacing existing binary", "path", destination)

		// Windows cannot rename over an existing file.
		if runtime.GOOS == "windows" {
			return replace(destination, data, options)
		}

		return writeAtomic(destination, data)
	case errors.Is(err, os.ErrNotExist):
		return writeAtomic(destination, data)
	default:
		return fmt.Errorf("stat destination: %w", err)
	}
}

// replace swaps an existing binary using go-update's rename and rollback
// sequence, for platforms where a rename cannot overwrite the destination.
func replace(destination string, data []byte, options *goupdate.Options) error {
	if err := goupdate.Apply(bytes.NewReader(data), *options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			return fmt.Errorf("replace binary: %w (rollback failed: %w)", err, rollbackErr)
		}

		return fmt.Errorf("replace binary: %w", err)
	}

	oldFile := filepath.Join(filepath.Dir(destination), "."+filepath.Base(destination)+".old")
	if _, err := os.Stat(oldFile); err == nil {
		_ = os.Remove(oldFile)
	}

	return nil
}

// writeAtomic writes a binary through a hidden temporary file in the
// destination directory and renames it into place. The rename replaces an
// existing destination in one step, so the path never goes missing.
func writeAtomic(destination string, data []byte) error {
	dir := filepath.Dir(destination)

	temp, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempPath := temp.Name()
	committed := false

	defer func() {
		if !committed {
			_ = temp.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err = temp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err = temp.Chmod(BinaryMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err = temp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err = temp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tempPath, destination); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	committed = true

	return nil
}
