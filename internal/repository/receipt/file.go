package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

const (
	receiptDirPermissions  = 0o755
	receiptFilePermissions = 0o644
	receiptFileSuffix      = ".json"
)

// Repository defines persistence operations for install receipts.
type Repository interface {
	Load(ctx context.Context, name string) (*formula.Receipt, error)
	Save(ctx context.Context, receipt *formula.Receipt) error
}

// FileRepository persists receipts as JSON files in a directory.
type FileRepository struct {
	// dir is the directory holding one file per formula.
	dir string
	// mu protects concurrent access to the receipt files.
	mu sync.Mutex
}

// ErrNotFound is returned when no receipt exists for a formula.
var ErrNotFound = errors.New("receipt not found")

// NewFileRepository creates a repository that reads/writes JSON in dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// Path returns the receipt file for name.
func (r *FileRepository) Path(name string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_").Replace(name)

	return filepath.Join(r.dir, safe+receiptFileSuffix)
}

// Load reads the receipt for name.
func (r *FileRepository) Load(_ context.Context, name string) (*formula.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var receipt formula.Receipt
	if err = json.Unmarshal(contents, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	return &receipt, nil
}

// Save writes the receipt through a temporary file and a rename, so readers
// never observe a partial document.
func (r *FileRepository) Save(_ context.Context, receipt *formula.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.MkdirAll(r.dir, receiptDirPermissions); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}

	path := r.Path(receipt.Name)

	temp, err := os.CreateTemp(r.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create receipt file: %w", err)
	}

	defer func() {
		_ = os.Remove(temp.Name())
	}()

	_, err = temp.Write(append(data, '\n'))
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write receipt file: %w", err)
	}

	if err = os.Chmod(temp.Name(), receiptFilePermissions); err != nil {
		return fmt.Errorf("chmod receipt file: %w", err)
	}

	if err = os.Rename(temp.Name(), path); err != nil {
		return fmt.Errorf("rename receipt file: %w", err)
	}

	return nil
}
