package receipt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing receipt.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "receipts"))
	r, err := repo.Load(context.Background(), "dts-legacy")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal receipt.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "receipts")
	repo := NewFileRepository(dir)

	want := &formula.Receipt{
		Name:        "dts-legacy",
		Version:     "0.18.0",
		Arch:        formula.ArchARM64,
		Path:        "/usr/local/bin/dts-legacy",
		SourceURL:   "https://example.com/dts_darwin_arm64.tar.gz",
		SHA256:      "ec2988663d99702ca373926c1e186f3d5f0f9935d3db9978274998f3b0cfed73",
		InstalledAt: time.Now().UTC().Truncate(time.Second),
		InstalledBy: &formula.Actor{Hostname: "build-host", Username: "builder"},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background(), "dts-legacy")
	require.NoError(t, err)
	require.Equal(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dts-legacy.json", entries[0].Name())

	// Overwriting keeps a single file.
	want.Version = "0.18.1"
	require.NoError(t, repo.Save(context.Background(), want))

	got, err = repo.Load(context.Background(), "dts-legacy")
	require.NoError(t, err)
	require.Equal(t, "0.18.1", got.Version)
}

// TestFileRepository_Corrupt reports undecodable receipts.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())
	require.NoError(t, os.WriteFile(repo.Path("x"), []byte("{"), 0o600))

	_, err := repo.Load(context.Background(), "x")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestFileRepository_PathSanitizes(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository("/var/receipts")
	require.Equal(t, filepath.Join("/var/receipts", "a_b.json"), repo.Path("a/b"))
}
