package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Zero values pick up defaults.
	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultLockTimeout, settings.LockTimeout)
	require.Equal(t, DefaultMaxDownloadSize, settings.MaxDownloadSize)
	require.Equal(t, DefaultLogLevel, settings.LogLevel)
	require.True(t, filepath.IsAbs(settings.BinDir))
	require.True(t, filepath.IsAbs(settings.ReceiptDir))

	// Relative directories are rejected.
	settings = &Config{BinDir: "bin"}
	require.ErrorIs(t, Validate(settings), errRelativeDir)

	// Negative limits are rejected.
	settings = &Config{Timeout: -time.Second}
	require.ErrorIs(t, Validate(settings), errNegativeLimit)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "settings.yaml")

	settings := &Config{
		BinDir:          filepath.Join(dir, "bin"),
		CacheDir:        filepath.Join(dir, "cache"),
		LockDir:         filepath.Join(dir, "locks"),
		ReceiptDir:      filepath.Join(dir, "receipts"),
		Timeout:         30 * time.Second,
		LockTimeout:     time.Second,
		MaxDownloadSize: 1024,
		LogLevel:        "debug",
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_PartialFile keeps defaults for keys the file does not set.
func TestLoad_PartialFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	binDir := filepath.Join(dir, "bin")

	require.NoError(t, os.WriteFile(path, []byte("bin_dir: "+binDir+"\ntimeout: 10s\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, binDir, loaded.BinDir)
	require.Equal(t, 10*time.Second, loaded.Timeout)
	require.Equal(t, DefaultMaxDownloadSize, loaded.MaxDownloadSize)
	require.True(t, loaded.Progress)
}

// TestLoad_ExplicitMissingFile fails when a named settings file does not exist.
func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
