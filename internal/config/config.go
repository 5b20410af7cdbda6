package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every brewlite command.
type Config struct {
	// BinDir is where installed binaries are placed.
	BinDir string `yaml:"bin_dir"`
	// CacheDir holds the transient download directories.
	CacheDir string `yaml:"cache_dir"`
	// LockDir holds the per-package install locks.
	LockDir string `yaml:"lock_dir"`
	// ReceiptDir holds one install receipt per installed formula.
	ReceiptDir string `yaml:"receipt_dir"`
	// Timeout bounds a single artifact download.
	Timeout time.Duration `yaml:"timeout"`
	// LockTimeout bounds the wait for a concurrent install of the same package.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// MaxDownloadSize is the largest artifact accepted, in bytes.
	MaxDownloadSize int64 `yaml:"max_download_size"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Progress enables the download progress bar.
	Progress bool `yaml:"progress"`
}

const (
	// AppName names the XDG subdirectories.
	AppName = "brewlite"

	// DefaultConfigFilename is the settings file name inside the XDG config directory.
	DefaultConfigFilename = "settings.yaml"

	// DefaultTimeout bounds a single download.
	DefaultTimeout = 5 * time.Minute

	// DefaultLockTimeout bounds the wait for a concurrent install.
	DefaultLockTimeout = 2 * time.Minute

	// DefaultMaxDownloadSize caps an artifact at 512 MiB.
	DefaultMaxDownloadSize int64 = 512 << 20

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission for the settings file.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRelativeDir is returned for directories that are not absolute.
	errRelativeDir = errors.New("directory must be an absolute path")
	// errNegativeLimit is returned for negative sizes and durations.
	errNegativeLimit = errors.New("limit must not be negative")
)

// DefaultPath returns the settings file location inside the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFilename)
}

// Default returns settings built from XDG base directories.
func Default() *Config {
	return &Config{
		BinDir:          xdg.BinHome,
		CacheDir:        filepath.Join(xdg.CacheHome, AppName),
		LockDir:         filepath.Join(xdg.StateHome, AppName, "locks"),
		ReceiptDir:      filepath.Join(xdg.StateHome, AppName, "receipts"),
		Timeout:         DefaultTimeout,
		LockTimeout:     DefaultLockTimeout,
		MaxDownloadSize: DefaultMaxDownloadSize,
		LogLevel:        DefaultLogLevel,
		Progress:        true,
	}
}

// Load reads settings from path on top of Default. An empty path means
// DefaultPath, and a missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultPath()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks directories and limits, filling defaults for zero values.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if settings.BinDir == "" {
		settings.BinDir = defaults.BinDir
	}

	if settings.CacheDir == "" {
		settings.CacheDir = defaults.CacheDir
	}

	if settings.LockDir == "" {
		settings.LockDir = defaults.LockDir
	}

	if settings.ReceiptDir == "" {
		settings.ReceiptDir = defaults.ReceiptDir
	}

	for name, dir := range map[string]string{
		"bin_dir":     settings.BinDir,
		"cache_dir":   settings.CacheDir,
		"lock_dir":    settings.LockDir,
		"receipt_dir": settings.ReceiptDir,
	} {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("%s %q: %w", name, dir, errRelativeDir)
		}
	}

	if settings.Timeout < 0 || settings.LockTimeout < 0 || settings.MaxDownloadSize < 0 {
		return errNegativeLimit
	}

	if settings.Timeout == 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LockTimeout == 0 {
		settings.LockTimeout = DefaultLockTimeout
	}

	if settings.MaxDownloadSize == 0 {
		settings.MaxDownloadSize = DefaultMaxDownloadSize
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	return nil
}
