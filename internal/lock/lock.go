package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
)

const (
	// StaleLockThreshold is the age after which a lock is ignored even if
	// its owner still appears to run (the PID may have been reused).
	StaleLockThreshold = 30 * time.Minute

	// PollInterval is how often a busy lock is retried.
	PollInterval = 200 * time.Millisecond

	lockDirPermissions  = 0o700
	lockFilePermissions = 0o600
	lockFileSuffix      = ".lock"
)

// ErrLockExists means another process holds the lock.
var ErrLockExists = errors.New("install lock held by another process")

// Lock is an acquired install lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock for name inside dir, waiting while another live
// process holds it. It gives up when ctx ends.
func Acquire(ctx context.Context, dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, lockDirPermissions); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := Path(dir, name)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLockExists, path, err)
		}

		l, err := tryAcquire(path)
		if err == nil {
			return l, nil
		}

		if !errors.Is(err, ErrLockExists) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockExists, path, ctx.Err())
		case <-time.After(PollInterval):
		}
	}
}

// Path returns the lock file location for name inside dir.
func Path(dir, name string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}

		return r
	}, name)

	return filepath.Join(dir, safe+lockFileSuffix)
}

// Release removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	if l.path == "" {
		return nil
	}

	path := l.path
	l.path = ""

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}

	return nil
}

func tryAcquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, lockFilePermissions)
	if errors.Is(err, os.ErrExist) {
		judged, statErr := os.Stat(path)
		if statErr == nil && !isStale(path, judged) {
			return nil, ErrLockExists
		}

		if statErr == nil && !breakStale(path, judged) {
			return nil, ErrLockExists
		}

		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, lockFilePermissions)
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLockExists
		}
	}

	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err = file.WriteString(lockData); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err = file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// isStale reports whether the lock owner is gone or the lock is too old.
func isStale(path string, info os.FileInfo) bool {
	if time.Since(info.ModTime()) > StaleLockThreshold {
		return true
	}

	pid, ok := readOwnerPID(path)
	if !ok || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process == nil
}

// breakStale moves the lock file judged stale out of the way and deletes it.
// If another process replaced the lock after it was judged, the moved file
// is a live lock: it is linked back and false is returned.
func breakStale(path string, judged os.FileInfo) bool {
	moved := fmt.Sprintf("%s.stale-%d-%d", path, os.Getpid(), time.Now().UnixNano())

	if err := os.Rename(path, moved); err != nil {
		// Someone else already broke it.
		return errors.Is(err, os.ErrNotExist)
	}

	info, err := os.Stat(moved)
	if err == nil && !sameLock(info, judged) {
		_ = os.Link(moved, path)
		_ = os.Remove(moved)

		return false
	}

	_ = os.Remove(moved)

	return true
}

// sameLock compares modification time as well, since a freed inode may be
// reused by the next lock file.
func sameLock(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

func readOwnerPID(path string) (int, bool) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "pid=")
		if !found {
			continue
		}

		pid, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || pid <= 0 {
			return 0, false
		}

		return pid, true
	}

	return 0, false
}
