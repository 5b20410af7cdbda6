package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// deadPID is far above any kernel pid_max, so no process can own it.
const deadPID = 2147483646

// TestAcquire_CreatesLockFile writes owner metadata into the lock file.
func TestAcquire_CreatesLockFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "locks")

	l, err := Acquire(context.Background(), dir, "dts-legacy")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "dts-legacy.lock"))
	require.NoError(t, err)
	require.Contains(t, string(data), fmt.Sprintf("pid=%d", os.Getpid()))
	require.Contains(t, string(data), "timestamp=")

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	_, err = os.Stat(filepath.Join(dir, "dts-legacy.lock"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestAcquire_WaitsForHolder blocks until the holder releases the lock.
func TestAcquire_WaitsForHolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "pkg")
	require.NoError(t, err)

	released := make(chan struct{})

	go func() {
		time.Sleep(3 * PollInterval)
		close(released)
		_ = first.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	second, err := Acquire(ctx, dir, "pkg")
	require.NoError(t, err)

	defer second.Release()

	select {
	case <-released:
	default:
		t.Fatal("second lock acquired while the first was still held")
	}
}

// TestAcquire_TimesOut returns ErrLockExists when the holder never lets go.
func TestAcquire_TimesOut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "pkg")
	require.NoError(t, err)

	defer first.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 2*PollInterval)
	defer cancel()

	_, err = Acquire(ctx, dir, "pkg")
	require.ErrorIs(t, err, ErrLockExists)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestAcquire_DifferentPackages do not block each other.
func TestAcquire_DifferentPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	a, err := Acquire(context.Background(), dir, "a")
	require.NoError(t, err)

	defer a.Release()

	b, err := Acquire(context.Background(), dir, "b")
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

// TestAcquire_RecoversDeadOwner replaces a lock whose owner process is gone.
func TestAcquire_RecoversDeadOwner(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := Path(dir, "pkg")

	stale := fmt.Sprintf("pid=%d\ntimestamp=%s\n", deadPID, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, os.WriteFile(path, []byte(stale), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := Acquire(ctx, dir, "pkg")
	require.NoError(t, err)

	defer l.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), fmt.Sprintf("pid=%d\n", os.Getpid())))
}

// TestAcquire_RecoversOldLock ignores locks older than the threshold.
func TestAcquire_RecoversOldLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := Path(dir, "pkg")

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	old := time.Now().Add(-2 * StaleLockThreshold)
	require.NoError(t, os.Chtimes(path, old, old))

	l, err := Acquire(context.Background(), dir, "pkg")
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

// TestAcquire_StaleBreakLeavesNoFiles removes the broken lock completely.
func TestAcquire_StaleBreakLeavesNoFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := Path(dir, "pkg")

	stale := fmt.Sprintf("pid=%d\ntimestamp=%s\n", deadPID, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, os.WriteFile(path, []byte(stale), 0o600))

	l, err := Acquire(context.Background(), dir, "pkg")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "pkg.lock", entries[0].Name())

	require.NoError(t, l.Release())
}

// TestBreakStale_KeepsReplacedLock leaves alone a lock that another process
// created after the old one was judged stale.
func TestBreakStale_KeepsReplacedLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := Path(dir, "pkg")

	stale := fmt.Sprintf("pid=%d\n", deadPID)
	require.NoError(t, os.WriteFile(path, []byte(stale), 0o600))

	judged, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, isStale(path, judged))

	// Another process breaks the old lock and takes a fresh one.
	require.NoError(t, os.Rename(path, filepath.Join(t.TempDir(), "broken")))

	holder, err := tryAcquire(path)
	require.NoError(t, err)

	defer holder.Release()

	require.False(t, breakStale(path, judged))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), fmt.Sprintf("pid=%d\n", os.Getpid())))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = tryAcquire(path)
	require.ErrorIs(t, err, ErrLockExists)
}

// TestBreakStale_AlreadyBroken treats a vanished lock as broken.
func TestBreakStale_AlreadyBroken(t *testing.T) {
	t.Parallel()

	path := Path(t.TempDir(), "pkg")
	require.NoError(t, os.WriteFile(path, []byte("pid=1\n"), 0o600))

	judged, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	require.True(t, breakStale(path, judged))
}

// TestAcquire_CancelledContext fails fast.
func TestAcquire_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Acquire(ctx, t.TempDir(), "pkg")
	require.ErrorIs(t, err, context.Canceled)
}

// TestPath flattens separators in package names.
func TestPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("/locks", "tap_dts.lock"), Path("/locks", "tap/dts"))
}
