package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/brewlite/internal/domain/formula"
)

func testManifest(url string) *formula.Manifest {
	return &formula.Manifest{
		Name:    "dts-legacy",
		Version: "0.18.0",
		Variants: map[formula.Architecture]formula.Variant{
			formula.ArchAMD64: {URL: url + "/amd64/dts.tar.gz", SHA256: "unused"},
			formula.ArchARM64: {URL: url + "/arm64/dts.tar.gz", SHA256: "unused"},
		},
		Install: formula.InstallAction{Type: formula.ActionCopyRename, Source: "dts", Target: "dts-legacy"},
	}
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestFetch_DownloadsMatchingVariant picks the URL for the requested architecture.
func TestFetch_DownloadsMatchingVariant(t *testing.T) {
	t.Parallel()

	body := []byte("arm64-artifact")
	sum := sha256.Sum256(body)

	var requested, userAgent atomic.Value

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested.Store(r.URL.Path)
		userAgent.Store(r.UserAgent())
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	root := t.TempDir()
	f := New(WithTempRoot(root))

	artifact, err := f.Fetch(context.Background(), testManifest(ts.URL), formula.ArchARM64)
	require.NoError(t, err)

	require.Equal(t, "/arm64/dts.tar.gz", requested.Load())
	require.Contains(t, userAgent.Load(), "brewlite/")
	require.Equal(t, ts.URL+"/arm64/dts.tar.gz", artifact.URL)
	require.Equal(t, formula.ArchARM64, artifact.Arch)
	require.Equal(t, int64(len(body)), artifact.Size)
	require.Equal(t, hex.EncodeToString(sum[:]), artifact.SHA256)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	require.Equal(t, body, data)

	require.NoError(t, artifact.Cleanup())
	require.NoError(t, artifact.Cleanup())
	requireEmptyDir(t, root)
}

// TestFetch_UnsupportedArchitecture fails without contacting the server.
func TestFetch_UnsupportedArchitecture(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	root := t.TempDir()

	_, err := New(WithTempRoot(root)).Fetch(context.Background(), testManifest(ts.URL), formula.Arch386)
	require.ErrorIs(t, err, formula.ErrUnsupportedArchitecture)
	require.Contains(t, err.Error(), "386")
	require.Contains(t, err.Error(), "amd64, arm64")
	require.Zero(t, hits.Load())
	requireEmptyDir(t, root)
}

// TestFetch_Failures maps transport problems to ErrFetch and leaves nothing behind.
func TestFetch_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		opts    []Option
		want    string
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.NotFound(w, nil)
			},
			want: "404",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: "500",
		},
		{
			name: "announced size over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", strconv.Itoa(64))
				_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
			},
			opts: []Option{WithMaxSize(16)},
			want: "maximum download size",
		},
		{
			name: "streamed size over limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				for range 8 {
					_, _ = w.Write(bytes.Repeat([]byte("x"), 8))
					w.(http.Flusher).Flush()
				}
			},
			opts: []Option{WithMaxSize(16)},
			want: "maximum download size",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			opts: []Option{WithTimeout(50 * time.Millisecond)},
			want: "deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			root := t.TempDir()
			opts := append([]Option{WithTempRoot(root)}, tt.opts...)

			artifact, err := New(opts...).Fetch(context.Background(), testManifest(ts.URL), formula.ArchAMD64)
			require.Nil(t, artifact)
			require.ErrorIs(t, err, formula.ErrFetch)
			require.Contains(t, err.Error(), ts.URL+"/amd64/dts.tar.gz")
			require.Contains(t, err.Error(), tt.want)
			requireEmptyDir(t, root)
		})
	}
}

// TestFetch_Cancelled aborts the transfer when the caller's context ends.
func TestFetch_Cancelled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-started
		cancel()
	}()

	root := t.TempDir()

	_, err := New(WithTempRoot(root)).Fetch(ctx, testManifest(ts.URL), formula.ArchAMD64)
	require.ErrorIs(t, err, formula.ErrFetch)
	requireEmptyDir(t, root)
}

// TestFetch_Progress renders a bar when a writer is configured.
func TestFetch_Progress(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("y"), 4096)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	var progress bytes.Buffer

	artifact, err := New(WithTempRoot(t.TempDir()), WithProgress(&progress)).
		Fetch(context.Background(), testManifest(ts.URL), formula.ArchAMD64)
	require.NoError(t, err)

	defer func() {
		_ = artifact.Cleanup()
	}()

	require.Equal(t, int64(len(body)), artifact.Size)
	require.NotEmpty(t, progress.String())
}

func TestArtifactFileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "dts.tar.gz", artifactFileName("/releases/0.18.0/dts.tar.gz"))
	require.Equal(t, "artifact", artifactFileName("/"))
	require.Equal(t, "artifact", artifactFileName(""))
}
