package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/flavor/go/fmtpack/pkg/archive"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// sourceArchive builds a tar.gz laid out like a GitHub tag archive and
// returns its bytes and checksum.
func sourceArchive(t *testing.T) ([]byte, string) {
	t.Helper()

	tree := t.TempDir()
	files := map[string]string{
		"fmt-6.2.0/include/fmt/core.h": "#pragma once\n",
		"fmt-6.2.0/src/format.cc":      "// format\n",
	}
	for rel, content := range files {
		p := filepath.Join(tree, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	archivePath := filepath.Join(t.TempDir(), "6.2.0.tar.gz")
	require.NoError(t, archive.Create(tree, archivePath))

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	sum, err := ComputeFileChecksum(archivePath, ChecksumSHA256)
	require.NoError(t, err)
	return data, sum.Hex
}

func serve(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/archive/6.2.0.tar.gz") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(srv *httptest.Server) *Fetcher {
	logger := hclog.New(&hclog.LoggerOptions{Name: "fetch_test", Level: hclog.Trace})
	return NewFetcher(NewDownloader(WithHTTPClient(srv.Client())), logger)
}

func TestFetchVerifiesAndRenames(t *testing.T) {
	data, sum := sourceArchive(t)
	srv := serve(t, data)

	dest := t.TempDir()
	src := Source{
		URL:          srv.URL + "/fmtlib/fmt/archive/6.2.0.tar.gz",
		Checksum:     "sha256:" + sum,
		ExtractedDir: "fmt-6.2.0",
	}
	require.NoError(t, newTestFetcher(srv).Fetch(context.Background(), src, dest, "source_subfolder"))

	got, err := os.ReadFile(filepath.Join(dest, "source_subfolder", "include", "fmt", "core.h"))
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n", string(got))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory must be cleaned up")
	assert.Equal(t, "source_subfolder", entries[0].Name())
}

func TestFetchChecksumMismatchIsFatal(t *testing.T) {
	data, _ := sourceArchive(t)
	srv := serve(t, data)

	dest := t.TempDir()
	src := Source{
		URL:          srv.URL + "/fmtlib/fmt/archive/6.2.0.tar.gz",
		Checksum:     strings.Repeat("0", 64),
		ExtractedDir: "fmt-6.2.0",
	}
	err := newTestFetcher(srv).Fetch(context.Background(), src, dest, "source_subfolder")
	require.Error(t, err)
	assert.True(t, errors.Is(err, recipeerrors.ErrChecksumMismatch))

	var csErr *ChecksumError
	require.True(t, errors.As(err, &csErr))
	assert.Equal(t, strings.Repeat("0", 64), csErr.Expected.Hex)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be unpacked after a checksum mismatch")
}

func TestFetchHTTPFailure(t *testing.T) {
	data, sum := sourceArchive(t)
	srv := serve(t, data)

	src := Source{
		URL:          srv.URL + "/fmtlib/fmt/archive/9.9.9.tar.gz",
		Checksum:     sum,
		ExtractedDir: "fmt-9.9.9",
	}
	err := newTestFetcher(srv).Fetch(context.Background(), src, t.TempDir(), "source_subfolder")
	assert.True(t, errors.Is(err, recipeerrors.ErrFetchFailed), "got %v", err)
}

func TestDownloadUserAgent(t *testing.T) {
	testCases := []struct {
		name string
		opts []DownloaderOption
		want string
	}{
		{name: "default", want: "fmtpack"},
		{name: "versioned", opts: []DownloaderOption{WithUserAgent("fmtpack/0.1.0")}, want: "fmtpack/0.1.0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("User-Agent")
				w.Write([]byte("ok"))
			}))
			defer srv.Close()

			opts := append([]DownloaderOption{WithHTTPClient(srv.Client())}, tc.opts...)
			_, err := NewDownloader(opts...).Download(context.Background(), srv.URL+"/a.tar.gz", filepath.Join(t.TempDir(), "a.tar.gz"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetchMissingTopLevelDirectory(t *testing.T) {
	data, sum := sourceArchive(t)
	srv := serve(t, data)

	src := Source{
		URL:          srv.URL + "/fmtlib/fmt/archive/6.2.0.tar.gz",
		Checksum:     sum,
		ExtractedDir: "fmt-7.0.0",
	}
	err := newTestFetcher(srv).Fetch(context.Background(), src, t.TempDir(), "source_subfolder")
	assert.True(t, errors.Is(err, recipeerrors.ErrFetchFailed), "got %v", err)
}

func TestFetchLocalPath(t *testing.T) {
	data, sum := sourceArchive(t)
	local := filepath.Join(t.TempDir(), "fmt-6.2.0.tar.gz")
	require.NoError(t, os.WriteFile(local, data, 0o644))

	dest := t.TempDir()
	src := Source{URL: local, Checksum: sum, ExtractedDir: "fmt-6.2.0"}
	require.NoError(t, NewFetcher(nil, nil).Fetch(context.Background(), src, dest, "src"))
	assert.FileExists(t, filepath.Join(dest, "src", "src", "format.cc"))
}
