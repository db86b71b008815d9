package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/flavor/go/fmtpack/pkg/archive"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Source pins a source archive to its content checksum.
type Source struct {
	URL      string
	Checksum string
	// ExtractedDir is the top-level directory the archive unpacks to,
	// conventionally "<name>-<version>".
	ExtractedDir string
}

// Fetcher downloads, verifies and unpacks sources.
type Fetcher struct {
	downloader *Downloader
	logger     hclog.Logger
}

// NewFetcher creates a Fetcher. A nil downloader gets the default one.
func NewFetcher(downloader *Downloader, logger hclog.Logger) *Fetcher {
	if downloader == nil {
		downloader = NewDownloader()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Fetcher{downloader: downloader, logger: logger}
}

// Fetch populates destDir/subfolder with the source tree. The checksum is
// verified before anything is unpacked; a mismatch leaves destDir/subfolder
// absent.
func (f *Fetcher) Fetch(ctx context.Context, src Source, destDir, subfolder string) error {
	expected, err := ParseChecksum(src.Checksum)
	if err != nil {
		return fmt.Errorf("%w: %v", recipeerrors.ErrFetchFailed, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(destDir, ".fetch-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	f.logger.Info("📥 Fetching sources", "url", redactURL(src.URL))
	archivePath := filepath.Join(staging, "download")
	size, err := f.downloader.Download(ctx, src.URL, archivePath)
	if err != nil {
		return err
	}
	f.logger.Debug("✅ Download complete", "bytes", size)

	if err := VerifyFile(archivePath, expected, redactURL(src.URL)); err != nil {
		f.logger.Error("❌ Checksum verification failed", "error", err)
		return err
	}
	f.logger.Info("🔐 Checksum verified", "checksum", expected.String())

	unpacked := filepath.Join(staging, "unpacked")
	if err := archive.Extract(archivePath, src.URL, unpacked); err != nil {
		return fmt.Errorf("%w: extracting %s: %v", recipeerrors.ErrFetchFailed, redactURL(src.URL), err)
	}

	extracted := filepath.Join(unpacked, src.ExtractedDir)
	if info, err := os.Stat(extracted); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: archive has no top-level directory %q", recipeerrors.ErrFetchFailed, src.ExtractedDir)
	}

	target := filepath.Join(destDir, subfolder)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := os.Rename(extracted, target); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", src.ExtractedDir, subfolder, err)
	}
	f.logger.Debug("📁 Source tree ready", "path", target)
	return nil
}
