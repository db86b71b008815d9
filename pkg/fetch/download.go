package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

const defaultTimeout = 10 * time.Minute

type (
	// Downloader retrieves a source archive into a local file.
	Downloader struct {
		httpClient *http.Client
		userAgent  string
	}

	// DownloaderOption configures a Downloader during construction.
	DownloaderOption func(*Downloader)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// NewDownloader creates a Downloader with a timeout-bound default client.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "fmtpack",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download copies the resource at rawURL into dest and returns the number
// of bytes written. http(s) and file URLs are supported; anything without a
// scheme is read as a local path.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	body, err := d.open(ctx, rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", recipeerrors.ErrFetchFailed, err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("%w: reading %s: %v", recipeerrors.ErrFetchFailed, redactURL(rawURL), err)
	}
	return n, nil
}

func (d *Downloader) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// No scheme, or a Windows drive letter.
		return os.Open(rawURL)
	}

	switch u.Scheme {
	case "file":
		return os.Open(filepath.FromSlash(u.Path))
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status %d", redactURL(rawURL), resp.StatusCode)
	}
	return resp.Body, nil
}

// redactURL drops query strings and credentials, which may carry tokens.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.User = nil
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "?")
}
