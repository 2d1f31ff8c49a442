// Package downloader contains the per-platform fetch collaborators. Each
// fetcher turns a user-submitted link into a local artifact file, or fails.
// Fetchers validate the link shape before touching the network so malformed
// input fails fast, and they own their own timeout policy — the lifecycle
// manager treats any error from here uniformly as a fetch failure.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Artifact is a fetched media file staged on the local filesystem.
type Artifact struct {
	Path      string
	SizeBytes int64
}

// Fetcher is the per-platform fetch contract.
type Fetcher interface {
	// Fetch downloads the media behind link into the staging directory and
	// returns the artifact. The returned file is owned by the caller; on
	// error no file is left behind.
	Fetch(ctx context.Context, link string) (*Artifact, error)
}

// ErrInvalidLink is returned when a link does not match the platform's
// expected shape. No network access is attempted in that case.
var ErrInvalidLink = errors.New("link does not match the platform format")

// Options configures fetcher construction.
type Options struct {
	Dir                string        // staging directory for fetched files
	HTTPTimeout        time.Duration // per-request timeout for direct HTTP downloads
	TeraboxResolverURL string        // resolver endpoint that turns share links into direct links
	YTDLPPath          string        // yt-dlp binary, defaults to "yt-dlp" on PATH
}

// New builds the fetcher for a platform ID, or an error for unknown IDs.
// The set of constructable fetchers is intentionally the same small table
// the ledger is configured with.
func New(platform string, opts Options) (Fetcher, error) {
	if opts.Dir == "" {
		opts.Dir = "downloads"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Minute
	}
	if opts.YTDLPPath == "" {
		opts.YTDLPPath = "yt-dlp"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	switch platform {
	case "terabox":
		return newTerabox(opts), nil
	case "youtube":
		return newYouTube(opts), nil
	case "instagram":
		return newInstagram(opts), nil
	default:
		return nil, fmt.Errorf("no fetcher for platform %q", platform)
	}
}

// saveStream copies body into a new file under dir and returns the artifact.
// The partial file is removed when the copy fails.
func saveStream(dir, filename string, body io.Reader) (*Artifact, error) {
	path := filepath.Join(dir, sanitizeFilename(filename))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if n == 0 {
		os.Remove(path)
		return nil, errors.New("empty response body")
	}
	return &Artifact{Path: path, SizeBytes: n}, nil
}

// sanitizeFilename strips path separators and other characters that could
// escape the staging directory or upset the transport.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer("\x00", "", "\n", "", "\r", "")
	name = replacer.Replace(name)
	if name == "" || name == "." || name == ".." {
		name = fmt.Sprintf("download_%d", time.Now().UnixNano())
	}
	return name
}

// drainAndClose releases an HTTP body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
