package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runYTDLP invokes the yt-dlp binary to download one item into dir and
// returns the artifact. extraArgs are platform-specific format selectors.
// The final file path is taken from yt-dlp's own after-move report rather
// than guessed from the output template, so remuxed extensions are correct.
func runYTDLP(ctx context.Context, bin, dir, link string, extraArgs []string) (*Artifact, error) {
	outTmpl := filepath.Join(dir, "%(title).120B [%(id)s].%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--restrict-filenames",
		"--print", "after_move:filepath",
		"-o", outTmpl,
	}
	args = append(args, extraArgs...)
	args = append(args, "--", link)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("yt-dlp: %s", firstLine(msg))
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return nil, fmt.Errorf("yt-dlp reported no output file")
	}
	// --print may emit one line per downloaded entry; with --no-playlist a
	// single line is expected, keep the last non-empty one.
	if lines := strings.Split(path, "\n"); len(lines) > 1 {
		path = strings.TrimSpace(lines[len(lines)-1])
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp output missing: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(path)
		return nil, fmt.Errorf("yt-dlp produced an empty file")
	}
	return &Artifact{Path: path, SizeBytes: info.Size()}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
