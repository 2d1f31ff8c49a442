package downloader

import (
	"context"
	"regexp"
)

// youtubeLinkPattern matches watch URLs, short youtu.be links and shorts.
var youtubeLinkPattern = regexp.MustCompile(
	`^(https?://)?(www\.|m\.)?(youtube\.com/(watch\?|shorts/|live/)|youtu\.be/).+`)

// YouTube fetches videos through yt-dlp, preferring an mp4 container so the
// transport can send the result as a native video.
type YouTube struct {
	bin string
	dir string
}

func newYouTube(opts Options) *YouTube {
	return &YouTube{bin: opts.YTDLPPath, dir: opts.Dir}
}

func (y *YouTube) Fetch(ctx context.Context, link string) (*Artifact, error) {
	if !youtubeLinkPattern.MatchString(link) {
		return nil, ErrInvalidLink
	}
	return runYTDLP(ctx, y.bin, y.dir, link, []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--remux-video", "mp4",
	})
}
