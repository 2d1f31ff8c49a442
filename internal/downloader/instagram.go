package downloader

import (
	"context"
	"regexp"
)

// instagramLinkPattern matches reel, post and IGTV URLs.
var instagramLinkPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?instagram\.com/(reel|reels|p|tv)/[A-Za-z0-9_-]+`)

// Instagram fetches reels and posts through yt-dlp. Login-gated content
// fails like any other extraction error; the bot does not hold Instagram
// credentials.
type Instagram struct {
	bin string
	dir string
}

func newInstagram(opts Options) *Instagram {
	return &Instagram{bin: opts.YTDLPPath, dir: opts.Dir}
}

func (i *Instagram) Fetch(ctx context.Context, link string) (*Artifact, error) {
	if !instagramLinkPattern.MatchString(link) {
		return nil, ErrInvalidLink
	}
	return runYTDLP(ctx, i.bin, i.dir, link, nil)
}
