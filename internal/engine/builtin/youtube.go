// Package builtin resolves YouTube metadata in-process, without the yt-dlp executable. It only understands YouTube
// video and playlist URLs; everything else is reported as unsupported.
package builtin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/yt-fetch"
	"github.com/alanbriolat/yt-fetch/internal/engine"
)

type Extractor struct {
	client youtube.Client
}

func New() *Extractor {
	return &Extractor{}
}

var _ engine.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, target string) (*engine.Info, error) {
	if !yt_fetch.IsURL(target) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupported, target)
	}
	parsedURL, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if playlistID := extractPlaylistID(parsedURL); playlistID != "" {
		return e.extractPlaylist(ctx, target)
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnsupported, err)
	}
	return e.extractVideo(ctx, videoID)
}

func (e *Extractor) extractVideo(ctx context.Context, videoID string) (*engine.Info, error) {
	video, err := e.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	duration := video.Duration.Seconds()
	return &engine.Info{
		Type:       "video",
		ID:         video.ID,
		Title:      video.Title,
		Uploader:   video.Author,
		Duration:   &duration,
		WebpageURL: VideoURL(video.ID),
	}, nil
}

func (e *Extractor) extractPlaylist(ctx context.Context, target string) (*engine.Info, error) {
	playlist, err := e.client.GetPlaylistContext(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist info: %w", err)
	}
	info := &engine.Info{
		Type:     "playlist",
		ID:       playlist.ID,
		Title:    playlist.Title,
		Uploader: playlist.Author,
	}
	for _, entry := range playlist.Videos {
		if entry == nil {
			continue
		}
		duration := entry.Duration.Seconds()
		info.Entries = append(info.Entries, &engine.Info{
			Type:       "url",
			ID:         entry.ID,
			Title:      entry.Title,
			Uploader:   entry.Author,
			Duration:   &duration,
			WebpageURL: VideoURL(entry.ID),
		})
	}
	return info, nil
}

// VideoURL is the canonical watch URL for a video ID.
func VideoURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

func isYouTubeHost(host string) bool {
	switch host {
	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	default:
		return false
	}
}

// A playlist URL is /playlist?list={ID}; a watch URL with both v= and list= is treated as the single video.
func extractPlaylistID(url *url.URL) string {
	if !isYouTubeHost(url.Hostname()) || url.Path != "/playlist" {
		return ""
	}
	return url.Query().Get("list")
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m|music.)?youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m|music.)?youtube.com/(v|shorts|embed|live)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch host := url.Hostname(); {
	case isYouTubeHost(host):
		if prefix, rest, ok := strings.Cut(strings.TrimPrefix(url.Path, "/"), "/"); ok {
			switch prefix {
			case "v", "shorts", "embed", "live":
				id = strings.SplitN(rest, "/", 2)[0]
			}
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
		}
	case host == "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}
