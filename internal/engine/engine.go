// Package engine describes the external media extraction engine as seen by yt-fetch: a downloader for a list of
// targets, a metadata-only extractor, and the log and lifecycle callbacks the engine reports through.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/alanbriolat/yt-fetch"
)

var (
	ErrEngine      = errors.New("engine failed")
	ErrUnsupported = errors.New("target not supported by this extractor")
)

// Logger receives the engine's log output, one message per call. Implementations must not block.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

type ProgressStatus string

const (
	StatusStarting       ProgressStatus = "starting"
	StatusDownloading    ProgressStatus = "downloading"
	StatusPostProcessing ProgressStatus = "post_processing"
	StatusError          ProgressStatus = "error"
	StatusFinished       ProgressStatus = "finished"
)

// ProgressEvent is a per-item lifecycle transition.
type ProgressEvent struct {
	Status   ProgressStatus
	Filename string
}

// Hooks are the callbacks an engine invokes while it works. Either may be nil. Callbacks may arrive from a goroutine
// other than the one that called Download.
type Hooks struct {
	Logger     Logger
	OnProgress func(ProgressEvent)
}

// Progress delivers e to OnProgress, if set.
func (h Hooks) Progress(e ProgressEvent) {
	if h.OnProgress != nil {
		h.OnProgress(e)
	}
}

// Downloader runs a real download of all targets, in order. The returned code is the engine's exit status (0 for
// success); a non-nil error means the engine could not be run or crashed, rather than reporting failed items.
type Downloader interface {
	Download(ctx context.Context, cfg *yt_fetch.RunConfig, targets []yt_fetch.Target, hooks Hooks) (int, error)
}

// Extractor resolves metadata for a single target without downloading anything. Collections are enumerated flat.
type Extractor interface {
	Extract(ctx context.Context, target string) (*Info, error)
}

// Info is the subset of engine metadata yt-fetch uses. A collection has Entries; entries of a flat listing may
// lack fields that need a full probe.
type Info struct {
	Type       string   `json:"_type,omitempty"`
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Uploader   string   `json:"uploader,omitempty"`
	Channel    string   `json:"channel,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	WebpageURL string   `json:"webpage_url,omitempty"`
	URL        string   `json:"url,omitempty"`
	Entries    []*Info  `json:"entries,omitempty"`
}

// IsCollection reports whether the result is a playlist/search result with members.
func (i *Info) IsCollection() bool {
	return len(i.Entries) > 0
}

// DispatchLine routes one line of engine console output to the matching Logger method by its prefix.
func DispatchLine(l Logger, line string) {
	line = strings.TrimRight(line, "\r\n")
	if l == nil || strings.TrimSpace(line) == "" {
		return
	}
	switch {
	case strings.HasPrefix(line, "ERROR:"):
		l.Error(line)
	case strings.HasPrefix(line, "WARNING:"):
		l.Warning(line)
	case strings.HasPrefix(line, "[debug]"):
		l.Debug(line)
	default:
		l.Info(line)
	}
}

// DispatchOutput splits output into lines and dispatches each one.
func DispatchOutput(l Logger, output string) {
	for _, line := range strings.Split(output, "\n") {
		DispatchLine(l, line)
	}
}
