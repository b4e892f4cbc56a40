// Package ytdlp runs the yt-dlp executable as the extraction engine, translating a RunConfig into command-line
// options and the engine's console output back into Logger calls and lifecycle events.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ytdlp_ "github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/alanbriolat/yt-fetch"
	"github.com/alanbriolat/yt-fetch/internal/engine"
)

const progressInterval = 100 * time.Millisecond

// Settings for metadata-only resolution: fail fast rather than retry hard.
const (
	extractSocketTimeout   = 10
	extractRetries         = 2
	extractFragmentRetries = 1
	extractUserAgent       = "Mozilla/5.0"
)

type Engine struct {
	executable string
	cacheDir   string
	log        *zap.SugaredLogger
}

type Option func(*Engine)

// WithExecutable overrides the yt-dlp executable, which otherwise is looked up by go-ytdlp.
func WithExecutable(path string) Option {
	return func(e *Engine) {
		e.executable = path
	}
}

// WithCacheDir gives the engine a private cache directory instead of the user's shared one.
func WithCacheDir(dir string) Option {
	return func(e *Engine) {
		e.cacheDir = dir
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{log: zap.S().Named("ytdlp")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ engine.Downloader = (*Engine)(nil)
var _ engine.Extractor = (*Engine)(nil)

func (e *Engine) newCommand() *ytdlp_.Command {
	cmd := ytdlp_.New()
	if e.executable != "" {
		cmd = cmd.SetExecutable(e.executable)
	}
	return cmd
}

// Download runs yt-dlp once for all targets. Console output is replayed through hooks.Logger once the engine exits,
// progress updates are delivered as they happen.
func (e *Engine) Download(ctx context.Context, cfg *yt_fetch.RunConfig, targets []yt_fetch.Target, hooks engine.Hooks) (int, error) {
	cmd := Configure(e.newCommand(), cfg, e.cacheDir)
	cmd = cmd.ProgressFunc(progressInterval, func(update ytdlp_.ProgressUpdate) {
		hooks.Progress(engine.ProgressEvent{
			Status:   engine.ProgressStatus(update.Status),
			Filename: update.Filename,
		})
	})

	e.log.Debugf("running engine for %d target(s)", len(targets))
	res, err := cmd.Run(ctx, yt_fetch.TargetStrings(targets)...)
	if res != nil {
		engine.DispatchOutput(hooks.Logger, res.Stdout)
		engine.DispatchOutput(hooks.Logger, res.Stderr)
		if res.ExitCode != 0 {
			e.log.Debugf("engine exited with code %d", res.ExitCode)
			return res.ExitCode, nil
		}
	}
	if err != nil {
		return 1, fmt.Errorf("%w: %w", engine.ErrEngine, err)
	}
	return 0, nil
}

// Extract resolves target with a flat, single-JSON metadata dump; nothing is downloaded.
func (e *Engine) Extract(ctx context.Context, target string) (*engine.Info, error) {
	cmd := e.newCommand().
		DumpSingleJSON().
		FlatPlaylist().
		LazyPlaylist().
		SocketTimeout(extractSocketTimeout).
		Retries(strconv.Itoa(extractRetries)).
		FragmentRetries(strconv.Itoa(extractFragmentRetries)).
		AddHeaders("User-Agent:" + extractUserAgent)
	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEngine, err)
	}
	return ParseInfo(res.Stdout)
}

// ParseInfo decodes the JSON document printed by a single-JSON dump, ignoring any non-JSON lines around it.
func ParseInfo(stdout string) (*engine.Info, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info engine.Info
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return nil, fmt.Errorf("failed to decode engine metadata: %w", err)
		}
		return &info, nil
	}
	return nil, fmt.Errorf("%w: no metadata in engine output", engine.ErrEngine)
}

// Configure applies every setting in cfg to cmd. Each post-processing step maps to its flag; the engine decides the
// order they run in. Single-valued options such as --paths and --add-headers are set at most once.
func Configure(cmd *ytdlp_.Command, cfg *yt_fetch.RunConfig, cacheDir string) *ytdlp_.Command {
	cmd = cmd.Paths("home:" + cfg.OutputDir).Output(cfg.OutputTemplate).Format(cfg.Format)
	if cacheDir != "" {
		cmd = cmd.CacheDir(cacheDir)
	}
	if archive, ok := cfg.ArchivePath.Get(); ok {
		cmd = cmd.DownloadArchive(archive)
	}

	for _, pp := range cfg.PostProcessors {
		switch pp.Key {
		case yt_fetch.PPMetadata:
			cmd = cmd.EmbedMetadata()
			if pp.AddChapters {
				cmd = cmd.EmbedChapters()
			}
		case yt_fetch.PPThumbnailsConvertor:
			cmd = cmd.ConvertThumbnails(pp.Format)
		case yt_fetch.PPEmbedThumbnail:
			cmd = cmd.EmbedThumbnail()
		case yt_fetch.PPExtractAudio:
			cmd = cmd.ExtractAudio().AudioFormat(pp.Format).AudioQuality(AudioQuality(pp.Quality))
		case yt_fetch.PPVideoRemuxer:
			cmd = cmd.RemuxVideo(pp.Format)
		}
	}

	if cfg.WriteThumbnail {
		cmd = cmd.WriteThumbnail()
	}
	if cfg.WriteDescription {
		cmd = cmd.WriteDescription()
	}
	if cfg.WriteInfoJSON {
		cmd = cmd.WriteInfoJSON()
	}
	if cfg.WriteSubtitles {
		cmd = cmd.WriteSubs()
		if len(cfg.SubtitleLangs) > 0 {
			cmd = cmd.SubLangs(strings.Join(cfg.SubtitleLangs, ","))
		}
	}
	if cfg.MergeOutputFormat != "" {
		cmd = cmd.MergeOutputFormat(cfg.MergeOutputFormat)
	}

	cmd = cmd.Retries(strconv.Itoa(cfg.Retries)).FragmentRetries(strconv.Itoa(cfg.FragmentRetries))
	if cfg.Sleep > 0 {
		cmd = cmd.SleepInterval(cfg.Sleep)
	}
	if maxSleep, ok := cfg.MaxSleep.Get(); ok {
		cmd = cmd.MaxSleepInterval(maxSleep)
	}
	if cfg.ConcurrentFragments > 0 {
		cmd = cmd.ConcurrentFragments(cfg.ConcurrentFragments)
	}
	if cfg.ForceIPv4 {
		cmd = cmd.ForceIPv4()
	}
	if cfg.Credentials.File != "" {
		cmd = cmd.Cookies(cfg.Credentials.File)
	}
	if cfg.Credentials.Browser != "" {
		cmd = cmd.CookiesFromBrowser(string(cfg.Credentials.Browser))
	}
	if cfg.Transport == yt_fetch.TransportAria2c {
		cmd = cmd.Downloader(string(yt_fetch.TransportAria2c))
		if len(cfg.TransportArgs) > 0 {
			cmd = cmd.DownloaderArgs(DownloaderArgs(cfg.Transport, cfg.TransportArgs))
		}
	}
	if cfg.UserAgent != "" {
		cmd = cmd.AddHeaders("User-Agent:" + cfg.UserAgent)
	}
	if cfg.ExtractorArgs != "" {
		cmd = cmd.ExtractorArgs(cfg.ExtractorArgs)
	}

	if cfg.Overwrite {
		cmd = cmd.ForceOverwrites()
	}
	if cfg.KeepVideo {
		cmd = cmd.KeepVideo()
	}
	if cfg.IgnoreErrors {
		cmd = cmd.IgnoreErrors()
	}
	if cfg.Verbose {
		cmd = cmd.Verbose()
	}
	return cmd
}

// AudioQuality converts a quality setting to the engine's syntax: 0-10 is a VBR level, anything larger is a bitrate
// in kbit/s.
func AudioQuality(q string) string {
	if n, err := strconv.Atoi(q); err == nil && n > 10 {
		return q + "K"
	}
	return q
}

// DownloaderArgs scopes helper arguments to the named downloader.
func DownloaderArgs(transport yt_fetch.Transport, args []string) string {
	return string(transport) + ":" + strings.Join(args, " ")
}

