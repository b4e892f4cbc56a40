// Package app is the yt-fetch command line: flag parsing, target normalization, and either a dry-run listing or a
// real engine run followed by remediation hints.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	"go.uber.org/zap"

	"github.com/alanbriolat/yt-fetch"
	"github.com/alanbriolat/yt-fetch/internal/engine"
	"github.com/alanbriolat/yt-fetch/internal/engine/builtin"
	"github.com/alanbriolat/yt-fetch/internal/engine/ytdlp"
	"github.com/alanbriolat/yt-fetch/internal/history"
	"github.com/alanbriolat/yt-fetch/internal/progress"
)

const Version = "1.5"

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitBadInput = 2
)

const (
	ResolverYtdlp   = "ytdlp"
	ResolverBuiltin = "builtin"
)

var ErrUnknownResolver = errors.New("unknown resolver")

// Deps are the pieces of the outside world the command line talks to.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer
	// Level, if set, is lowered to debug by --verbose.
	Level *zap.AtomicLevel

	DetectCapability func(setting string) (progress.Capability, error)
	NewDownloader    func(enginePath string, scratchDir string) engine.Downloader
	NewExtractor     func(resolver string, enginePath string) (engine.Extractor, error)
	OpenHistory      func(path string) (history.Store, error)
}

// DefaultDeps runs the real yt-dlp engine against the process's standard streams.
func DefaultDeps() Deps {
	return Deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		DetectCapability: func(setting string) (progress.Capability, error) {
			return progress.Detect(setting, os.Stderr)
		},
		NewDownloader: func(enginePath string, scratchDir string) engine.Downloader {
			return ytdlp.New(ytdlp.WithExecutable(enginePath), ytdlp.WithCacheDir(scratchDir))
		},
		NewExtractor: func(resolver string, enginePath string) (engine.Extractor, error) {
			switch resolver {
			case ResolverYtdlp:
				return ytdlp.New(ytdlp.WithExecutable(enginePath)), nil
			case ResolverBuiltin:
				return builtin.New(), nil
			default:
				return nil, fmt.Errorf("%w %q (use %s or %s)", ErrUnknownResolver, resolver, ResolverYtdlp, ResolverBuiltin)
			}
		},
		OpenHistory: func(path string) (history.Store, error) {
			return history.Open(path)
		},
	}
}

// settingsFlags are the flags that may also come from the --config file.
func settingsFlags() []cli.Flag {
	d := yt_fetch.DefaultToggles()
	return []cli.Flag{
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "search-limit",
			Value:   1,
			Usage:   "download the top `N` results for each search query",
			EnvVars: []string{"YT_FETCH_SEARCH_LIMIT"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "mode",
			Value:   string(d.Mode),
			Usage:   "download as mp4 video or mp3 audio",
			EnvVars: []string{"YT_FETCH_MODE"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "container",
			Value:   string(d.Container),
			Usage:   "preferred container for video mode (mp4 or mkv)",
			EnvVars: []string{"YT_FETCH_CONTAINER"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "out",
			Value:   d.OutputDir,
			Usage:   "save downloads under `DIR`",
			EnvVars: []string{"YT_FETCH_OUT"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "archive",
			Value:   d.ArchivePath,
			Usage:   "download archive `FILE` used to skip already downloaded items",
			EnvVars: []string{"YT_FETCH_ARCHIVE"},
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "no-archive",
			Usage: "disable the download archive",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "flat",
			Usage: "put all outputs directly into the output directory (no per-uploader subdirectories)",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "no-metadata",
			Usage: "disable writing and embedding metadata, thumbnails, info JSON and description",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "aria2c",
			Usage: "use the aria2c external downloader",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "no-aria2c",
			Usage: "never use aria2c (overrides --aria2c)",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "subs",
			Usage: "download and embed available subtitles",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "show engine output and debug logging",
			EnvVars: []string{"YT_FETCH_VERBOSE"},
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "force-ipv4",
			Usage: "use IPv4 only",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "cookies-file",
			Usage:   "load cookies from a cookies.txt `FILE`",
			EnvVars: []string{"YT_FETCH_COOKIES_FILE"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "cookies-from-browser",
			Usage:   "load cookies from `BROWSER` (firefox, chrome, chromium, brave, edge, vivaldi, opera)",
			EnvVars: []string{"YT_FETCH_COOKIES_FROM_BROWSER"},
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:  "retries",
			Value: d.Retries,
			Usage: "number of retries on HTTP errors",
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:  "fragment-retries",
			Value: d.FragmentRetries,
			Usage: "retries per video fragment",
		}),
		altsrc.NewFloat64Flag(&cli.Float64Flag{
			Name:  "sleep",
			Value: d.Sleep,
			Usage: "`SECONDS` to sleep between downloads",
		}),
		altsrc.NewFloat64Flag(&cli.Float64Flag{
			Name:  "sleep-max",
			Usage: "randomize the sleep between --sleep and `SECONDS`",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "progress",
			Value:   "auto",
			Usage:   "progress display: auto, bar or plain",
			EnvVars: []string{"YT_FETCH_PROGRESS"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "resolver",
			Value:   ResolverYtdlp,
			Usage:   "metadata resolver for --dry-run: ytdlp or builtin",
			EnvVars: []string{"YT_FETCH_RESOLVER"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "engine-path",
			Usage:   "yt-dlp executable `PATH` (default: search PATH)",
			EnvVars: []string{"YT_FETCH_ENGINE_PATH"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "history",
			Usage:   "run history database `FILE` (default: yt-fetch/history.db in the user config directory)",
			EnvVars: []string{"YT_FETCH_HISTORY"},
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:    "no-history",
			Usage:   "do not record this run in the history database",
			EnvVars: []string{"YT_FETCH_NO_HISTORY"},
		}),
	}
}

// New builds the yt-fetch command line.
func New(deps Deps) *cli.App {
	settings := settingsFlags()
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "single",
			Aliases: []string{"s"},
			Usage:   "single URL or search `QUERY` to download",
		},
		&cli.StringFlag{
			Name:    "bulk-file",
			Aliases: []string{"b"},
			Usage:   "`FILE` with URLs or search queries, one per line",
		},
		&cli.StringFlag{
			Name:  "search",
			Usage: "extra search `QUERY` to include in addition to --single",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "alias for --search-limit; wins if both are set",
		},
		&cli.BoolFlag{
			Name:    "keep-video",
			Aliases: []string{"k"},
			Usage:   "keep the original video file when extracting mp3",
		},
		&cli.BoolFlag{
			Name:  "redownload",
			Usage: "ignore the archive and overwrite existing files",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "only list what would be downloaded",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "load settings from a YAML `FILE`",
			EnvVars: []string{"YT_FETCH_CONFIG"},
		},
	}
	flags = append(flags, settings...)

	r := &runner{deps: deps}
	return &cli.App{
		Name:    "yt-fetch",
		Usage:   "download videos or audio with yt-dlp",
		Version: Version,
		Flags:   flags,
		Before: func(c *cli.Context) error {
			if c.IsSet("config") {
				if err := altsrc.InitInputSourceWithContext(settings, altsrc.NewYamlSourceFromFlagFunc("config"))(c); err != nil {
					return cli.Exit(fmt.Sprintf("Failed to load config: %v", err), ExitBadInput)
				}
			}
			if c.Bool("verbose") && deps.Level != nil {
				deps.Level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Action: r.action,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "list recorded runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "show the most recent `N` runs (0 for all)",
					},
				},
				Action: r.history,
			},
		},
		OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
			return cli.Exit(err.Error(), ExitBadInput)
		},
		// Exit codes are applied by the caller
		ExitErrHandler:  func(*cli.Context, error) {},
		Writer:          deps.Stdout,
		ErrWriter:       deps.Stderr,
		HideHelpCommand: true,
	}
}

// ExitCode maps an error returned by the App to a process exit code. Errors that don't carry a code are usage
// problems.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitBadInput
}
