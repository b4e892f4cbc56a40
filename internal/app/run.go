package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/r3labs/diff/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/yt-fetch"
	"github.com/alanbriolat/yt-fetch/download"
	"github.com/alanbriolat/yt-fetch/internal/dryrun"
	"github.com/alanbriolat/yt-fetch/internal/engine"
	"github.com/alanbriolat/yt-fetch/internal/history"
	"github.com/alanbriolat/yt-fetch/internal/progress"
	"github.com/alanbriolat/yt-fetch/internal/run"
)

type runner struct {
	deps Deps
}

// searchLimit is --top if given, otherwise --search-limit.
func searchLimit(c *cli.Context) int {
	if c.IsSet("top") {
		return c.Int("top")
	}
	return c.Int("search-limit")
}

func targetsFromContext(c *cli.Context) ([]yt_fetch.Target, error) {
	single := c.String("single")
	bulkFile := c.String("bulk-file")
	limit := searchLimit(c)

	var targets []yt_fetch.Target
	var err error
	switch {
	case c.IsSet("single") && c.IsSet("bulk-file"):
		return nil, cli.Exit("--single and --bulk-file are mutually exclusive", ExitBadInput)
	case c.IsSet("single"):
		targets, err = yt_fetch.Inputs(single, c.String("search"), limit)
	case c.IsSet("bulk-file"):
		targets, err = yt_fetch.ReadBulkFile(bulkFile, limit)
		if errors.Is(err, yt_fetch.ErrBulkFileNotFound) {
			return nil, cli.Exit(fmt.Sprintf("Bulk file not found: %s", bulkFile), ExitBadInput)
		}
	default:
		return nil, cli.Exit("one of --single or --bulk-file is required", ExitBadInput)
	}
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitBadInput)
	}
	if len(targets) == 0 {
		return nil, cli.Exit("No valid inputs after parsing arguments.", ExitBadInput)
	}
	return targets, nil
}

func togglesFromContext(c *cli.Context) (yt_fetch.Toggles, error) {
	t := yt_fetch.DefaultToggles()
	var result error
	var err error
	if t.Mode, err = yt_fetch.ParseMode(c.String("mode")); err != nil {
		result = multierror.Append(result, err)
	}
	if t.Container, err = yt_fetch.ParseContainer(c.String("container")); err != nil {
		result = multierror.Append(result, err)
	}
	if browser := c.String("cookies-from-browser"); browser != "" {
		if t.CookiesFromBrowser, err = yt_fetch.ParseBrowser(browser); err != nil {
			result = multierror.Append(result, err)
		}
	}
	t.OutputDir = c.String("out")
	t.Flat = c.Bool("flat")
	t.ArchivePath = c.String("archive")
	t.NoArchive = c.Bool("no-archive")
	t.NoMetadata = c.Bool("no-metadata")
	if c.Bool("aria2c") && !c.Bool("no-aria2c") {
		t.Transport = yt_fetch.TransportAria2c
	}
	t.Subtitles = c.Bool("subs")
	t.Verbose = c.Bool("verbose")
	t.ForceIPv4 = c.Bool("force-ipv4")
	t.CookiesFile = c.String("cookies-file")
	t.Retries = c.Int("retries")
	t.FragmentRetries = c.Int("fragment-retries")
	t.Sleep = c.Float64("sleep")
	t.SleepMax = c.Float64("sleep-max")
	t.KeepVideo = c.Bool("keep-video")
	t.Redownload = c.Bool("redownload")
	if result != nil {
		return t, result
	}
	return t, t.Validate()
}

func logToggles(log *zap.SugaredLogger, t yt_fetch.Toggles) {
	changes, err := diff.Diff(yt_fetch.DefaultToggles(), t)
	if err != nil {
		log.Debugf("failed to diff toggles against defaults: %v", err)
		return
	}
	for _, change := range changes {
		log.Debugf("%v: %#v -> %#v", strings.Join(change.Path, "."), change.From, change.To)
	}
}

func (r *runner) openHistory(c *cli.Context, log *zap.SugaredLogger) history.Store {
	if c.Bool("no-history") || r.deps.OpenHistory == nil {
		return history.NilStore{}
	}
	path := c.String("history")
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			log.Warnf("run history disabled: %v", err)
			return history.NilStore{}
		}
	}
	store, err := r.deps.OpenHistory(path)
	if err != nil {
		log.Warnf("run history disabled: %v", err)
		return history.NilStore{}
	}
	return store
}

func (r *runner) action(c *cli.Context) error {
	targets, err := targetsFromContext(c)
	if err != nil {
		return err
	}
	toggles, err := togglesFromContext(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitBadInput)
	}
	capability, err := r.deps.DetectCapability(c.String("progress"))
	if err != nil {
		return cli.Exit(err.Error(), ExitBadInput)
	}

	runID := uuid.New()
	logger := zap.L().With(zap.String("run", runID.String()))
	ctx := yt_fetch.WithLogger(c.Context, logger)
	log := logger.Sugar()
	log.Debugf("%d target(s), progress: %v", len(targets), capability)
	logToggles(log, toggles)

	store := r.openHistory(c, log)
	defer store.Close()
	entry := &history.Entry{
		ID:        runID.String(),
		StartedAt: time.Now(),
		DryRun:    c.Bool("dry-run"),
		Targets:   yt_fetch.TargetStrings(targets),
		Total:     len(targets),
	}

	if entry.DryRun {
		err = r.dryRun(ctx, c, capability, targets, entry)
	} else {
		err = r.realRun(ctx, c, capability, toggles, targets, entry)
	}

	entry.FinishedAt = time.Now()
	entry.ExitCode = ExitCode(err)
	if herr := store.Record(entry); herr != nil {
		log.Warnf("failed to record run history: %v", herr)
	}
	return err
}

// dryRun lists what the targets resolve to. It fails only on bad input, never because targets fail to resolve.
func (r *runner) dryRun(ctx context.Context, c *cli.Context, capability progress.Capability, targets []yt_fetch.Target, entry *history.Entry) error {
	extractor, err := r.deps.NewExtractor(c.String("resolver"), c.String("engine-path"))
	if err != nil {
		return cli.Exit(err.Error(), ExitBadInput)
	}
	_, _ = fmt.Fprintf(r.deps.Stdout, "yt-fetch dry-run: resolving %d item(s)...\n", len(targets))
	// A bar draws on stderr; plain step lines belong with the listing
	progressOut := r.deps.Stdout
	if capability == progress.CapabilityBar {
		progressOut = r.deps.Stderr
	}
	records, err := dryrun.NewResolver(extractor, capability, progressOut).Resolve(ctx, targets)
	entry.Completed = len(targets)
	var failures *multierror.Error
	if errors.As(err, &failures) {
		entry.Completed -= len(failures.Errors)
	}
	if err := dryrun.Render(r.deps.Stdout, capability, records); err != nil {
		yt_fetch.Logger(ctx).Sugar().Warnf("failed to write listing: %v", err)
	}
	return nil
}

func (r *runner) realRun(ctx context.Context, c *cli.Context, capability progress.Capability, toggles yt_fetch.Toggles, targets []yt_fetch.Target, entry *history.Entry) error {
	cfg, err := yt_fetch.BuildRunConfig(toggles)
	if err != nil {
		return cli.Exit(err.Error(), ExitBadInput)
	}
	log := yt_fetch.Logger(ctx).Sugar()
	state := run.NewState(len(targets))
	code := ExitFailure
	var runErr error

	err = download.WithWorkspace(func(w *download.Workspace) error {
		if capability == progress.CapabilityBar && len(targets) > 1 {
			state.Attach(progress.New(capability, r.deps.Stderr, len(targets), "Downloading"))
		}
		defer func() {
			if indicator := state.Detach(); indicator != nil {
				_ = indicator.Close()
			}
		}()
		downloader := r.deps.NewDownloader(c.String("engine-path"), w.TempDir())
		hooks := engine.Hooks{
			Logger:     run.NewEngineLogger(state, toggles.Verbose, log),
			OnProgress: state.OnProgress,
		}
		code, runErr = downloader.Download(ctx, cfg, targets, hooks)
		return nil
	}, download.WithTargetDir(cfg.OutputDir))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to prepare output directory: %v", err), ExitFailure)
	}

	if runErr != nil {
		code = ExitFailure
		if run.MatchTranscodeError(runErr) {
			printEngineErrorHint(r.deps.Stderr)
		}
	}
	snapshot := state.Snapshot()
	entry.Completed = snapshot.Completed
	entry.Forbidden = snapshot.Forbidden
	entry.TranscodeTrouble = snapshot.TranscodeTrouble
	reportHints(r.deps.Stderr, snapshot, code)

	switch {
	case runErr != nil:
		return cli.Exit(runErr.Error(), ExitFailure)
	case code != 0:
		log.Debugf("engine exited with code %d", code)
		return cli.Exit("", ExitFailure)
	default:
		return nil
	}
}
