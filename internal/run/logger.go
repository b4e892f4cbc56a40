package run

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/yt-fetch/internal/engine"
)

var (
	reForbidden = regexp.MustCompile(`(?i)\bHTTP(?:\s+Error)?\s*403\b`)

	// Broader than the log check: an engine failure mentioning post-processing in any spelling.
	reTranscodeError = regexp.MustCompile(`(?i)(ffmpeg|postprocess|post-processing)`)
)

// MatchForbidden reports whether msg describes an HTTP 403 response.
func MatchForbidden(msg string) bool {
	return reForbidden.MatchString(msg)
}

// MatchTranscodeTrouble reports whether a log message mentions the transcoding tool or post-processing.
func MatchTranscodeTrouble(msg string) bool {
	s := strings.ToLower(msg)
	return strings.Contains(s, "ffmpeg") || strings.Contains(s, "postprocess")
}

// MatchTranscodeError reports whether an engine failure looks like a transcoding or post-processing problem.
func MatchTranscodeError(err error) bool {
	return err != nil && reTranscodeError.MatchString(err.Error())
}

// EngineLogger is the engine.Logger for one run. Warnings and errors are always inspected for signals; echoing
// engine output is gated by verbosity, except errors which are always shown.
type EngineLogger struct {
	state   *State
	verbose bool
	log     *zap.SugaredLogger
}

var _ engine.Logger = (*EngineLogger)(nil)

func NewEngineLogger(state *State, verbose bool, log *zap.SugaredLogger) *EngineLogger {
	if log == nil {
		log = zap.S()
	}
	return &EngineLogger{state: state, verbose: verbose, log: log.Named("engine")}
}

func (l *EngineLogger) Debug(msg string) {
	if l.verbose {
		l.log.Debug(msg)
	}
}

func (l *EngineLogger) Info(msg string) {
	if l.verbose {
		l.log.Info(msg)
	}
}

func (l *EngineLogger) Warning(msg string) {
	l.inspect(msg)
	if l.verbose {
		l.log.Warn(msg)
	}
}

func (l *EngineLogger) Error(msg string) {
	l.inspect(msg)
	l.log.Error(msg)
}

func (l *EngineLogger) inspect(msg string) {
	if MatchForbidden(msg) {
		l.state.NoteForbidden()
	}
	if MatchTranscodeTrouble(msg) {
		l.state.NoteTranscodeTrouble()
	}
}
