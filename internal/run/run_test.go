package run

import (
	"errors"
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alanbriolat/yt-fetch/internal/engine"
	"github.com/alanbriolat/yt-fetch/internal/progress"
)

type fakeIndicator struct {
	sets   []int
	closed bool
}

func (f *fakeIndicator) Set(completed int, _ string) error {
	if f.closed {
		return progress.ErrClosed
	}
	f.sets = append(f.sets, completed)
	return nil
}

func (f *fakeIndicator) Close() error {
	f.closed = true
	return nil
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestState_Finished(t *testing.T) {
	assert := assert_.New(t)
	s := NewState(3)

	assert.NotPanics(func() {
		s.OnProgress(engine.ProgressEvent{Status: engine.StatusFinished})
	}, "no indicator attached")
	assert.Equal(1, s.Snapshot().Completed)

	s.OnProgress(engine.ProgressEvent{Status: engine.StatusDownloading})
	s.OnProgress(engine.ProgressEvent{Status: engine.StatusPostProcessing})
	assert.Equal(1, s.Snapshot().Completed, "only finished counts")

	ind := &fakeIndicator{}
	s.Attach(ind)
	s.OnProgress(engine.ProgressEvent{Status: engine.StatusFinished})
	assert.Equal(2, s.Snapshot().Completed)
	assert.Equal([]int{2}, ind.sets)
}

func TestState_NeverExceedsTotal(t *testing.T) {
	assert := assert_.New(t)
	s := NewState(2)
	for i := 0; i < 5; i++ {
		s.OnProgress(engine.ProgressEvent{Status: engine.StatusFinished})
	}
	assert.Equal(2, s.Snapshot().Completed)
	assert.Equal(2, s.Snapshot().Total)
}

func TestState_ClosedIndicatorIgnored(t *testing.T) {
	assert := assert_.New(t)
	s := NewState(2)
	ind := &fakeIndicator{}
	s.Attach(ind)
	assert.NoError(ind.Close())
	assert.NotPanics(func() {
		s.OnProgress(engine.ProgressEvent{Status: engine.StatusFinished})
	})
	assert.Equal(1, s.Snapshot().Completed)
	assert.Equal(ind, s.Detach())
	assert.Nil(s.Detach())
}

func TestState_Concurrent(t *testing.T) {
	assert := assert_.New(t)
	s := NewState(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.OnProgress(engine.ProgressEvent{Status: engine.StatusFinished})
				s.NoteForbidden()
			}
		}()
	}
	wg.Wait()
	assert.Equal(1000, s.Snapshot().Completed)
	assert.True(s.SawForbidden())
}

func TestMatchForbidden(t *testing.T) {
	assert := assert_.New(t)
	assert.True(MatchForbidden("ERROR: unable to download video data: HTTP Error 403: Forbidden"))
	assert.True(MatchForbidden("http error 403"))
	assert.True(MatchForbidden("got HTTP 403 from server"))
	assert.True(MatchForbidden("HTTP403"))
	assert.False(MatchForbidden("HTTP Error 404: Not Found"))
	assert.False(MatchForbidden("HTTP Error 4031"))
	assert.False(MatchForbidden("downloaded 403 fragments"))
}

func TestMatchTranscode(t *testing.T) {
	assert := assert_.New(t)
	assert.True(MatchTranscodeTrouble("WARNING: FFmpeg not found"))
	assert.True(MatchTranscodeTrouble("ERROR: PostProcessing: Conversion failed!"))
	assert.False(MatchTranscodeTrouble("ERROR: Post-processing failed"))
	assert.True(MatchTranscodeError(errors.New("Post-processing failed")))
	assert.False(MatchTranscodeError(errors.New("network unreachable")))
	assert.False(MatchTranscodeError(nil))
}

func TestEngineLogger_Signals(t *testing.T) {
	assert := assert_.New(t)
	log, logs := observedLogger()
	s := NewState(1)
	l := NewEngineLogger(s, false, log)

	l.Warning("WARNING: [youtube] x: HTTP Error 404: Not Found")
	assert.False(s.SawForbidden())

	l.Warning("WARNING: [youtube] x: HTTP Error 403: Forbidden")
	assert.True(s.SawForbidden(), "flags are set regardless of verbosity")
	assert.False(s.SawTranscodeTrouble())

	l.Error("ERROR: Postprocessing: ffmpeg exited with code 1")
	assert.True(s.SawTranscodeTrouble())

	l.Info("[youtube] x: Downloading webpage")
	l.Debug("[debug] something")

	// Only the error is echoed when not verbose
	assert.Equal(1, logs.Len())
	assert.Equal("ERROR: Postprocessing: ffmpeg exited with code 1", logs.All()[0].Message)
}

func TestEngineLogger_Verbose(t *testing.T) {
	assert := assert_.New(t)
	log, logs := observedLogger()
	l := NewEngineLogger(NewState(1), true, log)
	l.Debug("d")
	l.Info("i")
	l.Warning("w")
	l.Error("e")
	assert.Equal(4, logs.Len())
}
