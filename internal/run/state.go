// Package run holds the mutable state of one invocation and the engine callbacks that feed it.
package run

import (
	"github.com/alanbriolat/yt-fetch/internal/engine"
	"github.com/alanbriolat/yt-fetch/internal/progress"
	"github.com/alanbriolat/yt-fetch/internal/sync_"
)

type counters struct {
	total     int
	completed int
	indicator progress.Indicator
}

// State is shared by every engine callback for the duration of a run. The engine adapter delivers callbacks from its
// own goroutine, so counters sit behind a mutex and the signal flags are Events.
type State struct {
	counters         *sync_.Mutexed[counters]
	forbidden        sync_.Event
	transcodeTrouble sync_.Event
}

func NewState(total int) *State {
	if total < 0 {
		total = 0
	}
	return &State{counters: sync_.NewMutexed(counters{total: total})}
}

// Attach sets the progress indicator updated on each finished item.
func (s *State) Attach(indicator progress.Indicator) {
	_ = s.counters.Locked(func(c *counters) error {
		c.indicator = indicator
		return nil
	})
}

// Detach removes and returns the attached indicator, if any.
func (s *State) Detach() progress.Indicator {
	var indicator progress.Indicator
	_ = s.counters.Locked(func(c *counters) error {
		indicator, c.indicator = c.indicator, nil
		return nil
	})
	return indicator
}

// OnProgress is the lifecycle callback. Each "finished" transition counts one completed item, up to the total.
// Indicator failures are ignored.
func (s *State) OnProgress(e engine.ProgressEvent) {
	if e.Status != engine.StatusFinished {
		return
	}
	_ = s.counters.Locked(func(c *counters) error {
		if c.completed < c.total {
			c.completed++
		}
		if c.indicator != nil {
			_ = c.indicator.Set(c.completed, e.Filename)
		}
		return nil
	})
}

// NoteForbidden records that the engine reported an access-forbidden response.
func (s *State) NoteForbidden() {
	s.forbidden.Set()
}

// NoteTranscodeTrouble records that the engine reported a transcoding or post-processing problem.
func (s *State) NoteTranscodeTrouble() {
	s.transcodeTrouble.Set()
}

func (s *State) SawForbidden() bool {
	return s.forbidden.IsSet()
}

func (s *State) SawTranscodeTrouble() bool {
	return s.transcodeTrouble.IsSet()
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Total            int
	Completed        int
	Forbidden        bool
	TranscodeTrouble bool
}

func (s *State) Snapshot() Snapshot {
	c := s.counters.Get()
	return Snapshot{
		Total:            c.total,
		Completed:        c.completed,
		Forbidden:        s.SawForbidden(),
		TranscodeTrouble: s.SawTranscodeTrouble(),
	}
}
