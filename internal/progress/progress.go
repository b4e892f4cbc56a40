// Package progress provides the live progress indicator shown while targets are resolved or downloaded. Which kind
// of indicator is available is decided once at startup as a Capability.
package progress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

var ErrClosed = errors.New("progress indicator closed")

// Capability is the kind of progress rendering the terminal supports.
type Capability int

const (
	// CapabilityPlain prints one line per step and renders listings line by line.
	CapabilityPlain Capability = iota
	// CapabilityBar draws an in-place progress bar and renders listings as a table.
	CapabilityBar
)

func (c Capability) String() string {
	switch c {
	case CapabilityBar:
		return "bar"
	default:
		return "plain"
	}
}

// Detect resolves a --progress setting ("auto", "bar" or "plain"). For "auto", a bar is used when f is a terminal.
func Detect(setting string, f *os.File) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "", "auto":
		if f != nil && term.IsTerminal(int(f.Fd())) {
			return CapabilityBar, nil
		}
		return CapabilityPlain, nil
	case "bar":
		return CapabilityBar, nil
	case "plain":
		return CapabilityPlain, nil
	default:
		return CapabilityPlain, fmt.Errorf("invalid progress setting %q (use auto, bar or plain)", setting)
	}
}

// Indicator shows how many of a known number of items are complete.
type Indicator interface {
	// Set updates the completed count; label describes the item that was just completed and may be empty.
	Set(completed int, label string) error
	// Close finishes the display. Set after Close returns ErrClosed.
	Close() error
}

// New creates the Indicator matching the capability, writing to w.
func New(c Capability, w io.Writer, total int, description string) Indicator {
	if c == CapabilityBar {
		return newBar(w, total, description)
	}
	return &lines{w: w, total: total}
}

type bar struct {
	bar    *progressbar.ProgressBar
	closed bool
}

func newBar(w io.Writer, total int, description string) *bar {
	return &bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(w)
			}),
		),
	}
}

func (b *bar) Set(completed int, _ string) error {
	if b.closed {
		return ErrClosed
	}
	return b.bar.Set(completed)
}

func (b *bar) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.bar.Finish()
}

type lines struct {
	w      io.Writer
	total  int
	closed bool
}

func (l *lines) Set(completed int, label string) error {
	if l.closed {
		return ErrClosed
	}
	if label == "" {
		_, err := fmt.Fprintf(l.w, "  [%d/%d]\n", completed, l.total)
		return err
	}
	_, err := fmt.Fprintf(l.w, "  [%d/%d] %s\n", completed, l.total, label)
	return err
}

func (l *lines) Close() error {
	l.closed = true
	return nil
}
