// Package dryrun resolves targets to a flat listing of items without downloading anything.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/yt-fetch"
	"github.com/alanbriolat/yt-fetch/generic"
	"github.com/alanbriolat/yt-fetch/internal/engine"
	"github.com/alanbriolat/yt-fetch/internal/progress"
)

const errorTitlePrefix = "[error resolving] "

// Record is one resolved item.
type Record struct {
	Title    string
	ID       string
	Uploader string
	Duration generic.Option[float64]
	URL      string
}

func recordFromInfo(info *engine.Info) Record {
	r := Record{
		Title:    info.Title,
		ID:       info.ID,
		Uploader: info.Uploader,
		URL:      info.WebpageURL,
	}
	if r.Uploader == "" {
		r.Uploader = info.Channel
	}
	if r.URL == "" {
		r.URL = info.URL
	}
	if info.Duration != nil {
		r.Duration = generic.Some(*info.Duration)
	}
	return r
}

// Collect flattens a resolution result: one Record per member of a collection, otherwise one Record.
func Collect(info *engine.Info) []Record {
	if info == nil {
		return nil
	}
	if !info.IsCollection() {
		return []Record{recordFromInfo(info)}
	}
	records := make([]Record, 0, len(info.Entries))
	for _, entry := range info.Entries {
		if entry == nil {
			continue
		}
		records = append(records, recordFromInfo(entry))
	}
	return records
}

// ErrorRecord is the placeholder for a target that could not be resolved.
func ErrorRecord(target string) Record {
	return Record{Title: errorTitlePrefix + target}
}

func (r Record) IsError() bool {
	return r.ID == "" && strings.HasPrefix(r.Title, errorTitlePrefix)
}

func (r Record) durationString() string {
	if d, ok := r.Duration.Get(); ok {
		return fmt.Sprintf("%ds", int64(d))
	}
	return "-"
}

type Resolver struct {
	extractor  engine.Extractor
	capability progress.Capability
	progress   io.Writer
}

func NewResolver(extractor engine.Extractor, capability progress.Capability, progressOut io.Writer) *Resolver {
	return &Resolver{
		extractor:  extractor,
		capability: capability,
		progress:   progressOut,
	}
}

// Resolve resolves every target in order. A target that fails to resolve yields an ErrorRecord and the batch
// continues; the returned error aggregates those failures and is informational only.
func (r *Resolver) Resolve(ctx context.Context, targets []yt_fetch.Target) ([]Record, error) {
	log := yt_fetch.Logger(ctx).Sugar().Named("dryrun")
	indicator := progress.New(r.capability, r.progress, len(targets), "Resolving")
	defer indicator.Close()

	var records []Record
	var failures *multierror.Error
	for i, target := range targets {
		result := generic.NewResult(r.extractor.Extract(ctx, target.String()))
		if result.IsErr() {
			log.Debugw("failed to resolve target", "target", target.String(), "error", result.Error)
			failures = multierror.Append(failures, fmt.Errorf("%v: %w", target, result.Error))
			records = append(records, ErrorRecord(target.String()))
		} else {
			records = append(records, Collect(result.Value)...)
		}
		_ = indicator.Set(i+1, target.String())
	}
	return records, failures.ErrorOrNil()
}

// Render writes the listing: a table for CapabilityBar, one line per record otherwise.
func Render(w io.Writer, capability progress.Capability, records []Record) error {
	if capability == progress.CapabilityBar {
		return renderTable(w, records)
	}
	return renderLines(w, records)
}

func renderTable(w io.Writer, records []Record) error {
	if _, err := fmt.Fprintln(w, "yt-fetch dry-run (no downloads)"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tTITLE\tID\tUPLOADER\tDURATION\tURL")
	for i, r := range records {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, r.Title, r.ID, r.Uploader, r.durationString(), r.URL)
	}
	return tw.Flush()
}

func renderLines(w io.Writer, records []Record) error {
	if _, err := fmt.Fprintln(w, "\nyt-fetch dry-run (no downloads):"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "- %s [%s] | %s | %s | %s\n", r.Title, r.ID, r.Uploader, r.durationString(), r.URL); err != nil {
			return err
		}
	}
	return nil
}
