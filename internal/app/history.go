package app

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func (r *runner) history(c *cli.Context) error {
	store := r.openHistory(c, zap.S().Named("history"))
	defer store.Close()
	entries, err := store.List(c.Int("limit"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to read run history: %v", err), ExitFailure)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(r.deps.Stdout, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(r.deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tKIND\tDONE\tEXIT\tTARGETS")
	for _, e := range entries {
		kind := "download"
		if e.DryRun {
			kind = "dry-run"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), kind, e.Completed, e.Total, e.ExitCode, strings.Join(e.Targets, " "))
	}
	return tw.Flush()
}
