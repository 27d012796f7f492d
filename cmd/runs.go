package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecas/core/solver"
	"github.com/kilianp07/ecas/infra/runlog"
)

var runsOpts struct {
	since    time.Duration
	until    time.Duration
	statuses []string
	instance string
	limit    int
	json     bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.DurationVar(&runsOpts.since, "since", 0, "only runs newer than this age, e.g. 24h")
	f.DurationVar(&runsOpts.until, "until", 0, "only runs older than this age")
	f.StringSliceVar(&runsOpts.statuses, "status", nil, "only runs with these statuses")
	f.StringVar(&runsOpts.instance, "instance", "", "only runs of this instance")
	f.IntVar(&runsOpts.limit, "limit", 20, "keep the most recent runs, 0 for all")
	f.BoolVar(&runsOpts.json, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	q := runlog.Query{Instance: runsOpts.instance, Limit: runsOpts.limit}
	now := time.Now()
	if runsOpts.since > 0 {
		q.Start = now.Add(-runsOpts.since)
	}
	if runsOpts.until > 0 {
		q.End = now.Add(-runsOpts.until)
	}
	for _, s := range runsOpts.statuses {
		st, err := solver.ParseStatus(strings.ToUpper(strings.TrimSpace(s)))
		if err != nil {
			return err
		}
		q.Statuses = append(q.Statuses, st)
	}

	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsOpts.json {
		enc := json.NewEncoder(out)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tINSTANCE\tENGINE\tFRAGMENTATION\tSTATUS\tOBJECTIVE\tWALL")
	for _, r := range recs {
		obj := "-"
		if r.Stats.ObjectiveValue != nil {
			obj = fmt.Sprintf("%.4f", *r.Stats.ObjectiveValue)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Timestamp.Local().Format(time.DateTime), r.Instance, r.Engine,
			r.Fragmentation, r.Stats.Status, obj, r.Stats.WallTime.Round(time.Millisecond))
	}
	return tw.Flush()
}
