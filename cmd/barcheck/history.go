package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/report"
	"github.com/ternarybob/barcheck/internal/storage"
)

func historyCommand(args []string, stdout io.Writer) (int, error) {
	fs := newFlagSet("history", stdout)
	var (
		cfg   configFlags
		limit int
		prune time.Duration
	)
	cfg.register(fs)
	fs.IntVar(&limit, "limit", 10, "Number of runs to show, 0 for all")
	fs.IntVar(&limit, "n", 10, "Number of runs to show (shorthand)")
	fs.DurationVar(&prune, "prune", 0, "Delete runs older than this age before listing (e.g. 720h)")
	if err := parseFlags(fs, args); err != nil {
		return exitUsage, err
	}

	config, err := cfg.load(common.FlagOverrides{})
	if err != nil {
		return exitUsage, err
	}
	if !config.Storage.Badger.Enabled {
		return exitUsage, usagef("run history is disabled; set [storage.badger] enabled = true")
	}
	config.Storage.Badger.ResetOnStartup = false

	manager, err := storage.NewStorageManager(arbor.NewNoOpLogger(), config)
	if err != nil {
		return exitFail, err
	}
	defer manager.Close()
	runs := manager.RunStorage()

	ctx := context.Background()
	if prune > 0 {
		deleted, err := runs.DeleteRunsBefore(ctx, time.Now().Add(-prune))
		if err != nil {
			return exitFail, err
		}
		fmt.Fprintf(stdout, "pruned %d run(s) older than %s\n", deleted, prune)
	}

	records, err := runs.ListRuns(ctx, limit)
	if err != nil {
		return exitFail, err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return exitPass, nil
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tRESULT\tFAILED")
	for _, r := range records {
		summary := report.Summarize(r.Scenarios)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			summary.Line(),
			strings.Join(r.Failed(), ","),
		)
	}
	return exitPass, w.Flush()
}
