package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/jobsync"
	"github.com/chatlens/chatlens/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List enabled schedules and their derived triggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJobs(cmd.Context())
	},
}

// listJobs inspects the store, not a live engine: the job table lives inside
// the worker process and is always derivable from the enabled schedules.
func listJobs(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	schedules, err := st.EnabledSchedules(ctx)
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		fmt.Println("no enabled schedules")
		return nil
	}

	for _, sched := range schedules {
		desc := color.RedString("invalid trigger")
		if tr, err := jobsync.TriggerFor(sched); err == nil {
			desc = tr.Describe()
		}
		lastRun := "never"
		if sched.LastRunAt != nil {
			lastRun = sched.LastRunAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-12s %-28s last run %s\n",
			color.CyanString(sched.ID), sched.Strategy, desc, lastRun)
	}
	return nil
}
