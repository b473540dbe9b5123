package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/controlplane"
	"github.com/chatlens/chatlens/internal/deliver"
	"github.com/chatlens/chatlens/internal/executor"
	"github.com/chatlens/chatlens/internal/jobsync"
	"github.com/chatlens/chatlens/internal/metrics"
	"github.com/chatlens/chatlens/internal/store"
	"github.com/chatlens/chatlens/internal/summarize"
	"github.com/chatlens/chatlens/internal/trigger"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the schedule orchestration worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScheduler()
	},
}

// runScheduler is the composition root: exactly one process per deployment
// runs this with the leader role, which keeps the job table unique.
func runScheduler() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Scheduler.IsLeader() {
		return fmt.Errorf("scheduler: role %q is not %q; refusing to own the job table", cfg.Scheduler.Role, config.RoleLeader)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := trigger.NewEngine()
	defer engine.Stop()

	exec := executor.New(
		st,
		engine,
		summarize.NewYandexGPT(cfg.Summary),
		deliver.NewTelegram(),
		metrics.NewStoreRecorder(st.DB()),
	)
	sync := jobsync.New(st, engine, exec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sync.ColdStart(ctx); err != nil {
		return err
	}

	source := controlplane.NewKafkaSource(cfg.Broker)
	defer source.Close()
	consumer := controlplane.NewConsumer(source, sync, cfg.Broker.RetryDelay)

	slog.Info("scheduler: worker running", "store", cfg.Store.Path, "topic", cfg.Broker.Topic)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("scheduler: worker stopped")
	return nil
}
