package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dreylabs/drey/pkg/events"
	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/manager"
	"github.com/dreylabs/drey/pkg/reconciler"
	"github.com/dreylabs/drey/pkg/runtime"
	"github.com/dreylabs/drey/pkg/task"
	"github.com/dreylabs/drey/pkg/worker"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a single-process manager + worker demo",
	Long: `Run one worker at localhost:8080 with a manager over it, then
submit three hello-world tasks and watch them execute.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().String("addr", "localhost:8080", "Worker API listen address")
	demoCmd.Flags().Int("tasks", 3, "Number of demo tasks to submit")

	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	taskCount, _ := cmd.Flags().GetInt("tasks")

	rt, err := runtime.NewClient()
	if err != nil {
		return fmt.Errorf("runtime unavailable: %w", err)
	}
	rt.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	go logEvents(broker.Subscribe())

	w := worker.New(worker.Config{Name: "default-worker", Broker: broker})
	api := worker.NewAPI(w, addr)

	mgr := manager.New(manager.Config{Workers: []string{addr}, Broker: broker})
	rec := reconciler.New(mgr)
	rec.Start()
	defer rec.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.RunTasks(ctx)
	go w.CollectStatsLoop(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- api.Start() }()

	// Give the worker API a moment to come up before dispatching.
	go func() {
		time.Sleep(2 * time.Second)

		for i := 0; i < taskCount; i++ {
			t := &task.Task{
				ID:    uuid.New(),
				Name:  fmt.Sprintf("demo-task-%d", i),
				State: task.Scheduled,
				Image: "hello-world:latest",
			}

			mgr.AddTask(manager.NewEvent(t, "scheduled"))
			if err := mgr.SendWork(ctx); err != nil {
				log.Logger.Error().Err(err).Str("task_id", t.ID.String()).Msg("Demo dispatch failed")
			}
		}
	}()

	log.Logger.Info().Str("addr", addr).Int("tasks", taskCount).Msg("Demo running")

	if err := waitForShutdown(errCh); err != nil {
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return api.Shutdown(shutdownCtx)
}
