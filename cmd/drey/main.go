package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreylabs/drey/pkg/client"
	"github.com/dreylabs/drey/pkg/events"
	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/manager"
	"github.com/dreylabs/drey/pkg/reconciler"
	"github.com/dreylabs/drey/pkg/runtime"
	"github.com/dreylabs/drey/pkg/worker"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drey",
	Short: "Drey - a minimal container-workload orchestrator",
	Long: `Drey is a teaching-grade container orchestrator. A manager accepts
task submissions, assigns each one to a worker round-robin, and workers
drive the tasks through the Docker runtime while the manager folds their
state back into its own view.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Drey version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(managerCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch a worker's host telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("worker")

		ctx, cancel := context.WithTimeout(context.Background(), client.DefaultTimeout)
		defer cancel()

		payload, err := client.New().GetStats(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %v", err)
		}

		fmt.Println(string(payload))
		return nil
	},
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the drey manager",
	Long: `Run the manager: the submission API, the dispatcher, and the
periodic reconciler that polls workers for task state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		workerList, _ := cmd.Flags().GetString("workers")

		var endpoints []string
		for _, w := range strings.Split(workerList, ",") {
			if w = strings.TrimSpace(w); w != "" {
				endpoints = append(endpoints, w)
			}
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		go logEvents(broker.Subscribe())

		mgr := manager.New(manager.Config{Workers: endpoints, Broker: broker})
		api := manager.NewAPI(mgr, addr)

		rec := reconciler.New(mgr)
		rec.Start()
		defer rec.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- api.Start() }()

		log.Logger.Info().
			Str("addr", addr).
			Strs("workers", endpoints).
			Msg("Manager running")

		if err := waitForShutdown(errCh); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return api.Shutdown(ctx)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a drey worker",
	Long: `Run a worker: the task API, the reconciliation loop driving the
Docker runtime, and the host telemetry sampler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		name, _ := cmd.Flags().GetString("name")

		// The worker cannot execute anything without a runtime; an
		// unreachable daemon at startup is fatal.
		rt, err := runtime.NewClient()
		if err != nil {
			return fmt.Errorf("runtime unavailable: %w", err)
		}
		rt.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		go logEvents(broker.Subscribe())

		w := worker.New(worker.Config{Name: name, Broker: broker})
		api := worker.NewAPI(w, addr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.RunTasks(ctx)
		go w.CollectStatsLoop(ctx)

		errCh := make(chan error, 1)
		go func() { errCh <- api.Start() }()

		log.Logger.Info().
			Str("addr", addr).
			Str("name", name).
			Msg("Worker running")

		if err := waitForShutdown(errCh); err != nil {
			return err
		}

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return api.Shutdown(shutdownCtx)
	},
}

func init() {
	managerCmd.Flags().String("addr", "localhost:7070", "Manager API listen address")
	managerCmd.Flags().String("workers", "localhost:8080", "Comma-separated worker endpoints")

	workerCmd.Flags().String("addr", "localhost:8080", "Worker API listen address")
	workerCmd.Flags().String("name", "default-worker", "Worker name")

	statsCmd.Flags().String("worker", "localhost:8080", "Worker endpoint")
}

// waitForShutdown blocks until a termination signal arrives or the server
// fails on its own.
func waitForShutdown(errCh <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// logEvents drains a broker subscription into the log.
func logEvents(sub events.Subscriber) {
	for event := range sub {
		log.Logger.Debug().
			Str("event", string(event.Type)).
			Str("task_id", event.TaskID).
			Str("worker", event.Worker).
			Str("message", event.Message).
			Msg("Event")
	}
}
