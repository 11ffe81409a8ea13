// Command adw-worker runs the polling daemon that claims pending issues from
// the issue store and spawns the `adw` pipeline driver for each one it
// claims, looping until terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudshipai/adw/internal/adwutil"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/issuestore/sqlitestore"
	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/internal/notify/embeddednats"
	"github.com/cloudshipai/adw/internal/worker"
)

var (
	workerID        string
	pollInterval    time.Duration
	workflowTimeout time.Duration
	logLevel        string
	workingDir      string
	adwCommand      string
	gcSchedule      string
	gcRetention     time.Duration
	startEmbedded   bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "adw-worker",
		Short: "Poll for pending issues and drive the ADW pipeline for each one",
		RunE:  runWorker,
	}

	cmd.Flags().StringVar(&workerID, "worker-id", defaultWorkerID(), "identifier this worker claims issues under")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 10*time.Second, "how often to poll for pending issues")
	cmd.Flags().DurationVar(&workflowTimeout, "workflow-timeout", time.Hour, "how long a single pipeline run may take before being killed")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARN, or ERROR")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "directory to chdir into before running (defaults to the current directory)")
	cmd.Flags().StringVar(&adwCommand, "adw-command", "", "override the pipeline driver command (otherwise ADW_COMMAND, then PATH)")
	cmd.Flags().StringVar(&gcSchedule, "gc-schedule", "0 3 * * *", "cron schedule for pruning old workflow directories")
	cmd.Flags().DurationVar(&gcRetention, "gc-retention", 7*24*time.Hour, "how long a workflow directory is kept before pruning")
	cmd.Flags().BoolVar(&startEmbedded, "embedded-nats", false, "start an embedded NATS server for the comment mirror instead of dialing NATS_URL")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		return "worker-local"
	}
	return "worker-" + host
}

func runWorker(cmd *cobra.Command, args []string) error {
	logging.Initialize(logLevel == "DEBUG")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dataRoot := adwutil.DataRoot()
	dbPath := cfg.DatabaseURL
	if dbPath == "" {
		dbPath = dataRoot + "/issues.db"
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open issue store: %w", err)
	}

	if startEmbedded {
		nats := embeddednats.New(4222, 8222, dataRoot)
		if err := nats.Start(); err != nil {
			return fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		defer nats.Shutdown()
		os.Setenv("NATS_URL", nats.ClientURL())
		logging.Info("adw-worker: embedded NATS server listening at %s", nats.ClientURL())
	}

	workerCfg := worker.Config{
		WorkerID:        workerID,
		PollInterval:    pollInterval,
		LogLevel:        logLevel,
		WorkflowTimeout: workflowTimeout,
		WorkingDir:      workingDir,
	}

	driverOverride := adwCommand
	if driverOverride == "" {
		driverOverride = cfg.AdwCommand
	}
	driver := worker.ResolveDriverCommand(driverOverride)
	appRoot := cfg.AppRoot
	if appRoot == "" {
		appRoot = adwutil.AppRoot()
	}

	w, err := worker.New(workerCfg, store, driver, appRoot,
		worker.WithJanitor(adwutil.WorkflowsDir(dataRoot), gcSchedule, gcRetention))
	if err != nil {
		return fmt.Errorf("failed to build worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}
