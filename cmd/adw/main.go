// Command adw drives a single pipeline run: it resolves a workflow type
// (main, patch, or codereview) against the registered pipelines, builds the
// dependency collaborators every step needs, and executes the run via
// internal/runner. It also exposes operator subcommands for inspecting the
// artifact store and step registry without running a pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudshipai/adw/internal/adwutil"
	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/agent/claude"
	"github.com/cloudshipai/adw/internal/agent/opencode"
	"github.com/cloudshipai/adw/internal/artifacts"
	"github.com/cloudshipai/adw/internal/comments"
	"github.com/cloudshipai/adw/internal/comments/natsmirror"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/issuestore/sqlitestore"
	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/internal/pipelines"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/runner"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/internal/steps/adw"
	"github.com/cloudshipai/adw/pkg/models"
)

var (
	adwID        string
	workflowType string
	rerunFrom    string
	singleStep   string
	debugMode    bool
)

func main() {
	root := &cobra.Command{
		Use:   "adw [issue_id]",
		Short: "Run an ADW pipeline against a single issue",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPipeline,
	}
	root.Flags().StringVar(&adwID, "adw-id", "", "workflow ID to use (generated if omitted)")
	root.Flags().StringVar(&workflowType, "workflow-type", "main", "pipeline to run: main, patch, or codereview")
	root.Flags().StringVar(&rerunFrom, "rerun-from", "", "step name to re-enter the run at")
	root.Flags().StringVar(&singleStep, "single-step", "", "run exactly one step by name instead of the full pipeline")
	root.Flags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	root.AddCommand(artifactCmd())
	root.AddCommand(stepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the process-wide collaborators every subcommand shares:
// configuration, the issue store, agent providers, the comment notifier, and
// the two registries (steps and pipelines).
type bootstrap struct {
	cfg       *config.Config
	issues    issuestore.Store
	steps     *steps.Registry
	pipelines *pipelines.Registry
	notifier  *comments.Notifier
	dataRoot  string
}

func newBootstrap() (*bootstrap, error) {
	logging.Initialize(debugMode)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dataRoot := adwutil.DataRoot()
	if cfg.AppRoot == "" {
		cfg.AppRoot = adwutil.AppRoot()
	}

	dbPath := cfg.DatabaseURL
	if dbPath == "" {
		dbPath = dataRoot + "/issues.db"
	}
	issueStore, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open issue store: %w", err)
	}

	var mirror comments.Mirror
	if cfg.NATSURL != "" {
		m, err := natsmirror.Connect(cfg.NATSURL)
		if err != nil {
			logging.Warn("comment NATS mirror disabled: %v", err)
		} else {
			mirror = m
		}
	}
	notifier := comments.New(issueStore, mirror)

	agents := agent.NewRegistry()
	agents.Register("claude", claude.New(cfg.ClaudeCodePath, cfg.AppRoot, dataRoot))
	agents.Register("opencode", opencode.New(cfg.OpenCodePath, adwutil.AgentLogsDir(dataRoot)))

	deps := adw.Deps{Agents: agents, Config: cfg, Notifier: notifier, Issues: issueStore}

	stepRegistry := steps.NewRegistry()
	if err := adw.RegisterMain(stepRegistry, deps, adw.Options{
		AppRoot:             cfg.AppRoot,
		DefaultGitBranch:    cfg.DefaultGitBranch,
		AllowDestructiveGit: cfg.AllowDestructiveGitOps,
	}); err != nil {
		return nil, fmt.Errorf("failed to register main pipeline steps: %w", err)
	}
	if err := adw.RegisterPatch(stepRegistry, deps); err != nil {
		return nil, fmt.Errorf("failed to register patch pipeline steps: %w", err)
	}

	pipelineRegistry := pipelines.NewRegistry()
	pipelines.RegisterDefaults(pipelineRegistry)

	return &bootstrap{
		cfg:       cfg,
		issues:    issueStore,
		steps:     stepRegistry,
		pipelines: pipelineRegistry,
		notifier:  notifier,
		dataRoot:  dataRoot,
	}, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	boot, err := newBootstrap()
	if err != nil {
		return err
	}

	var issueID *int64
	if len(args) == 1 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid issue id %q: %w", args[0], err)
		}
		issueID = &n
	}

	id := adwID
	if id == "" {
		id = adwutil.NewWorkflowID()
	}

	parentWorkflowID := ""
	if parent, ok := models.ParentWorkflowID(id); ok {
		parentWorkflowID = parent
	}

	store, err := artifacts.Open(adwutil.WorkflowsDir(boot.dataRoot), id, parentWorkflowID)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	wfCtx := runctx.New(id, issueID, store, parentWorkflowID)

	names, err := boot.pipelines.GetPipeline(workflowType, boot.cfg.Platform)
	if err != nil {
		return err
	}
	pipeline, err := pipelines.StepsFor(names, boot.steps)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if singleStep != "" {
		m, ok := boot.steps.GetByName(singleStep)
		if !ok {
			return fmt.Errorf("unknown step %q", singleStep)
		}
		result := runner.RunSingleStep(ctx, m, wfCtx)
		return resultToExit(result)
	}

	if rerunFrom != "" {
		idx := -1
		for i, m := range pipeline {
			if m.Step.Name() == rerunFrom {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("rerun_from step %q is not in the %q pipeline", rerunFrom, workflowType)
		}
		pipeline = pipeline[idx:]
	}

	result := runner.Run(ctx, pipeline, wfCtx)
	return resultToExit(result)
}

func resultToExit(result runner.Result) error {
	if !result.Success {
		logging.Error("pipeline failed at %q: %s", result.FailedStep, result.FailureError)
		os.Exit(1)
	}
	return nil
}
