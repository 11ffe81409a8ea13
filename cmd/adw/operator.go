package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudshipai/adw/internal/adwutil"
	"github.com/cloudshipai/adw/internal/artifacts"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// artifactCmd groups operator subcommands for inspecting a workflow's
// artifact directory without running a pipeline.
func artifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect the artifact store for a workflow",
	}

	var workflowID string
	cmd.PersistentFlags().StringVar(&workflowID, "adw-id", "", "workflow ID (required)")

	openStore := func() (*artifacts.Store, error) {
		if workflowID == "" {
			return nil, fmt.Errorf("--adw-id is required")
		}
		dataRoot := adwutil.DataRoot()
		parentWorkflowID := ""
		if parent, ok := models.ParentWorkflowID(workflowID); ok {
			parentWorkflowID = parent
		}
		return artifacts.Open(adwutil.WorkflowsDir(dataRoot), workflowID, parentWorkflowID)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List artifact types present for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			types, err := store.List()
			if err != nil {
				return err
			}
			for _, t := range types {
				fmt.Println(t)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <type>",
		Short: "Print an artifact's fields as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			artifact, err := store.Read(models.ArtifactType(args[0]))
			if err != nil {
				return err
			}
			return printJSON(artifact)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <type>",
		Short: "Delete an artifact from the local workflow directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			existed, err := store.Delete(models.ArtifactType(args[0]))
			if err != nil {
				return err
			}
			if !existed {
				fmt.Fprintf(os.Stderr, "artifact %s did not exist\n", args[0])
			}
			return nil
		},
	}

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List every known artifact type",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range models.AllArtifactTypes() {
				shared := "patch-specific"
				if t.IsShared() {
					shared = "shared"
				}
				fmt.Printf("%-20s %s\n", t, shared)
			}
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path <type>",
		Short: "Print the filesystem path an artifact would live at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if info := store.InfoOf(models.ArtifactType(args[0])); info != nil {
				fmt.Println(info.Path)
				return nil
			}
			fmt.Printf("%s/%s.json (not yet written)\n", store.WorkflowDir(), args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd, typesCmd, pathCmd)
	return cmd
}

// stepCmd groups operator subcommands for inspecting the step registry.
func stepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Inspect and run individual pipeline steps",
	}

	buildRegistry := func() (*steps.Registry, error) {
		boot, err := newBootstrap()
		if err != nil {
			return nil, err
		}
		return boot.steps, nil
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered step",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tNAME\tCRITICAL\tDESCRIPTION")
			for _, name := range allStepNames(registry) {
				m, _ := registry.GetByName(name)
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", m.Slug, name, m.IsCritical, m.Description)
			}
			return w.Flush()
		},
	}

	depsCmd := &cobra.Command{
		Use:   "deps <name>",
		Short: "List a step's resolved upstream dependencies, in run order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry()
			if err != nil {
				return err
			}
			order, err := registry.ResolveDependencies(args[0])
			if err != nil {
				return err
			}
			for _, name := range order {
				fmt.Println(name)
			}
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry for unresolved dependencies and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry()
			if err != nil {
				return err
			}
			issues := registry.Validate()
			if len(issues) == 0 {
				fmt.Println("registry is healthy")
				return nil
			}
			for _, issue := range issues {
				fmt.Println(issue)
			}
			return fmt.Errorf("%d issue(s) found", len(issues))
		},
	}

	var runAdwID string
	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a single step against an existing workflow's artifact store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if runAdwID == "" {
				return fmt.Errorf("--adw-id is required")
			}
			singleStep = args[0]
			adwID = runAdwID
			return runPipeline(cmd, nil)
		},
	}
	runCmd.Flags().StringVar(&runAdwID, "adw-id", "", "workflow ID to run the step against (required)")

	cmd.AddCommand(listCmd, depsCmd, validateCmd, runCmd)
	return cmd
}

func allStepNames(registry *steps.Registry) []string {
	var names []string
	for _, n := range []string{
		steps.NameGitSetup, steps.NameFetchIssue, steps.NameFetchPatch, steps.NameClassify,
		steps.NamePlan, steps.NamePatchPlan, steps.NameImplement, steps.NameCodeReview,
		steps.NameReviewFix, steps.NameCodeQuality, steps.NameAcceptance, steps.NamePatchAcceptance,
		steps.NameComposeRequest, steps.NameGhPullRequest, steps.NameGlabPullRequest, steps.NameComposeCommits,
	} {
		if _, ok := registry.GetByName(n); ok {
			names = append(names, n)
		}
	}
	return names
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
