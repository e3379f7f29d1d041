package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/leakwatch/leakwatch/internal/cli"
	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/engine"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file-id>",
		Short: "Run forecast and leak analysis for a file",
		Long: `Run the analysis pipeline for an imported file.

The forecast and leak phase prints its report first; the walk-forward
baseline phase then runs before the command exits. Pass --wait to see
baseline progress and a summary. Only one analysis per file can run at
a time.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().BoolP("wait", "w", false, "Show baseline progress and a completion summary")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fileID := args[0]
	wait, _ := cmd.Flags().GetBool("wait")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	var opts []engine.Option
	var bar *progressbar.ProgressBar
	if wait {
		opts = append(opts, engine.WithBaselineProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("baselines"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}))
	}

	eng := engine.New(store, store, opts...)

	result, err := eng.Analyze(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrAnalysisInProgress) {
			return common.NewUserError(
				fmt.Sprintf("an analysis for %s is already running; check 'leakwatch status %s'", fileID, fileID), err)
		}
		return err
	}

	cmd.Println(cli.RenderLeakReport(result.Leak))

	if len(result.SkippedCategories) > 0 {
		cmd.Println(cli.WarningStyle.Render(
			fmt.Sprintf("Skipped for insufficient data: %v", result.SkippedCategories)))
	}
	for category, msg := range result.FailedCategories {
		cmd.Println(cli.ErrorStyle.Render(
			fmt.Sprintf("Model failed for %s: %s", category, msg)))
	}

	thresholds, err := store.GetDoojoThresholds(ctx, fileID, result.Period)
	if err != nil {
		return fmt.Errorf("failed to load thresholds: %w", err)
	}
	cmd.Println(cli.RenderThresholds(thresholds))

	// The baseline phase runs on a background goroutine; the process
	// has to outlive it either way.
	eng.Wait()

	if wait {
		runs, err := store.GetBaselineRuns(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to load baseline runs: %w", err)
		}
		completed := 0
		for _, run := range runs {
			if run.Status == model.BaselineCompleted {
				completed++
			}
		}
		cmd.Printf("Baselines ready: %d months (%d with enough data)\n", len(runs), completed)
	}

	return nil
}
