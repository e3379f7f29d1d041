package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leakwatch/leakwatch/internal/cli"
	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/sheets"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <file-id>",
		Short: "Show a stored analysis report",
		Long: `Print the stored forecast, leak and threshold report for a file.

Pass --sheets to also export the report to Google Sheets; credentials
come from GOOGLE_SHEETS_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().String("period", "", "month to report on, YYYY-MM (default: current month)")
	cmd.Flags().Bool("sheets", false, "Export the report to Google Sheets")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	fileID := args[0]
	periodFlag, _ := cmd.Flags().GetString("period")
	toSheets, _ := cmd.Flags().GetBool("sheets")

	period, err := parsePeriod(periodFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	record, err := store.GetLeakRecord(ctx, fileID, period)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(
				fmt.Sprintf("no analysis stored for %s in %s; run 'leakwatch analyze %s' first", fileID, period, fileID), err)
		}
		return fmt.Errorf("failed to load leak record: %w", err)
	}

	thresholds, err := store.GetDoojoThresholds(ctx, fileID, period)
	if err != nil {
		return fmt.Errorf("failed to load thresholds: %w", err)
	}

	cmd.Println(cli.RenderLeakReport(record))
	cmd.Println(cli.RenderThresholds(thresholds))

	if !toSheets {
		return nil
	}

	forecasts, err := store.GetCategoryForecasts(ctx, fileID, period)
	if err != nil {
		return fmt.Errorf("failed to load forecasts: %w", err)
	}
	baselines, err := store.GetBaselineRuns(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to load baseline runs: %w", err)
	}

	config := sheets.DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, config, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	report := &sheets.Report{
		FileID:     fileID,
		Period:     period,
		Leak:       record,
		Forecasts:  forecasts,
		Thresholds: thresholds,
		Baselines:  baselines,
	}
	if err := writer.Write(ctx, report); err != nil {
		if common.IsRetryable(err) {
			return common.NewUserError("Google Sheets export timed out; try again", err)
		}
		return fmt.Errorf("failed to export report: %w", err)
	}

	cmd.Println(cli.SuccessStyle.Render("Report exported to Google Sheets."))
	return nil
}
