package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Report bundles everything exported for one file and month.
type Report struct {
	Leak       *model.LeakRecord
	FileID     string
	Period     model.Period
	Forecasts  []model.CategoryForecast
	Thresholds []model.DoojoThreshold
	Baselines  []model.BaselineRun
}

// Writer exports analysis reports to Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// Write pushes the report into the configured spreadsheet, replacing
// its previous contents.
func (w *Writer) Write(ctx context.Context, report *Report) error {
	w.logger.Info("starting report export",
		"file_id", report.FileID,
		"period", report.Period.String())

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := w.prepareReportData(report)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Report",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays the report out as spreadsheet rows.
func (w *Writer) prepareReportData(report *Report) [][]any {
	values := [][]any{
		{"Spending Leak Report", report.Period.String()},
		{"File", report.FileID},
		{},
	}

	if report.Leak != nil {
		values = append(values,
			[]any{"Leak Summary"},
			[]any{"Category", "Actual", "Baseline", "Leak", "Leak %", "Budget Applied"},
		)
		for _, entry := range report.Leak.Breakdown {
			values = append(values, []any{
				entry.Category,
				entry.Actual,
				entry.Baseline,
				entry.LeakAmount,
				entry.LeakPercentage,
				entry.BudgetApplied,
			})
		}
		values = append(values,
			[]any{"Total", report.Leak.Actual, report.Leak.Predicted, report.Leak.LeakAmount},
			[]any{},
		)
	}

	if len(report.Forecasts) > 0 {
		values = append(values,
			[]any{"Forecasts"},
			[]any{"Category", "Period", "Predicted", "Lower", "Upper"},
		)
		for _, f := range report.Forecasts {
			values = append(values, []any{
				f.Category, f.Period.String(), f.Predicted, f.LowerBound, f.UpperBound,
			})
		}
		values = append(values, []any{})
	}

	if len(report.Thresholds) > 0 {
		values = append(values,
			[]any{"Thresholds"},
			[]any{"Category", "Min", "Max", "Avg", "Threshold", "Real", "Exceeded"},
		)
		for _, t := range report.Thresholds {
			row := []any{t.Category, t.MinAmount, t.MaxAmount, t.AvgAmount, t.CurrentThreshold}
			if t.RealAmount != nil {
				row = append(row, *t.RealAmount)
			} else {
				row = append(row, "")
			}
			if t.Result != nil {
				row = append(row, *t.Result)
			} else {
				row = append(row, "")
			}
			values = append(values, row)
		}
		values = append(values, []any{})
	}

	if len(report.Baselines) > 0 {
		values = append(values,
			[]any{"Baseline Months"},
			[]any{"Period", "Status", "Total", "Categories"},
		)
		for _, run := range report.Baselines {
			values = append(values, []any{
				run.Period.String(), string(run.Status), run.Total, run.CategoriesCount,
			})
		}
	}

	return values
}

// writeData writes the prepared rows starting at A1.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	valueRange := &sheets.ValueRange{Values: values}
	_, err := w.service.Spreadsheets.Values.
		Update(spreadsheetID, "A1", valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}
