package cli

import (
	"fmt"
	"strings"

	"github.com/leakwatch/leakwatch/internal/model"
)

// RenderLeakReport formats the monthly leak record as a terminal table.
func RenderLeakReport(record *model.LeakRecord) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Leak report %s", record.Period)))
	b.WriteString("\n")

	header := fmt.Sprintf("%-20s %12s %12s %12s %8s", "Category", "Actual", "Baseline", "Leak", "Leak %")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, entry := range record.Breakdown {
		name := entry.Category
		if entry.BudgetApplied {
			name += " *"
		}
		line := fmt.Sprintf("%-20s %12.2f %12.2f %12.2f %7.1f%%",
			name, entry.Actual, entry.Baseline, entry.LeakAmount, entry.LeakPercentage)
		if entry.LeakAmount > 0 {
			b.WriteString(LeakStyle.Render(line))
		} else {
			b.WriteString(TableCellStyle.Render(line))
		}
		b.WriteString("\n")
	}

	total := fmt.Sprintf("%-20s %12.2f %12.2f %12.2f",
		"Total", record.Actual, record.Predicted, record.LeakAmount)
	b.WriteString(TableHeaderStyle.Render(total))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render("* budget applied as baseline"))
	b.WriteString("\n")

	return b.String()
}

// RenderThresholds formats the doojo threshold records.
func RenderThresholds(thresholds []model.DoojoThreshold) string {
	var b strings.Builder

	header := fmt.Sprintf("%-20s %10s %10s %10s %12s %10s %8s",
		"Category", "Min", "Max", "Avg", "Threshold", "Real", "Over?")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, t := range thresholds {
		real := "-"
		if t.RealAmount != nil {
			real = fmt.Sprintf("%.2f", *t.RealAmount)
		}
		over := "-"
		if t.Result != nil {
			if *t.Result {
				over = "yes"
			} else {
				over = "no"
			}
		}
		line := fmt.Sprintf("%-20s %10.2f %10.2f %10.2f %12.2f %10s %8s",
			t.Category, t.MinAmount, t.MaxAmount, t.AvgAmount, t.CurrentThreshold, real, over)
		if t.Result != nil && *t.Result {
			b.WriteString(WarningStyle.Render(line))
		} else {
			b.WriteString(TableCellStyle.Render(line))
		}
		b.WriteString("\n")

		if t.MostSpent != nil {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("    largest: %s (%.2f on %s)",
				t.MostSpent.Merchant, t.MostSpent.Amount, t.MostSpent.Date.Format("2006-01-02"))))
			b.WriteString("\n")
		}
		if t.MostFrequent != nil {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("    most visits: %s (%d visits, %.2f total)",
				t.MostFrequent.Merchant, t.MostFrequent.Count, t.MostFrequent.TotalAmount)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderStatus formats a file's analysis status and latest job.
func RenderStatus(fileID string, status model.AnalysisStatus, job *model.AnalysisJob) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("File %s", fileID)))
	b.WriteString("\n")

	switch status {
	case model.StatusAnalyzing:
		b.WriteString(WarningStyle.Render("Status: analyzing"))
	default:
		b.WriteString(SuccessStyle.Render("Status: idle"))
	}
	b.WriteString("\n")

	if job == nil {
		b.WriteString(SubtleStyle.Render("No analysis has run yet."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Last job: %s (%s)\n", job.JobID, job.Status))
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("  created: %s", job.CreatedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n")
	if job.CompletedAt != nil {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  finished: %s", job.CompletedAt.Format("2006-01-02 15:04:05"))))
		b.WriteString("\n")
	}
	if job.ErrorMessage != "" {
		b.WriteString(ErrorStyle.Render("  error: " + job.ErrorMessage))
		b.WriteString("\n")
	}
	if months, ok := job.Metadata["baseline_months_calculated"]; ok {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  baseline months: %v", months)))
		b.WriteString("\n")
	}

	return b.String()
}
