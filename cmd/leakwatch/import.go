package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/ingest"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV or OFX files",
		Long: `Import transactions into the local database.

CSV files need the columns category, amount, transaction_date_time and
merchant. OFX/QFX bank exports are also supported; they carry no
categories, so those transactions land in the catch-all bucket during
analysis.

Examples:
  # Import a categorized CSV export
  leakwatch import --file-id 2025-08 ~/Downloads/spending.csv

  # Import bank exports
  leakwatch import --file-id chase ~/Downloads/chase_*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("file-id", "", "analysis scope the transactions belong to (default: first file's base name)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	fileID, _ := cmd.Flags().GetString("file-id")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	if fileID == "" {
		base := filepath.Base(allFiles[0])
		fileID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	common.LogInfo("Importing transaction files", common.Fields{
		"file_count": len(allFiles),
		"file_id":    fileID,
		"dry_run":    dryRun,
	})

	csvParser := ingest.NewCSVParser()
	ofxParser := ingest.NewOFXParser()

	var allTransactions []model.Transaction
	for _, path := range allFiles {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		var txns []model.Transaction
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ofx", ".qfx":
			txns, err = ofxParser.ParseFile(fileID, f)
		default:
			txns, err = csvParser.ParseFile(fileID, f)
		}
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		common.LogInfo("Parsed file", common.Fields{"path": path, "transactions": len(txns)})
		allTransactions = append(allTransactions, txns...)
	}

	if len(allTransactions) == 0 {
		return fmt.Errorf("no transactions found in %d file(s)", len(allFiles))
	}

	if dryRun {
		cmd.Printf("Dry run: would import %d transactions as file %s\n", len(allTransactions), fileID)
		return nil
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(ctx, allTransactions); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	count, err := store.GetTransactionCountByFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}

	cmd.Printf("Imported %d transactions (file %s now has %d)\n", len(allTransactions), fileID, count)
	return nil
}
