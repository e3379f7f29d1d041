package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					file_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					category TEXT NOT NULL,
					merchant TEXT,
					amount REAL NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_file ON transactions(file_id)`,
				`CREATE INDEX idx_transactions_file_date ON transactions(file_id, date)`,
				`CREATE INDEX idx_transactions_category ON transactions(category)`,

				`CREATE TABLE IF NOT EXISTS category_forecasts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					category TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					predicted REAL NOT NULL,
					lower_bound REAL NOT NULL,
					upper_bound REAL NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(file_id, category, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS baseline_months (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					category TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					predicted REAL NOT NULL,
					lower_bound REAL NOT NULL,
					upper_bound REAL NOT NULL,
					training_cutoff DATETIME NOT NULL,
					data_points INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(file_id, category, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS baseline_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					status TEXT NOT NULL,
					total REAL NOT NULL DEFAULT 0,
					categories_count INTEGER NOT NULL DEFAULT 0,
					training_cutoff DATETIME NOT NULL,
					UNIQUE(file_id, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS leak_records (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					actual REAL NOT NULL,
					predicted REAL NOT NULL,
					leak_amount REAL NOT NULL,
					breakdown TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(file_id, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS analysis_jobs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					job_id TEXT UNIQUE NOT NULL,
					file_id TEXT NOT NULL,
					status TEXT NOT NULL,
					error_message TEXT,
					metadata TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					completed_at DATETIME
				)`,
				`CREATE INDEX idx_analysis_jobs_file ON analysis_jobs(file_id, created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add doojo thresholds and budgets",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS doojo_thresholds (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					category TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					min_amount REAL NOT NULL,
					max_amount REAL NOT NULL,
					avg_amount REAL NOT NULL,
					current_threshold REAL NOT NULL,
					real_amount REAL,
					result INTEGER,
					most_spent TEXT,
					most_frequent TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(file_id, category, year, month)
				)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					file_id TEXT NOT NULL,
					category TEXT NOT NULL,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					amount REAL NOT NULL,
					UNIQUE(file_id, category, year, month)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add shared analysis status table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS analysis_status (
					file_id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
