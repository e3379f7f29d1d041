package main

import (
	"context"
	"fmt"
	"time"

	"github.com/leakwatch/leakwatch/internal/config"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/leakwatch/leakwatch.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parsePeriod parses a YYYY-MM flag value, defaulting to the current
// month when empty.
func parsePeriod(value string) (model.Period, error) {
	if value == "" {
		return model.PeriodOf(time.Now()), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return model.Period{}, fmt.Errorf("invalid period %q, expected YYYY-MM", value)
	}
	return model.PeriodOf(t), nil
}
