package main

import (
	"errors"
	"fmt"

	"github.com/leakwatch/leakwatch/internal/cli"
	"github.com/leakwatch/leakwatch/internal/common"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <file-id>",
		Short: "Show a file's analysis status and latest job",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	status, err := store.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}

	var job *model.AnalysisJob
	job, err = store.GetLatestJob(ctx, fileID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to get latest job: %w", err)
	}

	cmd.Println(cli.RenderStatus(fileID, status, job))
	return nil
}
