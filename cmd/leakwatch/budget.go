package main

import (
	"fmt"
	"strconv"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage per-category monthly budgets",
		Long: `Budgets override the forecast baseline during leak analysis. A
category with a budget set for the analyzed month is measured against
that budget instead of the model's prediction.`,
	}

	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetListCmd())
	return cmd
}

func budgetSetCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "set <file-id> <category> <amount>",
		Short: "Set a category's budget for a month",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBudgetSet(cmd, args, period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "budget month as YYYY-MM (default: current month)")
	return cmd
}

func runBudgetSet(cmd *cobra.Command, args []string, periodFlag string) error {
	fileID := args[0]
	category := args[1]

	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[2], err)
	}
	if amount < 0 {
		return fmt.Errorf("budget amount must be non-negative, got %s", args[2])
	}

	p, err := parsePeriod(periodFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	budget := &model.Budget{
		FileID:   fileID,
		Category: category,
		Period:   p,
		Amount:   amount,
	}
	if err := store.SaveBudget(ctx, budget); err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	cmd.Printf("Budget set: %s / %s / %s = %.2f\n", fileID, category, p, amount)
	return nil
}

func budgetListCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "list <file-id>",
		Short: "List a file's budgets for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBudgetList(cmd, args, period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "budget month as YYYY-MM (default: current month)")
	return cmd
}

func runBudgetList(cmd *cobra.Command, args []string, periodFlag string) error {
	fileID := args[0]

	p, err := parsePeriod(periodFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	budgets, err := store.GetBudgets(ctx, fileID, p)
	if err != nil {
		return fmt.Errorf("failed to get budgets: %w", err)
	}

	if len(budgets) == 0 {
		cmd.Printf("No budgets set for %s in %s.\n", fileID, p)
		return nil
	}

	cmd.Printf("Budgets for %s in %s:\n", fileID, p)
	for _, b := range budgets {
		cmd.Printf("  %-24s %10.2f\n", b.Category, b.Amount)
	}
	return nil
}
