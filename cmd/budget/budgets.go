package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage monthly category budgets",
	}

	cmd.AddCommand(setBudgetCmd())
	cmd.AddCommand(listBudgetsCmd())

	return cmd
}

func setBudgetCmd() *cobra.Command {
	var (
		month string
		alert string
	)

	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Set a category's budget for a month",
		Long: `Set the spending cap of a category for one month. The summary flags the
category once spending reaches the alert threshold (a ratio, 0.8 by default)
and marks it over budget past the cap.`,
		Example: `  budget budgets set Food 450 --month 2024-03 --alert 0.9`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b := &model.CategoryBudget{Category: args[0], Month: model.MonthOf(time.Now())}
			if month != "" {
				m, err := model.ParseMonth(month)
				if err != nil {
					return common.NewValidationError("month", "%v", err)
				}
				b.Month = m
			}
			var err error
			if b.Amount, err = parseAmount("amount", args[1]); err != nil {
				return err
			}
			if alert != "" {
				if b.AlertThreshold, err = parseAmount("alert", alert); err != nil {
					return err
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.SaveCategoryBudget(ctx, householdID(), b); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s budget for %s set to %s", b.Category, b.Month, cli.Money(b.Amount))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Month, YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&alert, "alert", "", "Alert threshold as a ratio of the budget (default 0.8)")

	return cmd
}

func listBudgetsCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the category budgets of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			m := model.MonthOf(time.Now())
			if month != "" {
				parsed, err := model.ParseMonth(month)
				if err != nil {
					return common.NewValidationError("month", "%v", err)
				}
				m = parsed
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			budgets, err := store.GetCategoryBudgets(ctx, householdID(), m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(budgets) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No budgets for "+m.String()))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n", cli.BoldStyle.Render("Category"), cli.BoldStyle.Render("Budget"), cli.BoldStyle.Render("Alert at"))
			for _, b := range budgets {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Category, cli.Money(b.Amount), b.AlertThreshold.String())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Month, YYYY-MM (default: current month)")

	return cmd
}
