package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Inspect stored transactions",
		Long: `List stored transactions and exclude them from, or include them back into,
the budget totals. Transactions are written by the bank import, not here.`,
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(setExcludedCmd("exclude", true))
	cmd.AddCommand(setExcludedCmd("include", false))

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var (
		month    string
		untagged bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.TransactionFilter{Untagged: untagged, Limit: limit}
			if month != "" {
				m, err := model.ParseMonth(month)
				if err != nil {
					return common.NewValidationError("month", "%v", err)
				}
				start, end := m.Start(), m.End()
				filter.StartDate = &start
				filter.EndDate = &end
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			txns, err := store.GetTransactions(ctx, householdID(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No transactions found"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Date"),
				headerStyle.Render("Label"),
				headerStyle.Render("Amount"),
				headerStyle.Render("Tags"),
				headerStyle.Render("Excluded"))

			for _, txn := range txns {
				tags := strings.Join(txn.Tags, ", ")
				if tags == "" {
					tags = cli.SubtleStyle.Render("(untagged)")
				}
				excluded := ""
				if txn.Excluded {
					excluded = cli.WarningStyle.Render("yes")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.Date.Format("2006-01-02"), txn.Label, cli.Money(txn.Amount), tags, excluded)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Only show this month, YYYY-MM")
	cmd.Flags().BoolVar(&untagged, "untagged", false, "Only show transactions without a tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of transactions (0 for all)")

	return cmd
}

func setExcludedCmd(use string, excluded bool) *cobra.Command {
	short := "Include transactions back into the budget totals"
	if excluded {
		short = "Exclude transactions from the budget totals"
	}

	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			for _, id := range args {
				if err := store.SetTransactionExcluded(ctx, householdID(), id, excluded); err != nil {
					return fmt.Errorf("transaction %s: %w", id, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated %d transaction(s)", len(args))))
			return nil
		},
	}
}
