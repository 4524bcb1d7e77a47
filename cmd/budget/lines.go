package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/household-budget/internal/budget"
	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/model"
)

func linesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "Manage recurring fixed expenses",
	}

	cmd.AddCommand(addLineCmd())
	cmd.AddCommand(listLinesCmd())
	cmd.AddCommand(deleteLineCmd())

	return cmd
}

func addLineCmd() *cobra.Command {
	var (
		amount    string
		frequency string
		splitMode string
		category  string
		split1    string
		split2    string
	)

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a recurring fixed expense",
		Example: `  budget lines add Rent --amount 900 --split revenue-key --category Housing
  budget lines add "Car insurance" --amount 600 --frequency annual --split 50/50
  budget lines add Gym --amount 40 --split manual --split1 70 --split2 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			line := &model.RecurringLine{Label: args[0], Category: category, Active: true}
			var err error
			if line.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if line.Frequency, err = model.ParseFrequency(frequency); err != nil {
				return err
			}
			if line.SplitMode, err = model.ParseSplitMode(splitMode); err != nil {
				return err
			}
			if line.SplitMode == model.SplitManual {
				if line.Split1, err = parseAmount("split1", split1); err != nil {
					return err
				}
				if line.Split2, err = parseAmount("split2", split2); err != nil {
					return err
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := newService(store).SaveRecurringLine(ctx, householdID(), line); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %s: %s %s", line.Label, cli.Money(line.Amount), line.Frequency)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount per period")
	cmd.Flags().StringVarP(&frequency, "frequency", "f", string(model.FrequencyMonthly), "Billing frequency (monthly, quarterly, annual)")
	cmd.Flags().StringVarP(&splitMode, "split", "s", string(model.SplitRevenueKey), "Split mode (revenue-key, 50/50, member1-only, member2-only, manual)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Budget category")
	cmd.Flags().StringVar(&split1, "split1", "50", "Member 1 percentage for manual splits")
	cmd.Flags().StringVar(&split2, "split2", "50", "Member 2 percentage for manual splits")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func listLinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring fixed expenses with their monthly split",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			lines, err := store.GetRecurringLines(ctx, householdID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No recurring lines. Use 'budget lines add' to create one."))
				return nil
			}

			household, err := store.GetHousehold(ctx, householdID())
			if err != nil {
				return err
			}
			allocator, err := budget.NewAllocator(*household)
			if err != nil {
				return err
			}
			m1, m2 := cli.MemberNames(household)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("Label"),
				headerStyle.Render("Amount"),
				headerStyle.Render("Frequency"),
				headerStyle.Render("Split"),
				headerStyle.Render("Monthly"),
				headerStyle.Render(m1),
				headerStyle.Render(m2))

			for _, line := range lines {
				if !line.Active {
					continue
				}
				alloc, err := allocator.Line(line)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					line.Label, cli.Money(line.Amount), line.Frequency, line.SplitMode,
					cli.Money(alloc.Monthly), cli.Money(alloc.Member1), cli.Money(alloc.Member2))
			}
			return w.Flush()
		},
	}
}

func deleteLineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <label>",
		Short: "Delete a recurring line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			lines, err := store.GetRecurringLines(ctx, householdID())
			if err != nil {
				return err
			}
			id, err := findByName(args[0], len(lines), func(i int) (string, string) { return lines[i].ID, lines[i].Label })
			if err != nil {
				return err
			}
			if err := store.DeleteRecurringLine(ctx, householdID(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+args[0]))
			return nil
		},
	}
}
