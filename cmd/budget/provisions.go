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

func provisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provisions",
		Short: "Manage savings provisions",
	}

	cmd.AddCommand(addProvisionCmd())
	cmd.AddCommand(listProvisionsCmd())
	cmd.AddCommand(deleteProvisionCmd())

	return cmd
}

func addProvisionCmd() *cobra.Command {
	var (
		base       string
		percentage string
		fixed      string
		target     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a savings provision",
		Long: `Add a provision computed from revenue or fixed. Revenue-based provisions
take --percentage; fixed-amount provisions take --amount.`,
		Example: `  budget provisions add Savings --base total-revenue --percentage 10
  budget provisions add Car --base fixed-amount --amount 150 --target 3000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p := &model.Provision{Name: args[0], Active: true}
			var err error
			if p.Base, err = model.ParseProvisionBase(base); err != nil {
				return err
			}
			if percentage != "" {
				pct, err := parseAmount("percentage", percentage)
				if err != nil {
					return err
				}
				p.Percentage = &pct
			}
			if fixed != "" {
				if p.FixedAmount, err = parseAmount("amount", fixed); err != nil {
					return err
				}
			}
			if target != "" {
				t, err := parseAmount("target", target)
				if err != nil {
					return err
				}
				p.TargetAmount = &t
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := newService(store).SaveProvision(ctx, householdID(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %s: %s per month", p.Name, cli.Money(p.MonthlyAmount))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&base, "base", "b", string(model.BaseTotalRevenue), "Base (total-revenue, member1-revenue, member2-revenue, fixed-amount)")
	cmd.Flags().StringVarP(&percentage, "percentage", "p", "", "Percentage of the base revenue")
	cmd.Flags().StringVarP(&fixed, "amount", "a", "", "Monthly amount for fixed-amount provisions")
	cmd.Flags().StringVar(&target, "target", "", "Savings target")

	return cmd
}

func listProvisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisions with their monthly split",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			provisions, err := store.GetProvisions(ctx, householdID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(provisions) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No provisions. Use 'budget provisions add' to create one."))
				return nil
			}

			household, err := store.GetHousehold(ctx, householdID())
			if err != nil {
				return err
			}
			engine, err := budget.NewProvisionEngine(*household)
			if err != nil {
				return err
			}
			m1, m2 := cli.MemberNames(household)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("Name"),
				headerStyle.Render("Base"),
				headerStyle.Render("Monthly"),
				headerStyle.Render(m1),
				headerStyle.Render(m2),
				headerStyle.Render("Target"))

			for _, p := range provisions {
				if !p.Active {
					continue
				}
				alloc, err := engine.Allocate(p)
				if err != nil {
					return err
				}
				target := "-"
				if p.TargetAmount != nil {
					target = cli.Money(*p.TargetAmount)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Name, p.Base, cli.Money(p.MonthlyAmount),
					cli.Money(alloc.Member1), cli.Money(alloc.Member2), target)
			}
			return w.Flush()
		},
	}
}

func deleteProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a provision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			provisions, err := store.GetProvisions(ctx, householdID())
			if err != nil {
				return err
			}
			id, err := findByName(args[0], len(provisions), func(i int) (string, string) { return provisions[i].ID, provisions[i].Name })
			if err != nil {
				return err
			}
			if err := store.DeleteProvision(ctx, householdID(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+args[0]))
			return nil
		},
	}
}
