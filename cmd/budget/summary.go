package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func summaryCmd() *cobra.Command {
	var (
		month  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the monthly budget split between both members",
		Long: `Show provisions, planned fixed expenses and the month's variable spending,
each split between the two members, followed by the category budgets and the
grand total. Excluded transactions are counted but left out of every total.`,
		Example: `  budget summary --month 2024-03
  budget summary --json`,
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

			session := model.Session{HouseholdID: householdID(), Month: m}
			summary, err := newService(store).MonthlySummary(ctx, session)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("household not saved yet, run 'budget household set'", err)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			household, err := store.GetHousehold(ctx, session.HouseholdID)
			if err != nil {
				return err
			}
			m1, m2 := cli.MemberNames(household)
			return cli.RenderSummary(cmd.OutOrStdout(), summary, m1, m2)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to summarize, YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}
