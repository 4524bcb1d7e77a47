package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-budget/internal/budget"
	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/config"
	"github.com/Veraticus/household-budget/internal/model"
)

func householdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Show or save the household budget configuration",
	}

	cmd.AddCommand(showHouseholdCmd())
	cmd.AddCommand(setHouseholdCmd())

	return cmd
}

func showHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored household and its revenue split",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			household, err := store.GetHousehold(ctx, householdID())
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("household not saved yet, run 'budget household set'", err)
			}
			if err != nil {
				return err
			}
			return renderHousehold(cmd.OutOrStdout(), household)
		},
	}
}

func setHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Save the household section of the config file",
		Long: `Validate the household section of the configuration and store it.

Every provision's cached monthly amount is recomputed in the same transaction,
so a revenue change is reflected immediately in the next summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			household, err := config.LoadHousehold(viper.GetViper())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := newService(store).SaveHousehold(ctx, household); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Saved household "+household.ID))
			return renderHousehold(cmd.OutOrStdout(), household)
		},
	}
}

func renderHousehold(w io.Writer, h *model.HouseholdConfig) error {
	revenues, err := budget.HouseholdRevenues(*h)
	if err != nil {
		return err
	}
	allocator, err := budget.NewAllocator(*h)
	if err != nil {
		return err
	}
	key, err := allocator.Amount("split", decimal.NewFromInt(100))
	if err != nil {
		return err
	}

	m1, m2 := cli.MemberNames(h)
	content := fmt.Sprintf("%-10s %s net/month  %s%%\n%-10s %s net/month  %s%%\nSplit mode: %s",
		m1, cli.Money(revenues.Member1), key.Member1.StringFixed(2),
		m2, cli.Money(revenues.Member2), key.Member2.StringFixed(2),
		h.SplitMode)
	_, err = fmt.Fprintln(w, cli.RenderBox("Household "+h.ID, content))
	return err
}
