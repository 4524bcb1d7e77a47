package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/engine"
	"github.com/Veraticus/household-budget/internal/service"
)

func classifyCmd() *cobra.Command {
	var (
		onlyUntagged bool
		noProgress   bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Tag transactions with the household's rules",
		Long: `Run every active rule, then the labels of every tag, over the stored
transactions. A match replaces the transaction's tags with the winning tag;
transactions nothing matches keep their tags. Tags named by rules are created
on demand with the rule's expense type. Use --only-untagged to leave tagged
transactions alone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStorage(store)

			out := cmd.OutOrStdout()
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr()).
				WithOperation("Classification").
				WithResumeHint("budget classify --only-untagged")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			pending, err := store.GetTransactions(ctx, householdID(), service.TransactionFilter{Untagged: onlyUntagged})
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No transactions to classify"))
				return nil
			}

			opts := engine.ReclassifyOptions{OnlyUntagged: onlyUntagged}
			if !noProgress {
				bar := progressbar.NewOptions(len(pending),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("[cyan][bold]Classifying transactions...[reset]"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(cmd.ErrOrStderr())
					}),
				)
				opts.Progress = func() { _ = bar.Add(1) }
			}

			report, err := newService(store).Reclassify(ctx, householdID(), opts)
			if handler.WasInterrupted() {
				return nil
			}
			var partial *common.PartialImportError
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			if renderErr := cli.RenderReclassifyReport(out, report); renderErr != nil {
				return renderErr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&onlyUntagged, "only-untagged", false, "Only classify transactions without any tag")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")

	return cmd
}
