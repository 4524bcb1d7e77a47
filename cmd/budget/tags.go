package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/taxonomy"
)

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the tag taxonomy",
		Long: `List, add, rename, delete, merge, export and import the tags that
classify transactions. Tag names are unique regardless of case.`,
		Example: `  # Fold spelling variants into one tag
  budget tags merge resto restaurant "CB RESTO" --into Restaurants --delete-sources

  # Back up the taxonomy
  budget tags export -o tags.csv`,
	}

	cmd.AddCommand(listTagsCmd())
	cmd.AddCommand(addTagCmd())
	cmd.AddCommand(updateTagCmd())
	cmd.AddCommand(renameTagCmd())
	cmd.AddCommand(deleteTagCmd())
	cmd.AddCommand(mergeTagsCmd())
	cmd.AddCommand(exportTagsCmd())
	cmd.AddCommand(importTagsCmd())

	return cmd
}

func listTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags with their live usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			stats, err := newService(store).Tags().AllStats(ctx, householdID())
			if err != nil {
				return err
			}
			return cli.RenderTagStats(cmd.OutOrStdout(), stats)
		},
	}
}

func addTagCmd() *cobra.Command {
	var (
		expenseType string
		category    string
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, err := model.ParseExpenseType(expenseType)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			tag, err := newService(store).Tags().Create(ctx, householdID(), model.Tag{
				Name:        args[0],
				ExpenseType: kind,
				Category:    category,
				Labels:      labels,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created tag %s (%s)", tag.Name, tag.ExpenseType)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&expenseType, "type", "t", string(model.DefaultExpenseType), "Expense type (fixed, variable)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Budget category the tag rolls up into")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Bank label associated with the tag (repeatable)")

	return cmd
}

func updateTagCmd() *cobra.Command {
	var (
		expenseType string
		category    string
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change a tag's expense type, category or labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			tags := newService(store).Tags()
			tag, err := tags.Get(ctx, householdID(), args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("type") {
				if tag.ExpenseType, err = model.ParseExpenseType(expenseType); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("category") {
				tag.Category = category
			}
			if cmd.Flags().Changed("label") {
				tag.Labels = model.MergeLabels(tag.Labels, labels...)
			}

			updated, err := tags.Update(ctx, householdID(), tag.Name, *tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated tag "+updated.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&expenseType, "type", "t", "", "New expense type (fixed, variable)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New budget category")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Bank label to add (repeatable)")

	return cmd
}

func renameTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <current> <new>",
		Short: "Rename a tag and every transaction carrying it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			tags := newService(store).Tags()
			tag, err := tags.Get(ctx, householdID(), args[0])
			if err != nil {
				return err
			}
			oldName := tag.Name
			tag.Name = args[1]

			renamed, err := tags.Update(ctx, householdID(), oldName, *tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Renamed %s to %s", oldName, renamed.Name)))
			return nil
		},
	}
}

func deleteTagCmd() *cobra.Command {
	var (
		policy string
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a tag",
		Long: `Delete a tag. With --policy detach (the default) the tag is first removed
from every transaction carrying it; with --policy block the deletion is
refused while any transaction still carries it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !cmd.Flags().Changed("policy") {
				policy = viper.GetString("taxonomy.delete_policy")
			}
			deletePolicy, err := taxonomy.ParseDeletePolicy(policy)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			tags := newService(store).Tags()
			stats, err := tags.Stats(ctx, householdID(), args[0])
			if err != nil {
				return err
			}

			if !yes && stats.TransactionCount > 0 && deletePolicy == taxonomy.DetachTransactions {
				ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(ctx, cmd.OutOrStdout(),
					fmt.Sprintf("Remove %s from %d transaction(s) and delete it?", stats.Tag.Name, stats.TransactionCount))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted"))
					return nil
				}
			}

			report, err := tags.Delete(ctx, householdID(), stats.Tag.Name, deletePolicy)
			if err != nil {
				return err
			}
			return cli.RenderDeleteReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&policy, "policy", string(taxonomy.DetachTransactions), "What to do with transactions carrying the tag (detach, block)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func mergeTagsCmd() *cobra.Command {
	var (
		target        string
		targetType    string
		create        bool
		deleteSources bool
		yes           bool
	)

	cmd := &cobra.Command{
		Use:   "merge <source>... --into <target>",
		Short: "Merge source tags into a target tag",
		Long: `Move every transaction of the source tags onto the target and add the
sources' labels to it. An automatic checkpoint is taken first. Running the
same merge again changes nothing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req := taxonomy.MergeRequest{
				TargetTag:             target,
				SourceTags:            args,
				CreateTargetIfMissing: create,
				DeleteSourceTags:      deleteSources,
			}
			if targetType != "" {
				kind, err := model.ParseExpenseType(targetType)
				if err != nil {
					return err
				}
				req.TargetExpenseType = kind
			}

			if !yes {
				ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(ctx, cmd.OutOrStdout(),
					fmt.Sprintf("Merge %s into %s?", strings.Join(args, ", "), target))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing merged"))
					return nil
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			autoCheckpoint(ctx, store, "merge")

			report, err := newService(store).Tags().Merge(ctx, householdID(), req)
			if err != nil {
				return err
			}
			return cli.RenderMergeReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&target, "into", "", "Target tag")
	cmd.Flags().StringVar(&targetType, "target-type", "", "Expense type of the target when it is created (fixed, variable)")
	cmd.Flags().BoolVar(&create, "create", false, "Create the target tag if it does not exist")
	cmd.Flags().BoolVar(&deleteSources, "delete-sources", false, "Delete the source tags after the merge")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("into")

	return cmd
}

func exportTagsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tags as CSV (name,expense_type,labels,category)",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return fmt.Errorf("failed to create %s: %w", output, createErr)
				}
				defer func() {
					if closeErr := f.Close(); closeErr != nil && err == nil {
						err = closeErr
					}
				}()
				w = f
			}

			return newService(store).Tags().Export(ctx, householdID(), w)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func importTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tags from a CSV export",
		Long: `Create the tags listed in a file written by 'budget tags export'. Rows
naming an existing tag, repeating an earlier row or holding a bad expense
type are reported by line and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			autoCheckpoint(ctx, store, "import")

			report, err := newService(store).Tags().Import(ctx, householdID(), f)
			var partial *common.PartialImportError
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			if renderErr := cli.RenderImportReport(cmd.OutOrStdout(), report); renderErr != nil {
				return renderErr
			}
			return err
		},
	}
}
