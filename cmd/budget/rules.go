package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-budget/internal/classification"
	"github.com/Veraticus/household-budget/internal/cli"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `Rules match bank labels by keyword, exact token sequence or regex, and
optionally by amount. The first matching rule in priority order decides a
transaction's expense type and tag.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(importRulesCmd())
	cmd.AddCommand(exportRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.GetRules(ctx, householdID())
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No rules found. Use 'budget rules add' or 'budget rules import' to create some."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("Priority"),
				headerStyle.Render("Name"),
				headerStyle.Render("Match"),
				headerStyle.Render("Keywords"),
				headerStyle.Render("Type"),
				headerStyle.Render("Tag"),
				headerStyle.Render("Active"))

			for _, r := range rules {
				active := cli.SuccessIcon
				if !r.Active {
					active = cli.SubtleStyle.Render("off")
				}
				tag := r.Tag
				if tag == "" {
					tag = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Priority, r.Name, r.MatchType, strings.Join(r.Keywords, ", "), r.ExpenseType, tag, active)
			}
			return w.Flush()
		},
	}
}

func addRuleCmd() *cobra.Command {
	var (
		keywords      []string
		expenseType   string
		matchType     string
		tag           string
		description   string
		threshold     float64
		priority      int
		caseSensitive bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a rule",
		Long:  `Create a rule. A rule with the same name is replaced.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, err := model.ParseExpenseType(expenseType)
			if err != nil {
				return err
			}
			match, err := model.ParseMatchType(matchType)
			if err != nil {
				return err
			}

			rule := &model.ClassificationRule{
				Name:                args[0],
				Description:         description,
				Tag:                 tag,
				ExpenseType:         kind,
				MatchType:           match,
				Keywords:            keywords,
				ConfidenceThreshold: threshold,
				Priority:            priority,
				CaseSensitive:       caseSensitive,
				Active:              true,
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.SaveRule(ctx, householdID(), rule); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved rule %s (priority %d)", rule.Name, rule.Priority)))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "Keyword or pattern to match (repeatable)")
	cmd.Flags().StringVarP(&expenseType, "type", "t", string(model.DefaultExpenseType), "Expense type assigned on match (fixed, variable)")
	cmd.Flags().StringVarP(&matchType, "match", "m", string(model.MatchPartial), "Match type (partial, exact, regex)")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag attached on match")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the rule")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum confidence for partial matches (0-1)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 100, "Evaluation order, lowest first")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match keywords case-sensitively")

	return cmd
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.GetRules(ctx, householdID())
			if err != nil {
				return err
			}
			id, err := findByName(args[0], len(rules), func(i int) (string, string) { return rules[i].ID, rules[i].Name })
			if err != nil {
				return fmt.Errorf("rule %w", err)
			}
			if err := store.DeleteRule(ctx, householdID(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted rule "+args[0]))
			return nil
		},
	}
}

func importRulesCmd() *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import rules from a YAML file",
		Long: `Load rules from a YAML file with a top-level 'rules:' list. Without a file
argument, classification.rules_file from the configuration is used. Rules
are saved by name, so importing the same file twice replaces them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				rules   []model.ClassificationRule
				loadErr error
			)
			switch {
			case defaults:
				rules = classification.DefaultRules()
			default:
				path := viper.GetString("classification.rules_file")
				if len(args) == 1 {
					path = args[0]
				}
				if path == "" {
					return common.NewUserError("no rule file given", common.ErrMissingConfig)
				}
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				defer func() { _ = f.Close() }()

				rules, loadErr = classification.LoadRules(f)
				var partial *common.PartialImportError
				if loadErr != nil && !errors.As(loadErr, &partial) {
					return loadErr
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			var failures []common.RecordError
			var partial *common.PartialImportError
			if errors.As(loadErr, &partial) {
				failures = append(failures, partial.Failures...)
			}

			saved := 0
			for i := range rules {
				if err := store.SaveRule(ctx, householdID(), &rules[i]); err != nil {
					failures = append(failures, common.RecordError{Key: rules[i].Name, Reason: err.Error()})
					continue
				}
				saved++
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d rule(s)", saved)))
			if err := cli.RenderFailures(out, failures); err != nil {
				return err
			}
			if len(failures) > 0 {
				return &common.PartialImportError{Failures: failures, Succeeded: saved}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Import the built-in starter rules instead of a file")

	return cmd
}

func exportRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the rules as YAML to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.GetRules(ctx, householdID())
			if err != nil {
				return err
			}
			return classification.WriteRules(cmd.OutOrStdout(), rules)
		},
	}
}
