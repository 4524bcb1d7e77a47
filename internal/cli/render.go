package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/budget"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/engine"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/taxonomy"
)

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MemberNames returns display names for the two household members.
func MemberNames(h *model.HouseholdConfig) (string, string) {
	m1, m2 := "Member 1", "Member 2"
	if h != nil && strings.TrimSpace(h.Member1) != "" {
		m1 = h.Member1
	}
	if h != nil && strings.TrimSpace(h.Member2) != "" {
		m2 = h.Member2
	}
	return m1, m2
}

// RenderSummary writes the monthly summary: each section with its per-member
// split, the category budget rollup and the grand total.
func RenderSummary(w io.Writer, s *budget.Summary, member1, member2 string) error {
	if _, err := fmt.Fprintln(w, FormatTitle("Budget for "+s.Month.String())); err != nil {
		return err
	}

	sections := []struct {
		title   string
		section budget.Section
	}{
		{"Provisions", s.Provisions},
		{"Fixed expenses", s.Fixed},
		{"Variable expenses", s.Variable},
	}
	for _, sec := range sections {
		if err := renderSection(w, sec.title, sec.section, member1, member2); err != nil {
			return err
		}
	}

	if len(s.Categories) > 0 {
		if err := renderCategories(w, s.Categories); err != nil {
			return err
		}
	}

	total := fmt.Sprintf("%s  %s: %s  %s: %s",
		BoldStyle.Render("Grand total "+Money(s.GrandTotal.Total())),
		member1, Money(s.GrandTotal.Member1),
		member2, Money(s.GrandTotal.Member2))
	counts := fmt.Sprintf("%d included, %d excluded", s.Included, s.Excluded)
	if s.Unresolved > 0 {
		counts += fmt.Sprintf(", %d unresolved", s.Unresolved)
	}
	_, err := fmt.Fprintf(w, "\n%s\n%s\n", total, SubtleStyle.Render(counts))
	return err
}

func renderSection(w io.Writer, title string, section budget.Section, member1, member2 string) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", SubtitleStyle.UnsetMargins().Render(title)); err != nil {
		return err
	}
	if len(section.Items) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("  none"))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
		ColumnStyle.Render("Name"),
		ColumnStyle.Render("Monthly"),
		ColumnStyle.Render(member1),
		ColumnStyle.Render(member2)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, item := range section.Items {
		name := item.Name
		if item.Source == budget.SourceRecurring {
			name += " (planned)"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			name, Money(item.Monthly), Money(item.Member1), Money(item.Member2)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
		BoldStyle.Render("Total"),
		Money(section.Total.Total()),
		Money(section.Total.Member1),
		Money(section.Total.Member2)); err != nil {
		return fmt.Errorf("failed to write total: %w", err)
	}
	return tw.Flush()
}

func renderCategories(w io.Writer, categories []budget.CategoryRollup) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", SubtitleStyle.UnsetMargins().Render("Categories")); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		ColumnStyle.Render("Category"),
		ColumnStyle.Render("Spent"),
		ColumnStyle.Render("Budget"),
		ColumnStyle.Render("Remaining"),
		ColumnStyle.Render("Txns")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range categories {
		budgetCol, remaining := "-", "-"
		if c.Budget != nil {
			budgetCol = Money(*c.Budget)
			remaining = Money(c.Remaining)
			switch {
			case c.Over:
				remaining = ErrorStyle.Render(remaining + " " + ErrorIcon)
			case c.Alert:
				remaining = WarningStyle.Render(remaining + " !")
			}
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			c.Category, Money(c.Spent), budgetCol, remaining, c.Transactions); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return tw.Flush()
}

// RenderTagStats writes one row per tag with its live usage.
func RenderTagStats(w io.Writer, stats []model.TagStats) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No tags found. Use 'budget tags add' to create one."))
		return err
	}

	if _, err := fmt.Fprintln(w, FormatTitle("Tags")); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		ColumnStyle.Render("Name"),
		ColumnStyle.Render("Type"),
		ColumnStyle.Render("Category"),
		ColumnStyle.Render("Txns"),
		ColumnStyle.Render("Total")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range stats {
		category := s.Tag.Category
		if category == "" {
			category = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.Tag.Name, s.Tag.ExpenseType, category, s.TransactionCount, Money(s.TotalAmount)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return tw.Flush()
}

// RenderMergeReport summarizes a completed merge.
func RenderMergeReport(w io.Writer, r *taxonomy.MergeReport) error {
	lines := []string{
		FormatSuccess(fmt.Sprintf("Merged %d tag(s) into %s", len(r.MergedTags), r.TargetTag)),
	}
	if r.TargetCreated {
		lines = append(lines, FormatInfo("Created tag "+r.TargetTag))
	}
	if len(r.MergedTags) > 0 {
		lines = append(lines, SubtleStyle.Render("  merged: "+strings.Join(r.MergedTags, ", ")))
	}
	lines = append(lines, FormatInfo(fmt.Sprintf("%d transaction(s) retagged", r.TransactionsUpdated)))
	if r.RulesUpdated > 0 {
		lines = append(lines, FormatInfo(fmt.Sprintf("%d rule(s) now tag %s", r.RulesUpdated, r.TargetTag)))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// RenderDeleteReport summarizes a tag deletion.
func RenderDeleteReport(w io.Writer, r *taxonomy.DeleteReport) error {
	msg := FormatSuccess("Deleted tag " + r.Tag)
	if r.TransactionsDetached > 0 {
		msg += "\n" + FormatInfo(fmt.Sprintf("Detached from %d transaction(s)", r.TransactionsDetached))
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// RenderImportReport summarizes a tag import.
func RenderImportReport(w io.Writer, r *taxonomy.ImportReport) error {
	msg := FormatSuccess(fmt.Sprintf("Imported %d tag(s)", len(r.Created)))
	if len(r.Created) > 0 {
		msg += "\n" + SubtleStyle.Render("  "+strings.Join(r.Created, ", "))
	}
	if _, err := fmt.Fprintln(w, msg); err != nil {
		return err
	}
	return RenderFailures(w, r.Failures)
}

// RenderReclassifyReport summarizes a classification run.
func RenderReclassifyReport(w io.Writer, r *engine.ReclassifyReport) error {
	lines := []string{
		FormatSuccess(fmt.Sprintf("Classified %d of %d transaction(s)", r.Classified, r.Considered)),
		FormatInfo(fmt.Sprintf("%d newly tagged, %d left unclassified", r.Tagged, r.Unclassified)),
	}
	if len(r.TagsCreated) > 0 {
		lines = append(lines, FormatInfo("Created tags: "+strings.Join(r.TagsCreated, ", ")))
	}
	for _, skipped := range r.Skipped {
		lines = append(lines, FormatWarning(fmt.Sprintf("Rule %q skipped: %s", skipped.Name, skipped.Reason)))
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return err
	}
	return RenderFailures(w, r.Failures)
}

// RenderFailures lists the records a batch operation could not process.
func RenderFailures(w io.Writer, failures []common.RecordError) error {
	if len(failures) == 0 {
		return nil
	}
	lines := []string{FormatWarning(fmt.Sprintf("%d record(s) failed:", len(failures)))}
	for _, f := range failures {
		lines = append(lines, ErrorStyle.Render("  "+f.String()))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
