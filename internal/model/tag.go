package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// ExpenseType partitions spending into fixed and variable.
type ExpenseType string

// Expense type constants.
const (
	ExpenseFixed    ExpenseType = "fixed"
	ExpenseVariable ExpenseType = "variable"
)

// DefaultExpenseType is used for transactions no rule or tag could classify.
const DefaultExpenseType = ExpenseVariable

// ParseExpenseType validates an expense type.
func ParseExpenseType(s string) (ExpenseType, error) {
	switch t := ExpenseType(strings.ToLower(strings.TrimSpace(s))); t {
	case ExpenseFixed, ExpenseVariable:
		return t, nil
	default:
		return "", common.NewValidationError("expense_type", "unknown expense type %q", s)
	}
}

// Tag is a classification label attached to transactions.
type Tag struct {
	Name        string      `json:"name"`
	ExpenseType ExpenseType `json:"expense_type"`
	Category    string      `json:"category,omitempty"`
	Labels      []string    `json:"associated_labels"`
}

// Validate ensures the tag has a name and a known expense type.
func (t *Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return common.NewValidationError("name", "tag name is required")
	}
	if _, err := ParseExpenseType(string(t.ExpenseType)); err != nil {
		return err
	}
	return nil
}

// TagKey normalizes a tag name for case-insensitive comparison.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameTag reports whether two tag names refer to the same tag.
func SameTag(a, b string) bool {
	return TagKey(a) == TagKey(b)
}

// TagStats is the live aggregation of transactions carrying a tag.
type TagStats struct {
	Tag              Tag             `json:"tag"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// MergeLabels appends labels not already present (case-insensitively), keeping order.
func MergeLabels(existing []string, additions ...string) []string {
	seen := make(map[string]bool, len(existing)+len(additions))
	out := make([]string, 0, len(existing)+len(additions))
	for _, l := range append(append([]string{}, existing...), additions...) {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
