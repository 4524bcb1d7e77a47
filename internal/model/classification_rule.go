package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// MatchType controls how a rule keyword is compared with a transaction label.
type MatchType string

// Match type constants.
const (
	MatchPartial MatchType = "partial"
	MatchExact   MatchType = "exact"
	MatchRegex   MatchType = "regex"
)

// ParseMatchType validates a match type.
func ParseMatchType(s string) (MatchType, error) {
	switch m := MatchType(s); m {
	case MatchPartial, MatchExact, MatchRegex:
		return m, nil
	default:
		return "", common.NewValidationError("match_type", "unknown match type %q", s)
	}
}

// AmountConditionType represents the type of amount comparison.
type AmountConditionType string

// Amount condition constants.
const (
	AmountLessThan     AmountConditionType = "lt"
	AmountLessEqual    AmountConditionType = "le"
	AmountEqual        AmountConditionType = "eq"
	AmountGreaterEqual AmountConditionType = "ge"
	AmountGreaterThan  AmountConditionType = "gt"
	AmountRange        AmountConditionType = "range"
	AmountAny          AmountConditionType = "any"
)

// ClassificationRule assigns an expense type, and optionally a tag, to matching transactions.
type ClassificationRule struct {
	CreatedAt           time.Time           `json:"created_at" yaml:"-"`
	AmountValue         *decimal.Decimal    `json:"amount_value,omitempty" yaml:"amount_value,omitempty"`
	AmountMin           *decimal.Decimal    `json:"amount_min,omitempty" yaml:"amount_min,omitempty"`
	AmountMax           *decimal.Decimal    `json:"amount_max,omitempty" yaml:"amount_max,omitempty"`
	ID                  string              `json:"id" yaml:"id,omitempty"`
	Name                string              `json:"name" yaml:"name"`
	Description         string              `json:"description,omitempty" yaml:"description,omitempty"`
	Tag                 string              `json:"tag,omitempty" yaml:"tag,omitempty"`
	ExpenseType         ExpenseType         `json:"expense_type" yaml:"expense_type"`
	MatchType           MatchType           `json:"match_type" yaml:"match_type"`
	AmountCondition     AmountConditionType `json:"amount_condition,omitempty" yaml:"amount_condition,omitempty"`
	Keywords            []string            `json:"keywords" yaml:"keywords"`
	ConfidenceThreshold float64             `json:"confidence_threshold" yaml:"confidence_threshold"`
	Priority            int                 `json:"priority" yaml:"priority"`
	CaseSensitive       bool                `json:"case_sensitive" yaml:"case_sensitive"`
	Active              bool                `json:"is_active" yaml:"is_active"`
}

// Validate ensures the rule is well formed. Regex syntax is checked by the engine,
// which isolates a bad pattern to its own rule.
func (r *ClassificationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return common.NewValidationError("name", "rule name is required")
	}
	if _, err := ParseExpenseType(string(r.ExpenseType)); err != nil {
		return err
	}
	if _, err := ParseMatchType(string(r.MatchType)); err != nil {
		return err
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return common.NewValidationError("confidence_threshold", "threshold must be between 0 and 1, got %.2f", r.ConfidenceThreshold)
	}
	if len(r.Keywords) == 0 && r.amountCondition() == AmountAny {
		return common.NewValidationError("keywords", "rule needs at least one keyword or an amount condition")
	}

	switch r.amountCondition() {
	case AmountAny:
	case AmountLessThan, AmountLessEqual, AmountEqual, AmountGreaterEqual, AmountGreaterThan:
		if r.AmountValue == nil {
			return common.NewValidationError("amount_value", "amount value is required for condition %s", r.AmountCondition)
		}
	case AmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return common.NewValidationError("amount_min", "range condition needs a minimum or a maximum")
		}
		if r.AmountMin != nil && r.AmountMax != nil && r.AmountMin.GreaterThan(*r.AmountMax) {
			return common.NewValidationError("amount_min", "amount min must be less than or equal to amount max")
		}
	default:
		return common.NewValidationError("amount_condition", "unknown amount condition %q", r.AmountCondition)
	}

	return nil
}

// MatchesAmount checks the rule's amount condition against a signed amount.
func (r *ClassificationRule) MatchesAmount(amount decimal.Decimal) bool {
	switch r.amountCondition() {
	case AmountAny:
		return true
	case AmountLessThan:
		return r.AmountValue != nil && amount.LessThan(*r.AmountValue)
	case AmountLessEqual:
		return r.AmountValue != nil && amount.LessThanOrEqual(*r.AmountValue)
	case AmountEqual:
		return r.AmountValue != nil && amount.Equal(*r.AmountValue)
	case AmountGreaterEqual:
		return r.AmountValue != nil && amount.GreaterThanOrEqual(*r.AmountValue)
	case AmountGreaterThan:
		return r.AmountValue != nil && amount.GreaterThan(*r.AmountValue)
	case AmountRange:
		if r.AmountMin != nil && amount.LessThan(*r.AmountMin) {
			return false
		}
		if r.AmountMax != nil && amount.GreaterThan(*r.AmountMax) {
			return false
		}
		return true
	}
	return false
}

func (r *ClassificationRule) amountCondition() AmountConditionType {
	if r.AmountCondition == "" {
		return AmountAny
	}
	return r.AmountCondition
}
