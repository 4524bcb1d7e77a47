package model

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// DefaultAlertThreshold is the spent ratio at which a category budget alerts.
var DefaultAlertThreshold = decimal.RequireFromString("0.8")

// CategoryBudget is a monthly spending cap for a category.
type CategoryBudget struct {
	Month          Month           `json:"month"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"budget_amount"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// Validate ensures the budget is well formed, defaulting the alert threshold.
func (b *CategoryBudget) Validate() error {
	if b.Category == "" {
		return common.NewValidationError("category", "category is required")
	}
	if b.Amount.IsNegative() {
		return common.NewValidationError("budget_amount", "budget cannot be negative")
	}
	if b.AlertThreshold.IsZero() {
		b.AlertThreshold = DefaultAlertThreshold
	}
	if b.AlertThreshold.IsNegative() || b.AlertThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return common.NewValidationError("alert_threshold", "alert threshold must be between 0 and 1")
	}
	return nil
}
