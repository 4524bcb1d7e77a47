// Package model defines the core domain models used throughout the application.
package model

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// IncomeUnit says whether a raw income figure is expressed per month or per year.
type IncomeUnit string

// Income unit constants.
const (
	IncomeMonthly IncomeUnit = "monthly"
	IncomeAnnual  IncomeUnit = "annual"
)

// ParseIncomeUnit validates an income unit coming from outside the core.
func ParseIncomeUnit(s string) (IncomeUnit, error) {
	switch u := IncomeUnit(s); u {
	case IncomeMonthly, IncomeAnnual:
		return u, nil
	default:
		return "", common.NewValidationError("unit", "unknown income unit %q", s)
	}
}

// HouseholdSplitMode is the household-wide policy used for lines without their own.
type HouseholdSplitMode string

// Household split mode constants.
const (
	HouseholdProportional HouseholdSplitMode = "proportional"
	HouseholdManual       HouseholdSplitMode = "manual"
)

// ParseHouseholdSplitMode validates a household split mode.
func ParseHouseholdSplitMode(s string) (HouseholdSplitMode, error) {
	switch m := HouseholdSplitMode(s); m {
	case HouseholdProportional, HouseholdManual:
		return m, nil
	default:
		return "", common.NewValidationError("split_mode", "unknown household split mode %q", s)
	}
}

// Income is a raw income figure as entered by a member.
type Income struct {
	Amount  decimal.Decimal `json:"amount" yaml:"amount"`
	Unit    IncomeUnit      `json:"unit" yaml:"unit"`
	TaxRate decimal.Decimal `json:"tax_rate" yaml:"tax_rate"`
}

// HouseholdConfig is the budget configuration of a two-member household.
type HouseholdConfig struct {
	ID        string             `json:"id"`
	Member1   string             `json:"member1"`
	Member2   string             `json:"member2"`
	Income1   Income             `json:"income1"`
	Income2   Income             `json:"income2"`
	SplitMode HouseholdSplitMode `json:"split_mode"`
	Split1    decimal.Decimal    `json:"split1"`
	Split2    decimal.Decimal    `json:"split2"`
}

// SplitTolerance is how far manual percentages may stray from 100.
var SplitTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// ManualSplitValid reports whether two percentages sum to 100 within tolerance.
func ManualSplitValid(p1, p2 decimal.Decimal) bool {
	return p1.Add(p2).Sub(hundred).Abs().LessThanOrEqual(SplitTolerance)
}

// Validate ensures the household config is usable by the calculators.
func (h *HouseholdConfig) Validate() error {
	if h.ID == "" {
		return common.NewValidationError("id", "household id is required")
	}
	if err := validateIncome("income1", h.Income1); err != nil {
		return err
	}
	if err := validateIncome("income2", h.Income2); err != nil {
		return err
	}

	switch h.SplitMode {
	case HouseholdProportional:
	case HouseholdManual:
		if h.Split1.IsNegative() || h.Split2.IsNegative() {
			return common.NewValidationError("split1", "split percentages cannot be negative")
		}
		if !ManualSplitValid(h.Split1, h.Split2) {
			return common.NewValidationError("split1", "split percentages must sum to 100, got %s", h.Split1.Add(h.Split2))
		}
	default:
		return common.NewValidationError("split_mode", "unknown household split mode %q", h.SplitMode)
	}

	return nil
}

func validateIncome(field string, in Income) error {
	if in.Amount.IsNegative() {
		return common.NewValidationError(field+".amount", "income cannot be negative")
	}
	if _, err := ParseIncomeUnit(string(in.Unit)); err != nil {
		return common.NewValidationError(field+".unit", "unknown income unit %q", in.Unit)
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred) {
		return common.NewValidationError(field+".tax_rate", "tax rate must be between 0 and 100")
	}
	return nil
}
