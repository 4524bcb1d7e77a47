package budget

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

var (
	hundred     = decimal.NewFromInt(100)
	twelve      = decimal.NewFromInt(12)
	three       = decimal.NewFromInt(3)
	two         = decimal.NewFromInt(2)
	centsPlaces = int32(2)
)

// RoundCents rounds an amount to the smallest currency unit.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centsPlaces)
}

// NormalizeRevenue converts a raw income figure into net monthly revenue.
func NormalizeRevenue(amount decimal.Decimal, unit model.IncomeUnit, taxRate decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, common.NewValidationError("amount", "revenue cannot be negative")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return decimal.Zero, common.NewValidationError("tax_rate", "tax rate must be between 0 and 100, got %s", taxRate)
	}

	monthly := amount
	switch unit {
	case model.IncomeMonthly:
	case model.IncomeAnnual:
		monthly = amount.Div(twelve)
	default:
		return decimal.Zero, common.NewValidationError("unit", "unknown income unit %q", unit)
	}

	return monthly.Mul(decimal.NewFromInt(1).Sub(taxRate.Div(hundred))), nil
}

// Revenues holds the net monthly revenue of both members.
type Revenues struct {
	Member1 decimal.Decimal
	Member2 decimal.Decimal
}

// Total returns the household's combined net monthly revenue.
func (r Revenues) Total() decimal.Decimal {
	return r.Member1.Add(r.Member2)
}

// HouseholdRevenues normalizes both members' incomes.
func HouseholdRevenues(h model.HouseholdConfig) (Revenues, error) {
	r1, err := NormalizeRevenue(h.Income1.Amount, h.Income1.Unit, h.Income1.TaxRate)
	if err != nil {
		return Revenues{}, err
	}
	r2, err := NormalizeRevenue(h.Income2.Amount, h.Income2.Unit, h.Income2.TaxRate)
	if err != nil {
		return Revenues{}, err
	}
	return Revenues{Member1: r1, Member2: r2}, nil
}
