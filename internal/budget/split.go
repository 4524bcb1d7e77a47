package budget

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// Allocation is the share of an amount carried by each member.
type Allocation struct {
	Member1 decimal.Decimal `json:"member1"`
	Member2 decimal.Decimal `json:"member2"`
}

// Total returns the sum of both shares.
func (a Allocation) Total() decimal.Decimal {
	return a.Member1.Add(a.Member2)
}

// Add returns the member-wise sum of two allocations.
func (a Allocation) Add(b Allocation) Allocation {
	return Allocation{
		Member1: a.Member1.Add(b.Member1),
		Member2: a.Member2.Add(b.Member2),
	}
}

// Percentages are manual split percentages for member 1 and member 2.
type Percentages struct {
	Member1 decimal.Decimal
	Member2 decimal.Decimal
}

// Split divides amount between the two members according to mode.
// Member 1's share is rounded to cents and member 2 takes the remainder,
// so Member1+Member2 always equals amount exactly.
func Split(amount decimal.Decimal, mode model.SplitMode, manual Percentages, revenues Revenues) (Allocation, error) {
	if amount.IsNegative() {
		return Allocation{}, common.NewValidationError("amount", "amount cannot be negative")
	}

	var share1 decimal.Decimal
	switch mode {
	case model.SplitRevenueKey:
		if revenues.Member1.IsNegative() || revenues.Member2.IsNegative() {
			return Allocation{}, common.NewValidationError("revenue", "revenues cannot be negative")
		}
		total := revenues.Total()
		if total.IsZero() {
			share1 = amount.Div(two)
		} else {
			share1 = amount.Mul(revenues.Member1).Div(total)
		}
	case model.SplitEqual:
		share1 = amount.Div(two)
	case model.SplitMember1Only:
		share1 = amount
	case model.SplitMember2Only:
		share1 = decimal.Zero
	case model.SplitManual:
		if manual.Member1.IsNegative() || manual.Member2.IsNegative() {
			return Allocation{}, common.NewValidationError("split1", "split percentages cannot be negative")
		}
		if !model.ManualSplitValid(manual.Member1, manual.Member2) {
			return Allocation{}, common.NewValidationError("split1",
				"split percentages must sum to 100, got %s", manual.Member1.Add(manual.Member2))
		}
		share1 = amount.Mul(manual.Member1).Div(hundred)
	default:
		return Allocation{}, common.NewValidationError("split_mode", "unknown split mode %q", mode)
	}

	share1 = RoundCents(share1)
	return Allocation{Member1: share1, Member2: amount.Sub(share1)}, nil
}

// DefaultSplit maps the household-wide policy onto a line split mode.
func DefaultSplit(h model.HouseholdConfig) (model.SplitMode, Percentages) {
	if h.SplitMode == model.HouseholdManual {
		return model.SplitManual, Percentages{Member1: h.Split1, Member2: h.Split2}
	}
	return model.SplitRevenueKey, Percentages{}
}
