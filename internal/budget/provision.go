package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// ProvisionEngine derives provision amounts from the current household config.
// It never trusts a provision's stored MonthlyAmount.
type ProvisionEngine struct {
	household   model.HouseholdConfig
	revenues    Revenues
	defaultMode model.SplitMode
	defaultPct  Percentages
}

// NewProvisionEngine validates the household and precomputes net revenues.
func NewProvisionEngine(h model.HouseholdConfig) (*ProvisionEngine, error) {
	revenues, err := HouseholdRevenues(h)
	if err != nil {
		return nil, err
	}
	mode, pct := DefaultSplit(h)
	return &ProvisionEngine{
		household:   h,
		revenues:    revenues,
		defaultMode: mode,
		defaultPct:  pct,
	}, nil
}

// Revenues returns the net monthly revenues the engine computes against.
func (e *ProvisionEngine) Revenues() Revenues {
	return e.revenues
}

// MonthlyAmount computes the provision's monthly amount, rounded to cents.
func (e *ProvisionEngine) MonthlyAmount(p model.Provision) (decimal.Decimal, error) {
	var base decimal.Decimal
	switch p.Base {
	case model.BaseFixedAmount:
		if p.FixedAmount.IsNegative() {
			return decimal.Zero, common.NewValidationError("fixed_amount", "fixed amount cannot be negative")
		}
		return RoundCents(p.FixedAmount), nil
	case model.BaseTotalRevenue:
		base = e.revenues.Total()
	case model.BaseMember1Revenue:
		base = e.revenues.Member1
	case model.BaseMember2Revenue:
		base = e.revenues.Member2
	default:
		return decimal.Zero, common.NewValidationError("base_calculation", "unknown provision base %q", p.Base)
	}

	if p.Percentage == nil {
		return decimal.Zero, common.NewValidationError("percentage", "percentage is required for base %s", p.Base)
	}
	if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
		return decimal.Zero, common.NewValidationError("percentage", "percentage must be between 0 and 100")
	}

	return RoundCents(base.Mul(*p.Percentage).Div(hundred)), nil
}

// Allocate computes the provision's monthly amount and splits it between members.
// Provisions drawn from one member's revenue are carried by that member alone.
func (e *ProvisionEngine) Allocate(p model.Provision) (LineAllocation, error) {
	monthly, err := e.MonthlyAmount(p)
	if err != nil {
		return LineAllocation{}, fmt.Errorf("provision %q: %w", p.Name, err)
	}

	mode, pct := e.defaultMode, e.defaultPct
	switch p.Base {
	case model.BaseMember1Revenue:
		mode = model.SplitMember1Only
	case model.BaseMember2Revenue:
		mode = model.SplitMember2Only
	}

	alloc, err := Split(monthly, mode, pct, e.revenues)
	if err != nil {
		return LineAllocation{}, fmt.Errorf("provision %q: %w", p.Name, err)
	}

	return LineAllocation{
		Name:       p.Name,
		Monthly:    monthly,
		Allocation: alloc,
	}, nil
}

// Recompute returns copies of the provisions with MonthlyAmount refreshed.
func (e *ProvisionEngine) Recompute(provisions []model.Provision) ([]model.Provision, error) {
	out := make([]model.Provision, len(provisions))
	for i, p := range provisions {
		monthly, err := e.MonthlyAmount(p)
		if err != nil {
			return nil, fmt.Errorf("provision %q: %w", p.Name, err)
		}
		p.MonthlyAmount = monthly
		out[i] = p
	}
	return out, nil
}
