package model

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// ProvisionBase selects what a provision's percentage applies to.
type ProvisionBase string

// Provision base constants.
const (
	BaseTotalRevenue   ProvisionBase = "total-revenue"
	BaseMember1Revenue ProvisionBase = "member1-revenue"
	BaseMember2Revenue ProvisionBase = "member2-revenue"
	BaseFixedAmount    ProvisionBase = "fixed-amount"
)

// ParseProvisionBase validates a provision base.
func ParseProvisionBase(s string) (ProvisionBase, error) {
	switch b := ProvisionBase(s); b {
	case BaseTotalRevenue, BaseMember1Revenue, BaseMember2Revenue, BaseFixedAmount:
		return b, nil
	default:
		return "", common.NewValidationError("base_calculation", "unknown provision base %q", s)
	}
}

// Provision is a planned monthly savings allocation.
// MonthlyAmount is a denormalized cache; it is recomputed from its inputs
// whenever the provision or the household changes and never read as truth.
type Provision struct {
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
	TargetAmount  *decimal.Decimal `json:"target_amount,omitempty"`
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Base          ProvisionBase    `json:"base_calculation"`
	FixedAmount   decimal.Decimal  `json:"fixed_amount"`
	MonthlyAmount decimal.Decimal  `json:"monthly_amount"`
	Active        bool             `json:"is_active"`
}

// Validate ensures the provision has the inputs its base requires.
func (p *Provision) Validate() error {
	if p.Name == "" {
		return common.NewValidationError("name", "provision name is required")
	}
	if _, err := ParseProvisionBase(string(p.Base)); err != nil {
		return err
	}

	if p.Base == BaseFixedAmount {
		if p.FixedAmount.IsNegative() {
			return common.NewValidationError("fixed_amount", "fixed amount cannot be negative")
		}
	} else {
		if p.Percentage == nil {
			return common.NewValidationError("percentage", "percentage is required for base %s", p.Base)
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return common.NewValidationError("percentage", "percentage must be between 0 and 100")
		}
	}

	if p.TargetAmount != nil && p.TargetAmount.IsNegative() {
		return common.NewValidationError("target_amount", "target amount cannot be negative")
	}
	return nil
}
