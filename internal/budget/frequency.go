package budget

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// ToMonthly converts an amount billed at the given cadence into its monthly equivalent.
// The result keeps full precision; round for display.
func ToMonthly(amount decimal.Decimal, frequency model.Frequency) (decimal.Decimal, error) {
	switch frequency {
	case model.FrequencyMonthly:
		return amount, nil
	case model.FrequencyQuarterly:
		return amount.Div(three), nil
	case model.FrequencyAnnual:
		return amount.Div(twelve), nil
	default:
		return decimal.Zero, common.NewValidationError("frequency", "unknown frequency %q", frequency)
	}
}
