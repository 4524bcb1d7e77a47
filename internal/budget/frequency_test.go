package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func TestToMonthly(t *testing.T) {
	got, err := ToMonthly(d("300"), model.FrequencyQuarterly)
	require.NoError(t, err)
	assert.True(t, d("100").Equal(got))

	got, err = ToMonthly(d("1200"), model.FrequencyAnnual)
	require.NoError(t, err)
	assert.True(t, d("100").Equal(got))

	got, err = ToMonthly(d("42.5"), model.FrequencyMonthly)
	require.NoError(t, err)
	assert.True(t, d("42.5").Equal(got))

	_, err = ToMonthly(d("1"), "weekly")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestToMonthly_RoundTrip(t *testing.T) {
	// Div keeps decimal.DivisionPrecision digits, so multiplying back drifts
	// by less than one unit in that place times the divisor. Cents are exact.
	unit := decimal.New(1, -int32(decimal.DivisionPrecision))

	for cents := int64(1); cents <= 500000; cents += 991 {
		x := decimal.New(cents, -2)

		annual, err := ToMonthly(x, model.FrequencyAnnual)
		require.NoError(t, err)
		drift := annual.Mul(twelve).Sub(x).Abs()
		assert.True(t, drift.LessThanOrEqual(unit.Mul(twelve)), "annual drift of %s is %s", x, drift)
		assert.True(t, RoundCents(annual.Mul(twelve)).Equal(x), "annual round trip of %s", x)

		quarterly, err := ToMonthly(x, model.FrequencyQuarterly)
		require.NoError(t, err)
		drift = quarterly.Mul(three).Sub(x).Abs()
		assert.True(t, drift.LessThanOrEqual(unit.Mul(three)), "quarterly drift of %s is %s", x, drift)
		assert.True(t, RoundCents(quarterly.Mul(three)).Equal(x), "quarterly round trip of %s", x)
	}
}

func TestAllocator_QuarterlyLine(t *testing.T) {
	a, err := NewAllocator(model.HouseholdConfig{
		Income1: model.Income{Amount: d("2000"), Unit: model.IncomeMonthly},
		Income2: model.Income{Amount: d("1000"), Unit: model.IncomeMonthly},
	})
	require.NoError(t, err)

	item, err := a.Line(model.RecurringLine{
		Label:     "Insurance",
		Amount:    d("300"),
		Frequency: model.FrequencyQuarterly,
		SplitMode: model.SplitEqual,
		Active:    true,
	})
	require.NoError(t, err)
	assert.True(t, d("100").Equal(item.Monthly))
	assert.True(t, d("50").Equal(item.Member1))
	assert.True(t, d("50").Equal(item.Member2))
}

func TestAllocator_LineConservesCents(t *testing.T) {
	a, err := NewAllocator(model.HouseholdConfig{
		Income1: model.Income{Amount: d("1700"), Unit: model.IncomeMonthly},
		Income2: model.Income{Amount: d("2300"), Unit: model.IncomeMonthly},
	})
	require.NoError(t, err)

	item, err := a.Line(model.RecurringLine{
		Label:     "Internet",
		Amount:    d("100"),
		Frequency: model.FrequencyAnnual,
		SplitMode: model.SplitRevenueKey,
	})
	require.NoError(t, err)
	assert.True(t, d("8.33").Equal(item.Monthly))
	assert.True(t, item.Total().Equal(item.Monthly))
	assert.True(t, RoundCents(item.Member2).Equal(item.Member2), "member2 stays at cent precision")
}
