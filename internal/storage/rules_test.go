package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func TestSQLiteStorage_Rules(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	lo := decimal.NewFromInt(-100)
	rules := []*model.ClassificationRule{
		{
			Name:        "Groceries",
			Tag:         "Groceries",
			ExpenseType: model.ExpenseVariable,
			MatchType:   model.MatchPartial,
			Keywords:    []string{"carrefour", "lidl"},
			Priority:    100,
			Active:      true,
		},
		{
			Name:            "Small rent",
			ExpenseType:     model.ExpenseFixed,
			MatchType:       model.MatchExact,
			Keywords:        []string{"loyer"},
			AmountCondition: model.AmountRange,
			AmountMin:       &lo,
			Priority:        1,
			Active:          true,
		},
	}
	for _, r := range rules {
		require.NoError(t, store.SaveRule(ctx, testHousehold, r))
		assert.NotEmpty(t, r.ID)
	}

	got, err := store.GetRules(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Small rent", got[0].Name)
	assert.Equal(t, model.AmountRange, got[0].AmountCondition)
	require.NotNil(t, got[0].AmountMin)
	assert.True(t, got[0].AmountMin.Equal(lo))
	assert.Nil(t, got[0].AmountMax)
	assert.Equal(t, []string{"carrefour", "lidl"}, got[1].Keywords)
	assert.Equal(t, model.AmountAny, got[1].AmountCondition)

	// Same name replaces the rule and keeps its ID.
	firstID := rules[0].ID
	replacement := &model.ClassificationRule{
		Name:        "Groceries",
		ExpenseType: model.ExpenseVariable,
		MatchType:   model.MatchRegex,
		Keywords:    []string{`^CB (LIDL|ALDI)`},
		Active:      false,
	}
	require.NoError(t, store.SaveRule(ctx, testHousehold, replacement))
	assert.Equal(t, firstID, replacement.ID)

	got, err = store.GetRules(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NoError(t, store.DeleteRule(ctx, testHousehold, firstID))
	assert.ErrorIs(t, store.DeleteRule(ctx, testHousehold, firstID), common.ErrNotFound)

	err = store.SaveRule(ctx, testHousehold, &model.ClassificationRule{Name: "", ExpenseType: model.ExpenseFixed})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSQLiteStorage_RecurringLines(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	line := &model.RecurringLine{
		Label:     "Insurance",
		Category:  "Housing",
		Frequency: model.FrequencyQuarterly,
		SplitMode: model.SplitManual,
		Amount:    decimal.NewFromInt(300),
		Split1:    decimal.NewFromInt(70),
		Split2:    decimal.NewFromInt(30),
		Active:    true,
	}
	require.NoError(t, store.SaveRecurringLine(ctx, testHousehold, line))
	require.NotEmpty(t, line.ID)

	lines, err := store.GetRecurringLines(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, model.FrequencyQuarterly, lines[0].Frequency)
	assert.Equal(t, model.SplitManual, lines[0].SplitMode)
	assert.True(t, lines[0].Split1.Equal(decimal.NewFromInt(70)))

	line.Active = false
	require.NoError(t, store.SaveRecurringLine(ctx, testHousehold, line))
	lines, err = store.GetRecurringLines(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.False(t, lines[0].Active)

	bad := &model.RecurringLine{Label: "Bad", Frequency: "weekly", SplitMode: model.SplitEqual}
	assert.ErrorIs(t, store.SaveRecurringLine(ctx, testHousehold, bad), common.ErrValidation)

	require.NoError(t, store.DeleteRecurringLine(ctx, testHousehold, line.ID))
	assert.ErrorIs(t, store.DeleteRecurringLine(ctx, testHousehold, line.ID), common.ErrNotFound)
}

func TestSQLiteStorage_Provisions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	pct := decimal.RequireFromString("3.333")
	target := decimal.NewFromInt(5000)
	provisions := []*model.Provision{
		{Name: "Vacation", Base: model.BaseTotalRevenue, Percentage: &pct, TargetAmount: &target, MonthlyAmount: decimal.NewFromInt(50), Active: true},
		{Name: "Car", Base: model.BaseFixedAmount, FixedAmount: decimal.RequireFromString("150.01"), MonthlyAmount: decimal.RequireFromString("150.01"), Active: true},
	}
	for _, p := range provisions {
		require.NoError(t, store.SaveProvision(ctx, testHousehold, p))
	}

	got, err := store.GetProvisions(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Car", got[0].Name)
	assert.Nil(t, got[0].Percentage)
	assert.Equal(t, "150.01", got[0].FixedAmount.String())
	require.NotNil(t, got[1].Percentage)
	assert.Equal(t, "3.333", got[1].Percentage.String())
	require.NotNil(t, got[1].TargetAmount)
	assert.True(t, got[1].TargetAmount.Equal(target))

	require.NoError(t, store.DeleteProvision(ctx, testHousehold, provisions[0].ID))
	got, err = store.GetProvisions(ctx, testHousehold)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	missing := &model.Provision{Name: "Broken", Base: model.BaseMember1Revenue}
	assert.ErrorIs(t, store.SaveProvision(ctx, testHousehold, missing), common.ErrValidation)
}

func TestSQLiteStorage_CategoryBudgets(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	march := model.Month{Year: 2024, Month: 3}
	april := model.Month{Year: 2024, Month: 4}

	require.NoError(t, store.SaveCategoryBudget(ctx, testHousehold, &model.CategoryBudget{
		Month: march, Category: "Food", Amount: decimal.NewFromInt(100),
	}))
	require.NoError(t, store.SaveCategoryBudget(ctx, testHousehold, &model.CategoryBudget{
		Month: april, Category: "Food", Amount: decimal.NewFromInt(120), AlertThreshold: decimal.RequireFromString("0.9"),
	}))

	budgets, err := store.GetCategoryBudgets(ctx, testHousehold, march)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, march, budgets[0].Month)
	assert.True(t, budgets[0].AlertThreshold.Equal(model.DefaultAlertThreshold))

	// Setting the same month and category replaces the amount.
	require.NoError(t, store.SaveCategoryBudget(ctx, testHousehold, &model.CategoryBudget{
		Month: march, Category: "Food", Amount: decimal.NewFromInt(150),
	}))
	budgets, err = store.GetCategoryBudgets(ctx, testHousehold, march)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.True(t, budgets[0].Amount.Equal(decimal.NewFromInt(150)))

	err = store.SaveCategoryBudget(ctx, testHousehold, &model.CategoryBudget{Month: march, Category: "Fun", Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSQLiteStorage_RetargetRules(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for name, tag := range map[string]string{"Resto": "resto", "Pizza": "RESTAURANT", "Rent": "Rent"} {
		require.NoError(t, store.SaveRule(ctx, testHousehold, &model.ClassificationRule{
			Name:        name,
			Tag:         tag,
			ExpenseType: model.ExpenseVariable,
			MatchType:   model.MatchPartial,
			Keywords:    []string{name},
			Active:      true,
		}))
	}

	n, err := store.RetargetRules(ctx, testHousehold, []string{"resto", "restaurant"}, "Restaurants")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rules, err := store.GetRules(ctx, testHousehold)
	require.NoError(t, err)
	tags := make(map[string]string, len(rules))
	for _, r := range rules {
		tags[r.Name] = r.Tag
	}
	assert.Equal(t, map[string]string{"Resto": "Restaurants", "Pizza": "Restaurants", "Rent": "Rent"}, tags)

	n, err = store.RetargetRules(ctx, "other", []string{"rent"}, "Housing")
	require.NoError(t, err)
	assert.Zero(t, n, "rules of other households are untouched")

	_, err = store.RetargetRules(ctx, testHousehold, []string{"rent"}, " ")
	assert.Error(t, err)
}
