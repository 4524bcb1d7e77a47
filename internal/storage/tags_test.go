package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/taxonomy"
)

func TestSQLiteStorage_TagCRUD(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.CreateTag(ctx, testHousehold, model.Tag{
		Name:        "Groceries",
		ExpenseType: model.ExpenseVariable,
		Category:    "Food",
		Labels:      []string{"CARREFOUR", "lidl"},
	}))
	require.NoError(t, store.CreateTag(ctx, testHousehold, model.Tag{Name: "Rent", ExpenseType: model.ExpenseFixed}))

	t.Run("case-insensitive lookup", func(t *testing.T) {
		tag, err := store.GetTag(ctx, testHousehold, "  groceries ")
		require.NoError(t, err)
		assert.Equal(t, "Groceries", tag.Name)
		assert.Equal(t, "Food", tag.Category)
		assert.Equal(t, []string{"CARREFOUR", "lidl"}, tag.Labels)
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := store.CreateTag(ctx, testHousehold, model.Tag{Name: "RENT", ExpenseType: model.ExpenseFixed})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("same name in another household", func(t *testing.T) {
		require.NoError(t, store.CreateTag(ctx, "other", model.Tag{Name: "Rent", ExpenseType: model.ExpenseFixed}))
	})

	t.Run("list is ordered and scoped", func(t *testing.T) {
		tags, err := store.ListTags(ctx, testHousehold)
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, "Groceries", tags[0].Name)
		assert.Equal(t, "Rent", tags[1].Name)
		assert.Nil(t, tags[1].Labels)
	})

	t.Run("rename", func(t *testing.T) {
		require.NoError(t, store.UpdateTag(ctx, testHousehold, "rent", model.Tag{
			Name:        "Housing",
			ExpenseType: model.ExpenseFixed,
			Labels:      []string{"loyer"},
		}))
		_, err := store.GetTag(ctx, testHousehold, "Rent")
		assert.ErrorIs(t, err, common.ErrNotFound)
		tag, err := store.GetTag(ctx, testHousehold, "housing")
		require.NoError(t, err)
		assert.Equal(t, []string{"loyer"}, tag.Labels)
	})

	t.Run("update missing", func(t *testing.T) {
		err := store.UpdateTag(ctx, testHousehold, "nope", model.Tag{Name: "x", ExpenseType: model.ExpenseFixed})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid tag", func(t *testing.T) {
		err := store.CreateTag(ctx, testHousehold, model.Tag{Name: "Odd", ExpenseType: "sometimes"})
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteTag(ctx, testHousehold, "HOUSING"))
		assert.ErrorIs(t, store.DeleteTag(ctx, testHousehold, "housing"), common.ErrNotFound)
	})
}

func TestTaxonomyStoreOverSQLite_Merge(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seed := []struct {
		name   string
		labels []string
		count  int
		total  int64
	}{
		{"resto", []string{"CB RESTO", "brasserie"}, 3, 120},
		{"restaurant", []string{"cb resto", "pizzeria"}, 5, 340},
		{"Restaurants", []string{"bistro"}, 2, 80},
	}

	var txns []model.Transaction
	for _, s := range seed {
		require.NoError(t, store.CreateTag(ctx, testHousehold, model.Tag{
			Name: s.name, ExpenseType: model.ExpenseVariable, Labels: s.labels,
		}))
		each := decimal.NewFromInt(s.total).Div(decimal.NewFromInt(int64(s.count)))
		for i := 0; i < s.count; i++ {
			txns = append(txns, model.Transaction{
				Date:   day(2024, 3, i+1),
				Label:  "meal " + s.name,
				Amount: each.Neg(),
				Tags:   []string{s.name},
			})
		}
	}
	require.NoError(t, store.SaveTransactions(ctx, testHousehold, txns))

	tags := taxonomy.NewStore(store, nil)
	report, err := tags.Merge(ctx, testHousehold, taxonomy.MergeRequest{
		SourceTags:       []string{"resto", "restaurant"},
		TargetTag:        "Restaurants",
		DeleteSourceTags: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, report.TransactionsUpdated)

	stats, err := tags.Stats(ctx, testHousehold, "restaurants")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TransactionCount)
	assert.True(t, decimal.NewFromInt(540).Equal(stats.TotalAmount), "total = %s", stats.TotalAmount)
	assert.Equal(t, []string{"bistro", "CB RESTO", "brasserie", "pizzeria"}, stats.Tag.Labels)

	remaining, err := store.ListTags(ctx, testHousehold)
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	// A second run finds nothing to move.
	again, err := tags.Merge(ctx, testHousehold, taxonomy.MergeRequest{
		SourceTags: []string{"resto", "restaurant"},
		TargetTag:  "Restaurants",
	})
	require.NoError(t, err)
	assert.Zero(t, again.TransactionsUpdated)
}
