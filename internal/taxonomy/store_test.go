package taxonomy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

const hh = "household-1"

func seedTag(t *testing.T, repo *memoryRepo, name string, expenseType model.ExpenseType, labels ...string) {
	t.Helper()
	require.NoError(t, repo.CreateTag(context.Background(), hh, model.Tag{Name: name, ExpenseType: expenseType, Labels: labels}))
}

// seedTransactions adds count transactions tagged name whose amounts sum to -total.
func seedTransactions(repo *memoryRepo, name string, count int, total string) []string {
	sum := decimal.RequireFromString(total)
	each := sum.Div(decimal.NewFromInt(int64(count))).Round(2)
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		amount := each
		if i == count-1 {
			amount = sum.Sub(each.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		id := fmt.Sprintf("%s-%d", name, i)
		repo.addTransaction(hh, model.Transaction{
			ID:     id,
			Date:   time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC),
			Label:  "CB " + name,
			Amount: amount.Neg(),
			Tags:   []string{name},
		})
		ids = append(ids, id)
	}
	return ids
}

func TestStore_Create(t *testing.T) {
	repo := newMemoryRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	tag, err := store.Create(ctx, hh, model.Tag{Name: "  Groceries ", ExpenseType: "Variable", Labels: []string{"lidl", "LIDL", ""}})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", tag.Name)
	assert.Equal(t, model.ExpenseVariable, tag.ExpenseType)
	assert.Equal(t, []string{"lidl"}, tag.Labels)

	_, err = store.Create(ctx, hh, model.Tag{Name: "GROCERIES", ExpenseType: model.ExpenseFixed})
	var dup *common.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Groceries", dup.Existing)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = store.Create(ctx, hh, model.Tag{Name: "Rent", ExpenseType: "sometimes"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = store.Create(ctx, hh, model.Tag{Name: "   "})
	assert.ErrorIs(t, err, common.ErrValidation)

	tag, err = store.Create(ctx, hh, model.Tag{Name: "Misc"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultExpenseType, tag.ExpenseType)
}

func TestStore_UpdateRenamesReferences(t *testing.T) {
	repo := newMemoryRepo()
	seedTag(t, repo, "resto", model.ExpenseVariable)
	seedTag(t, repo, "Rent", model.ExpenseFixed)
	ids := seedTransactions(repo, "resto", 3, "90")
	repo.addRule(hh, model.ClassificationRule{Name: "Resto", Tag: "resto"})
	store := NewStore(repo, nil)
	ctx := context.Background()

	_, err := store.Update(ctx, hh, "resto", model.Tag{Name: "rent", ExpenseType: model.ExpenseVariable})
	var dup *common.DuplicateNameError
	require.ErrorAs(t, err, &dup)

	tag, err := store.Update(ctx, hh, "RESTO", model.Tag{Name: "Restaurants", ExpenseType: model.ExpenseVariable, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, "Restaurants", tag.Name)

	for _, id := range ids {
		assert.Equal(t, []string{"Restaurants"}, repo.transaction(hh, id).Tags)
	}
	assert.Equal(t, []string{"Restaurants"}, repo.ruleTags(hh))
	_, err = store.Get(ctx, hh, "resto")
	assert.ErrorIs(t, err, common.ErrNotFound)

	stats, err := store.Stats(ctx, hh, "restaurants")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TransactionCount)
	assert.Equal(t, "Food", stats.Tag.Category)

	// Case-only rename of the same tag is allowed.
	_, err = store.Update(ctx, hh, "Restaurants", model.Tag{Name: "RESTAURANTS", ExpenseType: model.ExpenseVariable})
	require.NoError(t, err)

	_, err = store.Update(ctx, hh, "missing", model.Tag{Name: "x"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("block if referenced", func(t *testing.T) {
		repo := newMemoryRepo()
		seedTag(t, repo, "Fuel", model.ExpenseVariable)
		seedTransactions(repo, "Fuel", 2, "100")
		store := NewStore(repo, nil)

		_, err := store.Delete(ctx, hh, "fuel", BlockIfReferenced)
		var ref *common.ReferentialError
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, 2, ref.Transactions)
		assert.ErrorIs(t, err, common.ErrTagReferenced)

		_, err = store.Get(ctx, hh, "Fuel")
		assert.NoError(t, err)
	})

	t.Run("detach transactions", func(t *testing.T) {
		repo := newMemoryRepo()
		seedTag(t, repo, "Fuel", model.ExpenseVariable)
		ids := seedTransactions(repo, "Fuel", 2, "100")
		store := NewStore(repo, nil)

		report, err := store.Delete(ctx, hh, "Fuel", DetachTransactions)
		require.NoError(t, err)
		assert.Equal(t, 2, report.TransactionsDetached)
		for _, id := range ids {
			assert.Empty(t, repo.transaction(hh, id).Tags)
		}
		_, err = store.Get(ctx, hh, "Fuel")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("unreferenced tag with block policy", func(t *testing.T) {
		repo := newMemoryRepo()
		seedTag(t, repo, "Unused", model.ExpenseVariable)
		store := NewStore(repo, nil)

		report, err := store.Delete(ctx, hh, "Unused", BlockIfReferenced)
		require.NoError(t, err)
		assert.Zero(t, report.TransactionsDetached)
	})

	t.Run("partial failure", func(t *testing.T) {
		repo := newMemoryRepo()
		seedTag(t, repo, "Fuel", model.ExpenseVariable)
		seedTransactions(repo, "Fuel", 3, "100")
		store := NewStore(&faultyRepo{memoryRepo: repo, failAfter: 1}, nil)

		_, err := store.Delete(ctx, hh, "Fuel", DetachTransactions)
		var partial *common.PartialFailureError
		require.ErrorAs(t, err, &partial)
		assert.Len(t, partial.UpdatedIDs, 1)
		assert.ErrorIs(t, err, errInjected)

		_, err = store.Get(ctx, hh, "Fuel")
		assert.NoError(t, err, "tag survives a partial delete")
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := NewStore(newMemoryRepo(), nil).Delete(ctx, hh, "x", "purge")
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestStore_AllStatsIsLive(t *testing.T) {
	repo := newMemoryRepo()
	seedTag(t, repo, "A", model.ExpenseVariable)
	seedTag(t, repo, "B", model.ExpenseFixed)
	seedTransactions(repo, "A", 2, "30")
	store := NewStore(repo, nil)
	ctx := context.Background()

	stats, err := store.AllStats(ctx, hh)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats[0].TransactionCount)
	assert.True(t, decimal.RequireFromString("30").Equal(stats[0].TotalAmount))
	assert.Zero(t, stats[1].TransactionCount)

	seedTransactions(repo, "B", 1, "12.5")
	stats, err = store.AllStats(ctx, hh)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[1].TransactionCount)
}

func TestLocker(t *testing.T) {
	locks := NewLocker()
	unlock, err := locks.Lock(context.Background(), hh)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, hh)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.Lock(context.Background(), "household-2")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locks.Lock(context.Background(), hh)
	require.NoError(t, err)
	again()
}
