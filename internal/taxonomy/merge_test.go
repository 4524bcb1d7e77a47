package taxonomy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

func restaurantFixture(t *testing.T) *memoryRepo {
	t.Helper()
	repo := newMemoryRepo()
	seedTag(t, repo, "resto", model.ExpenseVariable, "CB RESTO", "brasserie")
	seedTag(t, repo, "restaurant", model.ExpenseVariable, "cb resto", "pizzeria")
	seedTag(t, repo, "Restaurants", model.ExpenseVariable, "bistro")
	seedTransactions(repo, "resto", 3, "120")
	seedTransactions(repo, "restaurant", 5, "340")
	seedTransactions(repo, "Restaurants", 2, "80")
	return repo
}

func TestStore_Merge(t *testing.T) {
	repo := restaurantFixture(t)
	store := NewStore(repo, nil)
	ctx := context.Background()

	report, err := store.Merge(ctx, hh, MergeRequest{
		SourceTags:       []string{"resto", "restaurant"},
		TargetTag:        "Restaurants",
		DeleteSourceTags: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Restaurants", report.TargetTag)
	assert.Equal(t, []string{"resto", "restaurant"}, report.MergedTags)
	assert.Equal(t, 8, report.TransactionsUpdated)
	assert.Len(t, report.UpdatedTransactionIDs, 8)

	stats, err := store.Stats(ctx, hh, "Restaurants")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TransactionCount)
	assert.True(t, decimal.NewFromInt(540).Equal(stats.TotalAmount), "total = %s", stats.TotalAmount)
	assert.Equal(t, []string{"bistro", "CB RESTO", "brasserie", "pizzeria"}, stats.Tag.Labels)

	for _, name := range []string{"resto", "restaurant"} {
		_, err := store.Get(ctx, hh, name)
		assert.ErrorIs(t, err, common.ErrNotFound, name)
	}
}

func TestStore_MergeRetargetsRules(t *testing.T) {
	repo := restaurantFixture(t)
	repo.addRule(hh, model.ClassificationRule{Name: "Resto", Tag: "resto"})
	repo.addRule(hh, model.ClassificationRule{Name: "Pizza", Tag: "RESTAURANT"})
	repo.addRule(hh, model.ClassificationRule{Name: "Rent", Tag: "Rent"})
	store := NewStore(repo, nil)
	ctx := context.Background()
	req := MergeRequest{SourceTags: []string{"resto", "restaurant"}, TargetTag: "Restaurants", DeleteSourceTags: true}

	report, err := store.Merge(ctx, hh, req)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RulesUpdated)
	assert.Equal(t, []string{"Restaurants", "Restaurants", "Rent"}, repo.ruleTags(hh))

	// A rule added later under a deleted source name still follows the merge.
	repo.addRule(hh, model.ClassificationRule{Name: "Late", Tag: "resto"})
	report, err = store.Merge(ctx, hh, req)
	require.NoError(t, err)
	assert.Zero(t, report.TransactionsUpdated)
	assert.Equal(t, 1, report.RulesUpdated)
	assert.Equal(t, "Restaurants", repo.ruleTags(hh)[3])
}

func TestStore_MergeConservation(t *testing.T) {
	repo := restaurantFixture(t)
	store := NewStore(repo, nil)
	ctx := context.Background()

	before := decimal.Zero
	count := 0
	for _, name := range []string{"resto", "restaurant", "Restaurants"} {
		s, err := store.Stats(ctx, hh, name)
		require.NoError(t, err)
		before = before.Add(s.TotalAmount)
		count += s.TransactionCount
	}

	_, err := store.Merge(ctx, hh, MergeRequest{SourceTags: []string{"resto", "restaurant"}, TargetTag: "Restaurants"})
	require.NoError(t, err)

	after, err := store.Stats(ctx, hh, "Restaurants")
	require.NoError(t, err)
	assert.True(t, before.Equal(after.TotalAmount))
	assert.Equal(t, count, after.TransactionCount)

	// Sources are kept but empty.
	resto, err := store.Stats(ctx, hh, "resto")
	require.NoError(t, err)
	assert.Zero(t, resto.TransactionCount)
}

func TestStore_MergeIdempotent(t *testing.T) {
	for _, deleteSources := range []bool{true, false} {
		repo := restaurantFixture(t)
		store := NewStore(repo, nil)
		ctx := context.Background()
		req := MergeRequest{SourceTags: []string{"resto", "restaurant"}, TargetTag: "Restaurants", DeleteSourceTags: deleteSources}

		first, err := store.Merge(ctx, hh, req)
		require.NoError(t, err)
		assert.Equal(t, 8, first.TransactionsUpdated)

		second, err := store.Merge(ctx, hh, req)
		require.NoError(t, err)
		assert.Zero(t, second.TransactionsUpdated)

		stats, err := store.Stats(ctx, hh, "Restaurants")
		require.NoError(t, err)
		assert.Equal(t, 10, stats.TransactionCount)
	}
}

func TestStore_MergeOverlappingTransaction(t *testing.T) {
	repo := newMemoryRepo()
	seedTag(t, repo, "a", model.ExpenseVariable)
	seedTag(t, repo, "b", model.ExpenseVariable)
	repo.addTransaction(hh, model.Transaction{ID: "both", Amount: decimal.NewFromInt(-10), Tags: []string{"a", "b", "other"}})
	store := NewStore(repo, nil)

	report, err := store.Merge(context.Background(), hh, MergeRequest{SourceTags: []string{"a"}, TargetTag: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TransactionsUpdated)
	assert.Equal(t, []string{"b", "other"}, repo.transaction(hh, "both").Tags)
}

func TestStore_MergeInvalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  MergeRequest
	}{
		{name: "no sources", req: MergeRequest{TargetTag: "Restaurants"}},
		{name: "no target", req: MergeRequest{SourceTags: []string{"resto"}}},
		{name: "target among sources", req: MergeRequest{SourceTags: []string{"resto", "RESTAURANTS"}, TargetTag: "Restaurants"}},
		{name: "blank source", req: MergeRequest{SourceTags: []string{" "}, TargetTag: "Restaurants"}},
		{name: "missing target", req: MergeRequest{SourceTags: []string{"resto"}, TargetTag: "Food"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := restaurantFixture(t)
			_, err := NewStore(repo, nil).Merge(ctx, hh, tt.req)
			var invalid *common.InvalidMergeError
			require.ErrorAs(t, err, &invalid)
			assert.ErrorIs(t, err, common.ErrInvalidMerge)

			assert.Equal(t, []string{"resto"}, repo.transaction(hh, "resto-0").Tags, "nothing was written")
		})
	}
}

func TestStore_MergeCreatesTarget(t *testing.T) {
	repo := restaurantFixture(t)
	store := NewStore(repo, nil)
	ctx := context.Background()

	report, err := store.Merge(ctx, hh, MergeRequest{
		SourceTags:            []string{"resto", "restaurant", "Restaurants"},
		TargetTag:             "Eating out",
		CreateTargetIfMissing: true,
		DeleteSourceTags:      true,
	})
	require.NoError(t, err)
	assert.True(t, report.TargetCreated)
	assert.Equal(t, 10, report.TransactionsUpdated)

	tags, err := store.List(ctx, hh)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Eating out", tags[0].Name)
	assert.Equal(t, model.ExpenseVariable, tags[0].ExpenseType)
	assert.Len(t, tags[0].Labels, 4)
}

func TestStore_MergePartialFailureThenRetry(t *testing.T) {
	repo := restaurantFixture(t)
	faulty := &faultyRepo{memoryRepo: repo, failAfter: 4}
	ctx := context.Background()
	req := MergeRequest{SourceTags: []string{"resto", "restaurant"}, TargetTag: "Restaurants", DeleteSourceTags: true}

	_, err := NewStore(faulty, nil).Merge(ctx, hh, req)
	var partial *common.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "merge", partial.Operation)
	assert.Len(t, partial.UpdatedIDs, 4)
	assert.ErrorIs(t, err, common.ErrPartialFailure)
	assert.ErrorIs(t, err, errInjected)

	_, err = repo.GetTag(ctx, hh, "resto")
	require.NoError(t, err, "sources are not deleted after a failed merge")

	report, err := NewStore(repo, nil).Merge(ctx, hh, req)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TransactionsUpdated)

	stats, err := NewStore(repo, nil).Stats(ctx, hh, "Restaurants")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TransactionCount)
	assert.True(t, decimal.NewFromInt(540).Equal(stats.TotalAmount))
}

func TestMergeReport_JSON(t *testing.T) {
	data, err := json.Marshal(MergeReport{TargetTag: "Restaurants", MergedTags: []string{"resto"}, TransactionsUpdated: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"target_tag":"Restaurants","merged_tags":["resto"],"transactions_updated":3}`, string(data))
}
