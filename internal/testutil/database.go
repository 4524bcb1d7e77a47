// Package testutil provides test utilities for the household budget: an
// isolated, migrated database per test and seeded taxonomies.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
	"github.com/Veraticus/household-budget/internal/storage"
	"github.com/Veraticus/household-budget/internal/testutil/tags"
)

// HouseholdID is the household every test database is seeded with.
const HouseholdID = "test-household"

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage   service.Storage
	Household *model.HouseholdConfig
	t         testing.TB
	Tags      tags.Tags
}

// Household returns the seeded household: 2000 and 1000 net per month,
// split proportionally.
func Household() *model.HouseholdConfig {
	return &model.HouseholdConfig{
		ID:        HouseholdID,
		Member1:   "Alex",
		Member2:   "Sam",
		Income1:   model.Income{Amount: decimal.NewFromInt(2000), Unit: model.IncomeMonthly},
		Income2:   model.Income{Amount: decimal.NewFromInt(1000), Unit: model.IncomeMonthly},
		SplitMode: model.HouseholdProportional,
		Split1:    decimal.NewFromInt(50),
		Split2:    decimal.NewFromInt(50),
	}
}

// SetupTestDB creates a migrated in-memory database holding the test household.
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()
	return SetupTestDBWithBuilder(t, nil)
}

// SetupTestDBWithBuilder creates a test database and seeds it through a tag builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b tags.Builder) tags.Builder {
//		return b.WithFixture(tags.FixtureMinimal)
//	})
func SetupTestDBWithBuilder(t testing.TB, configure func(tags.Builder) tags.Builder) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	household := Household()
	if err := store.SaveHousehold(ctx, household); err != nil {
		t.Fatalf("failed to seed household: %v", err)
	}

	builder := tags.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	seeded, err := builder.Build(ctx, store, HouseholdID)
	if err != nil {
		t.Fatalf("failed to build tags: %v", err)
	}

	return &TestDB{
		Storage:   store,
		Household: household,
		Tags:      seeded,
		t:         t,
	}
}

// WithTransaction executes fn within a database transaction that is always
// rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
