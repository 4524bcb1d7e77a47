// Package tags provides test infrastructure for seeding a household's tag
// taxonomy and the transactions that reference it.
//
// Example usage:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b tags.Builder) tags.Builder {
//		return b.
//			WithFixture(tags.FixtureHousehold).
//			WithTransactions(tags.TagGroceries, 3, "120")
//	})
package tags

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
)

// Builder provides a fluent interface for constructing a test taxonomy.
type Builder interface {
	// WithTag adds a single tag with its expense type.
	WithTag(name TagName, expenseType model.ExpenseType) Builder

	// WithSpec adds a fully described tag.
	WithSpec(spec Spec) Builder

	// WithFixture adds every tag of a predefined fixture.
	WithFixture(fixture Fixture) Builder

	// WithTransactions adds count expenses tagged name whose amounts sum to -total.
	WithTransactions(name TagName, count int, total string) Builder

	// InMonth dates seeded transactions within the given month.
	InMonth(month model.Month) Builder

	// Build creates the tags and transactions in storage for the household.
	Build(ctx context.Context, storage service.Storage, householdID string) (Tags, error)
}

// TagName is a strongly-typed tag name.
type TagName string

// String returns the string representation of the tag name.
func (n TagName) String() string {
	return string(n)
}

// Common tag names used across tests.
const (
	TagRent          TagName = "Rent"
	TagInsurance     TagName = "Insurance"
	TagUtilities     TagName = "Utilities"
	TagGroceries     TagName = "Groceries"
	TagRestaurants   TagName = "Restaurants"
	TagSubscriptions TagName = "Subscriptions"
	TagLeisure       TagName = "Leisure"
	TagSalary        TagName = "Salary"

	// Near-duplicates of TagRestaurants used by merge tests.
	TagResto      TagName = "resto"
	TagRestaurant TagName = "restaurant"
)

// Spec fully describes a tag to seed.
type Spec struct {
	Name        TagName
	ExpenseType model.ExpenseType
	Category    string
	Labels      []string
}

// Tags is the collection of seeded tags.
type Tags []model.Tag

// Find returns the tag with the given name, or nil.
func (t Tags) Find(name TagName) *model.Tag {
	for i := range t {
		if model.SameTag(t[i].Name, name.String()) {
			return &t[i]
		}
	}
	return nil
}

// MustFind returns the tag with the given name or fails the test.
func (t Tags) MustFind(tb testing.TB, name TagName) model.Tag {
	tb.Helper()
	tag := t.Find(name)
	if tag == nil {
		tb.Fatalf("tag %q not found in test data", name)
	}
	return *tag
}

// Names returns all tag names.
func (t Tags) Names() []string {
	names := make([]string, len(t))
	for i, tag := range t {
		names[i] = tag.Name
	}
	return names
}

type seed struct {
	name  TagName
	count int
	total string
}

type tagBuilder struct {
	t     testing.TB
	specs map[TagName]Spec
	seeds []seed
	month model.Month
}

// NewBuilder creates a new tag builder for the given test.
func NewBuilder(t testing.TB) Builder {
	t.Helper()
	return &tagBuilder{
		t:     t,
		specs: make(map[TagName]Spec),
		month: model.Month{Year: 2024, Month: time.March},
	}
}

func (b *tagBuilder) WithTag(name TagName, expenseType model.ExpenseType) Builder {
	return b.WithSpec(Spec{Name: name, ExpenseType: expenseType})
}

func (b *tagBuilder) WithSpec(spec Spec) Builder {
	b.specs[spec.Name] = spec
	return b
}

func (b *tagBuilder) WithFixture(fixture Fixture) Builder {
	for _, spec := range fixture.Tags() {
		b.WithSpec(spec)
	}
	return b
}

func (b *tagBuilder) WithTransactions(name TagName, count int, total string) Builder {
	b.seeds = append(b.seeds, seed{name: name, count: count, total: total})
	return b
}

func (b *tagBuilder) InMonth(month model.Month) Builder {
	b.month = month
	return b
}

func (b *tagBuilder) Build(ctx context.Context, storage service.Storage, householdID string) (Tags, error) {
	b.t.Helper()

	names := make([]TagName, 0, len(b.specs))
	for name := range b.specs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	result := make(Tags, 0, len(names))
	for _, name := range names {
		spec := b.specs[name]
		tag := model.Tag{
			Name:        name.String(),
			ExpenseType: spec.ExpenseType,
			Category:    spec.Category,
			Labels:      spec.Labels,
		}
		if tag.ExpenseType == "" {
			tag.ExpenseType = model.DefaultExpenseType
		}
		if err := storage.CreateTag(ctx, householdID, tag); err != nil {
			return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		result = append(result, tag)
	}

	var txns []model.Transaction
	for _, s := range b.seeds {
		txns = append(txns, b.transactions(s)...)
	}
	if err := storage.SaveTransactions(ctx, householdID, txns); err != nil {
		return nil, fmt.Errorf("failed to seed transactions: %w", err)
	}

	return result, nil
}

// transactions spreads -total over count expenses, the last one absorbing
// the rounding remainder.
func (b *tagBuilder) transactions(s seed) []model.Transaction {
	if s.count <= 0 {
		return nil
	}
	sum := decimal.RequireFromString(s.total)
	each := sum.Div(decimal.NewFromInt(int64(s.count))).Round(2)

	out := make([]model.Transaction, 0, s.count)
	for i := 0; i < s.count; i++ {
		amount := each
		if i == s.count-1 {
			amount = sum.Sub(each.Mul(decimal.NewFromInt(int64(s.count - 1))))
		}
		out = append(out, model.Transaction{
			ID:     fmt.Sprintf("%s-%d", model.TagKey(s.name.String()), i),
			Date:   b.month.Start().AddDate(0, 0, i%28),
			Label:  "CB " + s.name.String(),
			Amount: amount.Neg(),
			Tags:   []string{s.name.String()},
		})
	}
	return out
}
