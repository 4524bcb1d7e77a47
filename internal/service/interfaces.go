// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/taxonomy"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	// Untagged restricts the result to transactions without any tag.
	Untagged bool
	Limit    int
	Offset   int
}

// HouseholdStore persists household budget configuration.
type HouseholdStore interface {
	SaveHousehold(ctx context.Context, household *model.HouseholdConfig) error
	GetHousehold(ctx context.Context, id string) (*model.HouseholdConfig, error)
}

// TransactionStore persists bank transactions.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, householdID string, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, householdID string, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, householdID, id string) (*model.Transaction, error)
	SetTransactionExcluded(ctx context.Context, householdID, id string, excluded bool) error
}

// RuleStore persists classification rules.
type RuleStore interface {
	SaveRule(ctx context.Context, householdID string, rule *model.ClassificationRule) error
	GetRules(ctx context.Context, householdID string) ([]model.ClassificationRule, error)
	DeleteRule(ctx context.Context, householdID, id string) error
}

// RecurringLineStore persists fixed recurring expenses.
type RecurringLineStore interface {
	SaveRecurringLine(ctx context.Context, householdID string, line *model.RecurringLine) error
	GetRecurringLines(ctx context.Context, householdID string) ([]model.RecurringLine, error)
	DeleteRecurringLine(ctx context.Context, householdID, id string) error
}

// ProvisionStore persists savings provisions and their cached monthly amounts.
type ProvisionStore interface {
	SaveProvision(ctx context.Context, householdID string, provision *model.Provision) error
	GetProvisions(ctx context.Context, householdID string) ([]model.Provision, error)
	DeleteProvision(ctx context.Context, householdID, id string) error
}

// BudgetStore persists monthly category budgets.
type BudgetStore interface {
	SaveCategoryBudget(ctx context.Context, householdID string, budget *model.CategoryBudget) error
	GetCategoryBudgets(ctx context.Context, householdID string, month model.Month) ([]model.CategoryBudget, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	taxonomy.Repository
	HouseholdStore
	TransactionStore
	RuleStore
	RecurringLineStore
	ProvisionStore
	BudgetStore

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction groups the writes that must land together, such as a household
// change and the provision caches derived from it.
type Transaction interface {
	Commit() error
	Rollback() error
	HouseholdStore
	ProvisionStore
}
