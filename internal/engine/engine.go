// Package engine composes storage with the budget calculators, the rule
// engine and the tag taxonomy.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/household-budget/internal/budget"
	"github.com/Veraticus/household-budget/internal/classification"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
	"github.com/Veraticus/household-budget/internal/taxonomy"
)

// Service is the application entry point for budget operations.
type Service struct {
	storage    service.Storage
	tags       *taxonomy.Store
	aggregator *budget.Aggregator
	workers    int
}

// Config holds configuration options for the service.
type Config struct {
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers: classification.DefaultWorkers,
	}
}

// New creates a service with the default configuration.
func New(storage service.Storage, tags *taxonomy.Store) *Service {
	return NewWithConfig(storage, tags, DefaultConfig())
}

// NewWithConfig creates a service with a custom configuration. A nil tag
// store is created over storage.
func NewWithConfig(storage service.Storage, tags *taxonomy.Store, config Config) *Service {
	if tags == nil {
		tags = taxonomy.NewStore(storage, nil)
	}
	return &Service{
		storage:    storage,
		tags:       tags,
		aggregator: budget.NewAggregator(),
		workers:    config.Workers,
	}
}

// Tags returns the taxonomy store the service writes through.
func (s *Service) Tags() *taxonomy.Store {
	return s.tags
}

// SaveHousehold persists the household and rewrites every provision's
// cached monthly amount in the same transaction.
func (s *Service) SaveHousehold(ctx context.Context, household *model.HouseholdConfig) (err error) {
	if household == nil {
		return fmt.Errorf("household is required")
	}
	engine, err := budget.NewProvisionEngine(*household)
	if err != nil {
		return err
	}

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("failed to roll back household update", "error", rbErr)
			}
		}
	}()

	if err = tx.SaveHousehold(ctx, household); err != nil {
		return err
	}

	provisions, err := tx.GetProvisions(ctx, household.ID)
	if err != nil {
		return err
	}
	refreshed, err := engine.Recompute(provisions)
	if err != nil {
		return err
	}
	for i := range refreshed {
		if err = tx.SaveProvision(ctx, household.ID, &refreshed[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit household update: %w", err)
	}

	slog.Info("saved household",
		"household", household.ID,
		"split_mode", household.SplitMode,
		"provisions_refreshed", len(refreshed))
	return nil
}

// SaveProvision computes the provision's monthly amount from the current
// household and persists both.
func (s *Service) SaveProvision(ctx context.Context, householdID string, provision *model.Provision) error {
	if provision == nil {
		return fmt.Errorf("provision is required")
	}
	if err := provision.Validate(); err != nil {
		return err
	}

	household, err := s.storage.GetHousehold(ctx, householdID)
	if err != nil {
		return err
	}
	engine, err := budget.NewProvisionEngine(*household)
	if err != nil {
		return err
	}

	monthly, err := engine.MonthlyAmount(*provision)
	if err != nil {
		return err
	}
	provision.MonthlyAmount = monthly

	if err := s.storage.SaveProvision(ctx, householdID, provision); err != nil {
		return err
	}
	slog.Debug("saved provision", "household", householdID, "provision", provision.Name, "monthly", monthly.StringFixed(2))
	return nil
}

// SaveRecurringLine validates a line against the household and persists it.
func (s *Service) SaveRecurringLine(ctx context.Context, householdID string, line *model.RecurringLine) error {
	if line == nil {
		return fmt.Errorf("recurring line is required")
	}
	household, err := s.storage.GetHousehold(ctx, householdID)
	if err != nil {
		return err
	}
	allocator, err := budget.NewAllocator(*household)
	if err != nil {
		return err
	}
	if _, err := allocator.Line(*line); err != nil {
		return err
	}
	return s.storage.SaveRecurringLine(ctx, householdID, line)
}

// MonthlySummary builds the budget summary of the session's household and month.
func (s *Service) MonthlySummary(ctx context.Context, session model.Session) (*budget.Summary, error) {
	household, err := s.storage.GetHousehold(ctx, session.HouseholdID)
	if err != nil {
		return nil, err
	}
	lines, err := s.storage.GetRecurringLines(ctx, session.HouseholdID)
	if err != nil {
		return nil, err
	}
	provisions, err := s.storage.GetProvisions(ctx, session.HouseholdID)
	if err != nil {
		return nil, err
	}

	start, end := session.Month.Start(), session.Month.End()
	transactions, err := s.storage.GetTransactions(ctx, session.HouseholdID, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}
	tags, err := s.storage.ListTags(ctx, session.HouseholdID)
	if err != nil {
		return nil, err
	}
	budgets, err := s.storage.GetCategoryBudgets(ctx, session.HouseholdID, session.Month)
	if err != nil {
		return nil, err
	}

	return s.aggregator.Summarize(budget.MonthInput{
		Month:        session.Month,
		Household:    *household,
		Lines:        lines,
		Provisions:   provisions,
		Transactions: transactions,
		Tags:         tags,
		Budgets:      budgets,
	})
}
