package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/household-budget/internal/model"
)

// SaveCategoryBudget sets the budget of a category for one month.
func (s *SQLiteStorage) SaveCategoryBudget(ctx context.Context, householdID string, budget *model.CategoryBudget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := budget.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_budgets (household_id, month, category, budget_amount, alert_threshold)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(household_id, month, category) DO UPDATE SET
			budget_amount = excluded.budget_amount,
			alert_threshold = excluded.alert_threshold`,
		householdID, budget.Month.String(), budget.Category, budget.Amount, budget.AlertThreshold,
	)
	if err != nil {
		return fmt.Errorf("failed to save budget for %s %s: %w", budget.Category, budget.Month, err)
	}
	return nil
}

// GetCategoryBudgets returns the household's budgets for a month.
func (s *SQLiteStorage) GetCategoryBudgets(ctx context.Context, householdID string, month model.Month) ([]model.CategoryBudget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, budget_amount, alert_threshold
		FROM category_budgets
		WHERE household_id = ? AND month = ?
		ORDER BY category`, householdID, month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.CategoryBudget
	for rows.Next() {
		b := model.CategoryBudget{Month: month}
		if err := rows.Scan(&b.Category, &b.Amount, &b.AlertThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}
