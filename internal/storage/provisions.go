package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
)

// SaveProvision inserts or updates a provision, including its cached monthly amount.
func (s *SQLiteStorage) SaveProvision(ctx context.Context, householdID string, provision *model.Provision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveProvision(ctx, s.db, householdID, provision)
}

// GetProvisions returns the household's provisions ordered by name.
func (s *SQLiteStorage) GetProvisions(ctx context.Context, householdID string) ([]model.Provision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getProvisions(ctx, s.db, householdID)
}

// DeleteProvision removes a provision by ID.
func (s *SQLiteStorage) DeleteProvision(ctx context.Context, householdID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteByID(ctx, s.db, "provisions", householdID, id)
}

func saveProvision(ctx context.Context, q queryable, householdID string, p *model.Provision) error {
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: provision", ErrNilParameter)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO provisions (
			id, household_id, name, base_calculation, percentage,
			fixed_amount, target_amount, monthly_amount, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_calculation = excluded.base_calculation,
			percentage = excluded.percentage,
			fixed_amount = excluded.fixed_amount,
			target_amount = excluded.target_amount,
			monthly_amount = excluded.monthly_amount,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP
		WHERE provisions.household_id = excluded.household_id`,
		p.ID, householdID, p.Name, string(p.Base), nullDecimal(p.Percentage),
		p.FixedAmount, nullDecimal(p.TargetAmount), p.MonthlyAmount, p.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save provision %q: %w", p.Name, err)
	}
	return nil
}

func getProvisions(ctx context.Context, q queryable, householdID string) ([]model.Provision, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, base_calculation, percentage, fixed_amount,
			target_amount, monthly_amount, is_active
		FROM provisions
		WHERE household_id = ?
		ORDER BY name, id`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query provisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var provisions []model.Provision
	for rows.Next() {
		var p model.Provision
		var base string
		var percentage, target decimal.NullDecimal
		if err := rows.Scan(
			&p.ID, &p.Name, &base, &percentage, &p.FixedAmount,
			&target, &p.MonthlyAmount, &p.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provision: %w", err)
		}
		p.Base = model.ProvisionBase(base)
		p.Percentage = decimalPtr(percentage)
		p.TargetAmount = decimalPtr(target)
		provisions = append(provisions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provisions: %w", err)
	}
	return provisions, nil
}
