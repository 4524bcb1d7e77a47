package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/household-budget/internal/model"
)

// SaveHousehold inserts or replaces a household configuration.
func (s *SQLiteStorage) SaveHousehold(ctx context.Context, household *model.HouseholdConfig) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveHousehold(ctx, s.db, household)
}

// GetHousehold returns the household with the given ID.
func (s *SQLiteStorage) GetHousehold(ctx context.Context, id string) (*model.HouseholdConfig, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getHousehold(ctx, s.db, id)
}

func saveHousehold(ctx context.Context, q queryable, h *model.HouseholdConfig) error {
	if h == nil {
		return fmt.Errorf("%w: household", ErrNilParameter)
	}
	if err := h.Validate(); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO households (
			id, member1, member2,
			income1_amount, income1_unit, income1_tax_rate,
			income2_amount, income2_unit, income2_tax_rate,
			split_mode, split1, split2, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			member1 = excluded.member1,
			member2 = excluded.member2,
			income1_amount = excluded.income1_amount,
			income1_unit = excluded.income1_unit,
			income1_tax_rate = excluded.income1_tax_rate,
			income2_amount = excluded.income2_amount,
			income2_unit = excluded.income2_unit,
			income2_tax_rate = excluded.income2_tax_rate,
			split_mode = excluded.split_mode,
			split1 = excluded.split1,
			split2 = excluded.split2,
			updated_at = CURRENT_TIMESTAMP`,
		h.ID, h.Member1, h.Member2,
		h.Income1.Amount, string(h.Income1.Unit), h.Income1.TaxRate,
		h.Income2.Amount, string(h.Income2.Unit), h.Income2.TaxRate,
		string(h.SplitMode), h.Split1, h.Split2,
	)
	if err != nil {
		return fmt.Errorf("failed to save household %s: %w", h.ID, err)
	}

	slog.Debug("saved household", "household", h.ID, "split_mode", h.SplitMode)
	return nil
}

func getHousehold(ctx context.Context, q queryable, id string) (*model.HouseholdConfig, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var h model.HouseholdConfig
	var unit1, unit2, splitMode string
	err := q.QueryRowContext(ctx, `
		SELECT id, member1, member2,
			income1_amount, income1_unit, income1_tax_rate,
			income2_amount, income2_unit, income2_tax_rate,
			split_mode, split1, split2
		FROM households
		WHERE id = ?`, id).Scan(
		&h.ID, &h.Member1, &h.Member2,
		&h.Income1.Amount, &unit1, &h.Income1.TaxRate,
		&h.Income2.Amount, &unit2, &h.Income2.TaxRate,
		&splitMode, &h.Split1, &h.Split2,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("household", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household %s: %w", id, err)
	}

	h.Income1.Unit = model.IncomeUnit(unit1)
	h.Income2.Unit = model.IncomeUnit(unit2)
	h.SplitMode = model.HouseholdSplitMode(splitMode)
	return &h, nil
}
