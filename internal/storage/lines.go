package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Veraticus/household-budget/internal/model"
)

// SaveRecurringLine inserts or updates a recurring expense line.
func (s *SQLiteStorage) SaveRecurringLine(ctx context.Context, householdID string, line *model.RecurringLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if line == nil {
		return fmt.Errorf("%w: line", ErrNilParameter)
	}
	if err := line.Validate(); err != nil {
		return err
	}
	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_lines (
			id, household_id, label, category, frequency, split_mode, amount, split1, split2, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			category = excluded.category,
			frequency = excluded.frequency,
			split_mode = excluded.split_mode,
			amount = excluded.amount,
			split1 = excluded.split1,
			split2 = excluded.split2,
			active = excluded.active
		WHERE recurring_lines.household_id = excluded.household_id`,
		line.ID, householdID, line.Label, line.Category,
		string(line.Frequency), string(line.SplitMode),
		line.Amount, line.Split1, line.Split2, line.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save recurring line %q: %w", line.Label, err)
	}
	return nil
}

// GetRecurringLines returns the household's recurring lines ordered by label.
func (s *SQLiteStorage) GetRecurringLines(ctx context.Context, householdID string) ([]model.RecurringLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, category, frequency, split_mode, amount, split1, split2, active
		FROM recurring_lines
		WHERE household_id = ?
		ORDER BY label, id`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.RecurringLine
	for rows.Next() {
		var line model.RecurringLine
		var frequency, splitMode string
		if err := rows.Scan(
			&line.ID, &line.Label, &line.Category, &frequency, &splitMode,
			&line.Amount, &line.Split1, &line.Split2, &line.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recurring line: %w", err)
		}
		line.Frequency = model.Frequency(frequency)
		line.SplitMode = model.SplitMode(splitMode)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring lines: %w", err)
	}
	return lines, nil
}

// DeleteRecurringLine removes a recurring line by ID.
func (s *SQLiteStorage) DeleteRecurringLine(ctx context.Context, householdID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteByID(ctx, s.db, "recurring_lines", householdID, id)
}
