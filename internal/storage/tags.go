package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// ListTags returns every tag of the household ordered by name.
func (s *SQLiteStorage) ListTags(ctx context.Context, householdID string) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, expense_type, category, labels
		FROM tags
		WHERE household_id = ?
		ORDER BY name_key`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	slog.Debug("retrieved tags", "household", householdID, "count", len(tags))
	return tags, nil
}

// GetTag returns a tag by case-insensitive name.
func (s *SQLiteStorage) GetTag(ctx context.Context, householdID, name string) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT name, expense_type, category, labels
		FROM tags
		WHERE household_id = ? AND name_key = ?`, householdID, model.TagKey(name))
	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("tag", name)
	}
	return tag, err
}

// CreateTag inserts a tag; a case-insensitive name collision is ErrDuplicateEntry.
func (s *SQLiteStorage) CreateTag(ctx context.Context, householdID string, tag model.Tag) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if err := tag.Validate(); err != nil {
		return err
	}

	labels, err := encodeStrings(tag.Labels)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tags (household_id, name_key, name, expense_type, category, labels)
		VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, model.TagKey(tag.Name), tag.Name, string(tag.ExpenseType), tag.Category, labels)
	if err != nil {
		return fmt.Errorf("failed to create tag %q: %w", tag.Name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tag %q: %w", tag.Name, common.ErrDuplicateEntry)
	}
	return nil
}

// UpdateTag rewrites the tag stored under currentName.
func (s *SQLiteStorage) UpdateTag(ctx context.Context, householdID, currentName string, tag model.Tag) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := tag.Validate(); err != nil {
		return err
	}

	labels, err := encodeStrings(tag.Labels)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET name_key = ?, name = ?, expense_type = ?, category = ?, labels = ?
		WHERE household_id = ? AND name_key = ?`,
		model.TagKey(tag.Name), tag.Name, string(tag.ExpenseType), tag.Category, labels,
		householdID, model.TagKey(currentName))
	if err != nil {
		return fmt.Errorf("failed to update tag %q: %w", currentName, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("tag", currentName)
	}
	return nil
}

// DeleteTag removes a tag. Transaction references are left to the caller.
func (s *SQLiteStorage) DeleteTag(ctx context.Context, householdID, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE household_id = ? AND name_key = ?`,
		householdID, model.TagKey(name))
	if err != nil {
		return fmt.Errorf("failed to delete tag %q: %w", name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("tag", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (*model.Tag, error) {
	var tag model.Tag
	var expenseType, labels string
	if err := row.Scan(&tag.Name, &expenseType, &tag.Category, &labels); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}
	tag.ExpenseType = model.ExpenseType(expenseType)

	var err error
	if tag.Labels, err = decodeStrings(labels); err != nil {
		return nil, fmt.Errorf("tag %q: %w", tag.Name, err)
	}
	return &tag, nil
}
