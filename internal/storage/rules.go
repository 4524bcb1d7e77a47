package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
)

// SaveRule inserts or updates a classification rule. Rules are unique by
// name within a household; saving a rule with an existing name replaces it.
func (s *SQLiteStorage) SaveRule(ctx context.Context, householdID string, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	condition := rule.AmountCondition
	if condition == "" {
		condition = model.AmountAny
	}

	keywords, err := encodeStrings(rule.Keywords)
	if err != nil {
		return err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO classification_rules (
			id, household_id, name, description, tag, expense_type, match_type,
			keywords, amount_condition, amount_value, amount_min, amount_max,
			confidence_threshold, priority, case_sensitive, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, name) DO UPDATE SET
			description = excluded.description,
			tag = excluded.tag,
			expense_type = excluded.expense_type,
			match_type = excluded.match_type,
			keywords = excluded.keywords,
			amount_condition = excluded.amount_condition,
			amount_value = excluded.amount_value,
			amount_min = excluded.amount_min,
			amount_max = excluded.amount_max,
			confidence_threshold = excluded.confidence_threshold,
			priority = excluded.priority,
			case_sensitive = excluded.case_sensitive,
			is_active = excluded.is_active
		RETURNING id`,
		rule.ID, householdID, rule.Name, rule.Description, rule.Tag,
		string(rule.ExpenseType), string(rule.MatchType), keywords, string(condition),
		nullDecimal(rule.AmountValue), nullDecimal(rule.AmountMin), nullDecimal(rule.AmountMax),
		rule.ConfidenceThreshold, rule.Priority, rule.CaseSensitive, rule.Active, rule.CreatedAt,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to save rule %q: %w", rule.Name, err)
	}
	return nil
}

// GetRules returns every rule of the household ordered by priority.
func (s *SQLiteStorage) GetRules(ctx context.Context, householdID string) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, tag, expense_type, match_type,
			keywords, amount_condition, amount_value, amount_min, amount_max,
			confidence_threshold, priority, case_sensitive, is_active, created_at
		FROM classification_rules
		WHERE household_id = ?
		ORDER BY priority ASC, id ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassificationRule
	for rows.Next() {
		var rule model.ClassificationRule
		var expenseType, matchType, condition, keywords string
		var value, lo, hi decimal.NullDecimal
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Tag, &expenseType, &matchType,
			&keywords, &condition, &value, &lo, &hi,
			&rule.ConfidenceThreshold, &rule.Priority, &rule.CaseSensitive, &rule.Active, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.ExpenseType = model.ExpenseType(expenseType)
		rule.MatchType = model.MatchType(matchType)
		rule.AmountCondition = model.AmountConditionType(condition)
		rule.AmountValue = decimalPtr(value)
		rule.AmountMin = decimalPtr(lo)
		rule.AmountMax = decimalPtr(hi)
		if rule.Keywords, err = decodeStrings(keywords); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// RetargetRules points every rule whose tag is one of from at to and returns
// how many rules changed. Tag names compare case-insensitively.
func (s *SQLiteStorage) RetargetRules(ctx context.Context, householdID string, from []string, to string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(to, "to"); err != nil {
		return 0, err
	}
	keys := make(map[string]bool, len(from))
	for _, name := range from {
		keys[model.TagKey(name)] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, tag FROM classification_rules WHERE household_id = ?`, householdID)
	if err != nil {
		return 0, fmt.Errorf("failed to query rules: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan rule: %w", err)
		}
		if keys[model.TagKey(tag)] && tag != to {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("error iterating rules: %w", err)
	}
	_ = rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE classification_rules SET tag = ? WHERE household_id = ? AND id = ?`,
			to, householdID, id); err != nil {
			return 0, fmt.Errorf("failed to retarget rule %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rule retarget: %w", err)
	}
	return len(ids), nil
}

// DeleteRule removes a rule by ID.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, householdID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteByID(ctx, s.db, "classification_rules", householdID, id)
}

// deleteByID removes one household-scoped row. table is always a constant.
func deleteByID(ctx context.Context, q queryable, table, householdID, id string) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE household_id = ? AND id = ?", table),
		householdID, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound(table, id)
	}
	return nil
}
