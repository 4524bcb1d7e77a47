package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
)

// tagLookupChunk bounds the number of bound parameters per IN clause.
const tagLookupChunk = 500

// SaveTransactions inserts or updates transactions together with their tags.
// Transactions without an ID get a generated one.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, householdID string, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(householdID, "householdID"); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, household_id, date, label, amount, is_excluded)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			label = excluded.label,
			amount = excluded.amount,
			is_excluded = excluded.is_excluded
		WHERE transactions.household_id = excluded.household_id`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		if txn.Date.IsZero() {
			return fmt.Errorf("transaction %s: missing date", txn.ID)
		}

		result, err := stmt.ExecContext(ctx, txn.ID, householdID, txn.Date.UTC(), txn.Label, txn.Amount, txn.Excluded)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("transaction %s belongs to another household", txn.ID)
		}
		if err := replaceTransactionTags(ctx, tx, householdID, txn.ID, txn.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("saved transactions", "household", householdID, "count", len(transactions))
	return nil
}

// GetTransactions returns the household's transactions ordered by date.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, householdID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.date, t.label, t.amount, t.is_excluded
		FROM transactions t
		WHERE t.household_id = ?`
	args := []any{householdID}

	if filter.StartDate != nil {
		query += " AND t.date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += " AND t.date < ?"
		args = append(args, filter.EndDate.UTC())
	}
	if filter.Untagged {
		query += " AND NOT EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.transaction_id = t.id)"
	}

	query += " ORDER BY t.date ASC, t.id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return s.queryTransactions(ctx, householdID, query, args...)
}

// GetTransactionByID returns a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, householdID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	txns, err := s.queryTransactions(ctx, householdID, `
		SELECT t.id, t.date, t.label, t.amount, t.is_excluded
		FROM transactions t
		WHERE t.household_id = ? AND t.id = ?`, householdID, id)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, notFound("transaction", id)
	}
	return &txns[0], nil
}

// SetTransactionExcluded flags a transaction as excluded from budget totals.
func (s *SQLiteStorage) SetTransactionExcluded(ctx context.Context, householdID, id string, excluded bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_excluded = ? WHERE household_id = ? AND id = ?`,
		excluded, householdID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("transaction", id)
	}
	return nil
}

// TransactionsWithTags returns the transactions carrying at least one of names.
func (s *SQLiteStorage) TransactionsWithTags(ctx context.Context, householdID string, names []string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]any, 0, len(names)+1)
	keys = append(keys, householdID)
	for _, name := range names {
		keys = append(keys, model.TagKey(name))
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.date, t.label, t.amount, t.is_excluded
		FROM transactions t
		WHERE t.household_id = ?
		  AND t.id IN (SELECT tt.transaction_id FROM transaction_tags tt WHERE tt.tag_key IN (%s))
		ORDER BY t.date ASC, t.id ASC`, placeholders(len(names)))

	return s.queryTransactions(ctx, householdID, query, keys...)
}

// SetTransactionTags replaces the tag set of one transaction.
func (s *SQLiteStorage) SetTransactionTags(ctx context.Context, householdID, transactionID string, tags []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE household_id = ? AND id = ?`,
		householdID, transactionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("transaction", transactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to check transaction %s: %w", transactionID, err)
	}

	if err := replaceTransactionTags(ctx, tx, householdID, transactionID, tags); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceTransactionTags(ctx context.Context, q queryable, householdID, transactionID string, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("failed to clear tags of %s: %w", transactionID, err)
	}

	seen := make(map[string]bool, len(tags))
	position := 0
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := model.TagKey(tag)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if _, err := q.ExecContext(ctx, `
			INSERT INTO transaction_tags (transaction_id, household_id, tag_key, tag, position)
			VALUES (?, ?, ?, ?, ?)`,
			transactionID, householdID, key, tag, position); err != nil {
			return fmt.Errorf("failed to tag %s with %q: %w", transactionID, tag, err)
		}
		position++
	}
	return nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, householdID, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var date time.Time
		if err := rows.Scan(&txn.ID, &date, &txn.Label, &txn.Amount, &txn.Excluded); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Date = date.UTC()
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	if err := s.loadTags(ctx, householdID, transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// loadTags fills in the Tags of each transaction, preserving tag order.
func (s *SQLiteStorage) loadTags(ctx context.Context, householdID string, transactions []model.Transaction) error {
	index := make(map[string]int, len(transactions))
	for i, txn := range transactions {
		index[txn.ID] = i
	}

	for start := 0; start < len(transactions); start += tagLookupChunk {
		end := min(start+tagLookupChunk, len(transactions))

		args := make([]any, 0, end-start+1)
		args = append(args, householdID)
		for _, txn := range transactions[start:end] {
			args = append(args, txn.ID)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT transaction_id, tag
			FROM transaction_tags
			WHERE household_id = ? AND transaction_id IN (%s)
			ORDER BY transaction_id, position`, placeholders(end-start)), args...)
		if err != nil {
			return fmt.Errorf("failed to query transaction tags: %w", err)
		}

		for rows.Next() {
			var id, tag string
			if err := rows.Scan(&id, &tag); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan transaction tag: %w", err)
			}
			if i, ok := index[id]; ok {
				transactions[i].Tags = append(transactions[i].Tags, tag)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("error iterating transaction tags: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
