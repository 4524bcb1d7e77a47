package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Money columns are TEXT holding decimal strings so amounts round-trip exactly.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS households (
					id TEXT PRIMARY KEY,
					member1 TEXT NOT NULL DEFAULT '',
					member2 TEXT NOT NULL DEFAULT '',
					income1_amount TEXT NOT NULL DEFAULT '0',
					income1_unit TEXT NOT NULL DEFAULT 'monthly',
					income1_tax_rate TEXT NOT NULL DEFAULT '0',
					income2_amount TEXT NOT NULL DEFAULT '0',
					income2_unit TEXT NOT NULL DEFAULT 'monthly',
					income2_tax_rate TEXT NOT NULL DEFAULT '0',
					split_mode TEXT NOT NULL DEFAULT 'proportional',
					split1 TEXT NOT NULL DEFAULT '50',
					split2 TEXT NOT NULL DEFAULT '50',
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS tags (
					household_id TEXT NOT NULL,
					name_key TEXT NOT NULL,
					name TEXT NOT NULL,
					expense_type TEXT NOT NULL CHECK (expense_type IN ('fixed', 'variable')),
					category TEXT NOT NULL DEFAULT '',
					labels TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (household_id, name_key)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					label TEXT NOT NULL,
					amount TEXT NOT NULL,
					is_excluded BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_household_date ON transactions(household_id, date)`,

				// Tag references are by name so a transaction may outlive its tag.
				`CREATE TABLE IF NOT EXISTS transaction_tags (
					transaction_id TEXT NOT NULL,
					household_id TEXT NOT NULL,
					tag_key TEXT NOT NULL,
					tag TEXT NOT NULL,
					position INTEGER NOT NULL,
					PRIMARY KEY (transaction_id, tag_key),
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_transaction_tags_tag ON transaction_tags(household_id, tag_key)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add classification rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS classification_rules (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					tag TEXT NOT NULL DEFAULT '',
					expense_type TEXT NOT NULL,
					match_type TEXT NOT NULL DEFAULT 'partial',
					keywords TEXT NOT NULL DEFAULT '[]',
					amount_condition TEXT NOT NULL DEFAULT 'any',
					amount_value TEXT,
					amount_min TEXT,
					amount_max TEXT,
					confidence_threshold REAL NOT NULL DEFAULT 0,
					priority INTEGER NOT NULL DEFAULT 0,
					case_sensitive BOOLEAN NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (household_id, name)
				)`,
				`CREATE INDEX idx_classification_rules_priority ON classification_rules(household_id, is_active, priority)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add recurring lines, provisions and category budgets",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS recurring_lines (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					label TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					frequency TEXT NOT NULL,
					split_mode TEXT NOT NULL,
					amount TEXT NOT NULL,
					split1 TEXT NOT NULL DEFAULT '0',
					split2 TEXT NOT NULL DEFAULT '0',
					active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_recurring_lines_household ON recurring_lines(household_id)`,

				// monthly_amount is a cache rewritten whenever its inputs change.
				`CREATE TABLE IF NOT EXISTS provisions (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL,
					name TEXT NOT NULL,
					base_calculation TEXT NOT NULL,
					percentage TEXT,
					fixed_amount TEXT NOT NULL DEFAULT '0',
					target_amount TEXT,
					monthly_amount TEXT NOT NULL DEFAULT '0',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_provisions_household ON provisions(household_id)`,

				`CREATE TABLE IF NOT EXISTS category_budgets (
					household_id TEXT NOT NULL,
					month TEXT NOT NULL,
					category TEXT NOT NULL,
					budget_amount TEXT NOT NULL,
					alert_threshold TEXT NOT NULL DEFAULT '0.8',
					PRIMARY KEY (household_id, month, category)
				)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
