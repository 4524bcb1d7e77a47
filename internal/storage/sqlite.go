package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) SaveHousehold(ctx context.Context, household *model.HouseholdConfig) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveHousehold(ctx, t.tx, household)
}

func (t *sqliteTransaction) GetHousehold(ctx context.Context, id string) (*model.HouseholdConfig, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getHousehold(ctx, t.tx, id)
}

func (t *sqliteTransaction) SaveProvision(ctx context.Context, householdID string, provision *model.Provision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveProvision(ctx, t.tx, householdID, provision)
}

func (t *sqliteTransaction) GetProvisions(ctx context.Context, householdID string) ([]model.Provision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getProvisions(ctx, t.tx, householdID)
}

func (t *sqliteTransaction) DeleteProvision(ctx context.Context, householdID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return deleteByID(ctx, t.tx, "provisions", householdID, id)
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
