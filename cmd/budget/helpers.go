package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/config"
	"github.com/Veraticus/household-budget/internal/engine"
	"github.com/Veraticus/household-budget/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		common.LogError(err, "failed to close storage", nil)
	}
}

func newService(store *storage.SQLiteStorage) *engine.Service {
	cfg := engine.DefaultConfig()
	if workers := viper.GetInt("classification.workers"); workers > 0 {
		cfg.Workers = workers
	}
	return engine.NewWithConfig(store, nil, cfg)
}

func householdID() string {
	return config.HouseholdID(viper.GetViper())
}

// autoCheckpoint snapshots the database before a bulk taxonomy change. A
// failed snapshot is logged and the operation goes ahead.
func autoCheckpoint(ctx context.Context, store *storage.SQLiteStorage, operation string) {
	manager, err := store.NewCheckpointManager()
	if err != nil {
		slog.Warn("checkpoint unavailable", "operation", operation, "error", err)
		return
	}
	info, err := manager.AutoCheckpoint(ctx, operation)
	if err != nil {
		slog.Warn("automatic checkpoint failed", "operation", operation, "error", err)
		return
	}
	common.LogInfo("created automatic checkpoint", common.Fields{"checkpoint": info.ID, "operation": operation})
}

func parseAmount(flag, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, common.NewValidationError(flag, "%q is not a number", value)
	}
	return d, nil
}

// explainError turns domain errors into the message shown to the user.
func explainError(err error) string {
	var (
		userErr     *common.UserError
		validation  *common.ValidationError
		referential *common.ReferentialError
		partialImp  *common.PartialImportError
		partialFail *common.PartialFailureError
	)

	switch {
	case errors.As(err, &userErr):
		if userErr.Err == nil {
			return userErr.UserMessage
		}
		return fmt.Sprintf("%s: %s", userErr.UserMessage, explainError(userErr.Err))
	case errors.As(err, &referential):
		return fmt.Sprintf("%s; delete with --policy detach to untag them first", referential.Error())
	case errors.As(err, &partialImp):
		return fmt.Sprintf("%d record(s) failed, %d succeeded", len(partialImp.Failures), partialImp.Succeeded)
	case errors.As(err, &partialFail):
		return fmt.Sprintf("%s. Run the command again to finish, or restore the latest automatic checkpoint", partialFail.Error())
	case errors.As(err, &validation):
		if validation.Field == "" {
			return validation.Reason
		}
		return fmt.Sprintf("invalid %s: %s", validation.Field, validation.Reason)
	case errors.Is(err, common.ErrInvalidConfig):
		return fmt.Sprintf("configuration problem: %v", err)
	default:
		return err.Error()
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		if minutes := int(duration.Minutes()); minutes != 1 {
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return "1 minute ago"
	case duration < 24*time.Hour:
		if hours := int(duration.Hours()); hours != 1 {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return "1 hour ago"
	case duration < 7*24*time.Hour:
		if days := int(duration.Hours() / 24); days != 1 {
			return fmt.Sprintf("%d days ago", days)
		}
		return "yesterday"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// findByName resolves a user-typed name to a record ID. Names compare
// case-insensitively and must be unambiguous.
func findByName(name string, n int, at func(int) (id, label string)) (string, error) {
	var matches []string
	for i := 0; i < n; i++ {
		id, label := at(i)
		if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(name)) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%q: %w", name, common.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", common.NewValidationError("name", "%q matches %d records", name, len(matches))
	}
}
