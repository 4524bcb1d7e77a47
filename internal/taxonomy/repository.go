// Package taxonomy owns the household tag set and keeps transaction
// references consistent across create, rename, delete and merge.
package taxonomy

import (
	"context"

	"github.com/Veraticus/household-budget/internal/model"
)

// Repository is the persistence the taxonomy store needs. Tag names are
// matched case-insensitively by every method.
type Repository interface {
	// ListTags returns every tag of the household.
	ListTags(ctx context.Context, householdID string) ([]model.Tag, error)
	// GetTag returns common.ErrNotFound when the tag does not exist.
	GetTag(ctx context.Context, householdID, name string) (*model.Tag, error)
	CreateTag(ctx context.Context, householdID string, tag model.Tag) error
	// UpdateTag replaces the tag stored under currentName, possibly renaming it.
	UpdateTag(ctx context.Context, householdID, currentName string, tag model.Tag) error
	DeleteTag(ctx context.Context, householdID, name string) error

	// TransactionsWithTags returns the transactions carrying at least one of names.
	TransactionsWithTags(ctx context.Context, householdID string, names []string) ([]model.Transaction, error)
	// SetTransactionTags replaces the tag set of one transaction.
	SetTransactionTags(ctx context.Context, householdID, transactionID string, tags []string) error

	// RetargetRules moves classification rules naming any of from onto to.
	RetargetRules(ctx context.Context, householdID string, from []string, to string) (int, error)
}
