package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// AssignResult describes what Assign changed.
type AssignResult struct {
	Tag        string
	TagCreated bool
	Changed    bool
}

// Assign makes tag the transaction's only tag, creating the tag first when
// the household does not have it yet. An existing tag keeps its own expense
// type and spelling. Tags previously on the transaction are replaced, so a
// transaction is never counted under two tags.
func (s *Store) Assign(ctx context.Context, householdID string, txn model.Transaction, tag model.Tag) (*AssignResult, error) {
	tag, err := normalize(tag)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &AssignResult{Tag: tag.Name}
	existing, err := s.repo.GetTag(ctx, householdID, tag.Name)
	switch {
	case err == nil:
		result.Tag = existing.Name
	case errors.Is(err, common.ErrNotFound):
		if err := s.repo.CreateTag(ctx, householdID, tag); err != nil {
			return nil, fmt.Errorf("failed to create tag %q: %w", tag.Name, err)
		}
		result.TagCreated = true
		slog.Info("created tag on assignment", "household", householdID, "tag", tag.Name, "expense_type", tag.ExpenseType)
	default:
		return nil, fmt.Errorf("failed to get tag %q: %w", tag.Name, err)
	}

	if len(txn.Tags) == 1 && txn.Tags[0] == result.Tag {
		return result, nil
	}

	if err := s.repo.SetTransactionTags(ctx, householdID, txn.ID, []string{result.Tag}); err != nil {
		return nil, fmt.Errorf("failed to tag transaction %s: %w", txn.ID, err)
	}
	result.Changed = true
	return result, nil
}
