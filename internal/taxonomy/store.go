package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// DeletePolicy decides what happens to transactions still carrying a deleted tag.
type DeletePolicy string

// Delete policy constants.
const (
	// DetachTransactions removes the tag from every transaction, then deletes it.
	DetachTransactions DeletePolicy = "detach"
	// BlockIfReferenced refuses to delete a tag that transactions still carry.
	BlockIfReferenced DeletePolicy = "block"
)

// ParseDeletePolicy validates a delete policy.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(s); p {
	case DetachTransactions, BlockIfReferenced:
		return p, nil
	default:
		return "", common.NewValidationError("delete_policy", "unknown delete policy %q", s)
	}
}

// DeleteReport describes a completed deletion.
type DeleteReport struct {
	Tag                   string   `json:"tag"`
	UpdatedTransactionIDs []string `json:"updated_transaction_ids,omitempty"`
	TransactionsDetached  int      `json:"transactions_detached"`
}

// Store is the single writer of the household tag taxonomy.
type Store struct {
	repo  Repository
	locks *Locker
}

// NewStore creates a taxonomy store. A nil locker gets a private one.
func NewStore(repo Repository, locks *Locker) *Store {
	if locks == nil {
		locks = NewLocker()
	}
	return &Store{repo: repo, locks: locks}
}

// List returns the household's tags sorted by name.
func (s *Store) List(ctx context.Context, householdID string) ([]model.Tag, error) {
	tags, err := s.repo.ListTags(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	sort.Slice(tags, func(i, j int) bool {
		return model.TagKey(tags[i].Name) < model.TagKey(tags[j].Name)
	})
	return tags, nil
}

// Get returns a tag by name.
func (s *Store) Get(ctx context.Context, householdID, name string) (*model.Tag, error) {
	tag, err := s.repo.GetTag(ctx, householdID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %q: %w", name, err)
	}
	return tag, nil
}

// Create adds a tag. Names collide case-insensitively.
func (s *Store) Create(ctx context.Context, householdID string, tag model.Tag) (*model.Tag, error) {
	tag, err := normalize(tag)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.ListTags(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if other := findTag(existing, tag.Name); other != nil {
		return nil, &common.DuplicateNameError{Name: tag.Name, Existing: other.Name}
	}

	if err := s.repo.CreateTag(ctx, householdID, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", tag.Name, err)
	}

	slog.Info("created tag", "household", householdID, "tag", tag.Name, "expense_type", tag.ExpenseType)
	return &tag, nil
}

// Update edits the tag named currentName. When the name changes, every
// transaction and rule carrying the old name is rewritten before the tag
// itself, so a failed rename can be retried.
func (s *Store) Update(ctx context.Context, householdID, currentName string, tag model.Tag) (*model.Tag, error) {
	tag, err := normalize(tag)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.ListTags(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	current := findTag(existing, currentName)
	if current == nil {
		return nil, fmt.Errorf("tag %q: %w", currentName, common.ErrNotFound)
	}
	for i := range existing {
		if model.SameTag(existing[i].Name, tag.Name) && !model.SameTag(existing[i].Name, current.Name) {
			return nil, &common.DuplicateNameError{Name: tag.Name, Existing: existing[i].Name}
		}
	}

	var updated []string
	if tag.Name != current.Name {
		txns, err := s.repo.TransactionsWithTags(ctx, householdID, []string{current.Name})
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions of %q: %w", current.Name, err)
		}
		for _, txn := range txns {
			if err := s.repo.SetTransactionTags(ctx, householdID, txn.ID, txn.ReplaceTags([]string{current.Name}, tag.Name)); err != nil {
				return nil, &common.PartialFailureError{Operation: "rename", UpdatedIDs: updated, Err: err}
			}
			updated = append(updated, txn.ID)
		}
		if _, err := s.repo.RetargetRules(ctx, householdID, []string{current.Name}, tag.Name); err != nil {
			return nil, &common.PartialFailureError{Operation: "rename", UpdatedIDs: updated, Err: err}
		}
	}

	if err := s.repo.UpdateTag(ctx, householdID, current.Name, tag); err != nil {
		if len(updated) > 0 {
			return nil, &common.PartialFailureError{Operation: "rename", UpdatedIDs: updated, Err: err}
		}
		return nil, fmt.Errorf("failed to update tag %q: %w", current.Name, err)
	}

	slog.Info("updated tag",
		"household", householdID,
		"tag", current.Name,
		"new_name", tag.Name,
		"transactions_updated", len(updated))
	return &tag, nil
}

// Delete removes a tag under the given policy.
func (s *Store) Delete(ctx context.Context, householdID, name string, policy DeletePolicy) (*DeleteReport, error) {
	if _, err := ParseDeletePolicy(string(policy)); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tag, err := s.repo.GetTag(ctx, householdID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %q: %w", name, err)
	}
	txns, err := s.repo.TransactionsWithTags(ctx, householdID, []string{tag.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions of %q: %w", tag.Name, err)
	}

	if policy == BlockIfReferenced && len(txns) > 0 {
		return nil, &common.ReferentialError{Tag: tag.Name, Transactions: len(txns)}
	}

	report := &DeleteReport{Tag: tag.Name}
	for _, txn := range txns {
		if err := s.repo.SetTransactionTags(ctx, householdID, txn.ID, txn.WithoutTag(tag.Name)); err != nil {
			return nil, &common.PartialFailureError{Operation: "delete", UpdatedIDs: report.UpdatedTransactionIDs, Err: err}
		}
		report.UpdatedTransactionIDs = append(report.UpdatedTransactionIDs, txn.ID)
	}
	report.TransactionsDetached = len(report.UpdatedTransactionIDs)

	if err := s.repo.DeleteTag(ctx, householdID, tag.Name); err != nil {
		if report.TransactionsDetached > 0 {
			return nil, &common.PartialFailureError{Operation: "delete", UpdatedIDs: report.UpdatedTransactionIDs, Err: err}
		}
		return nil, fmt.Errorf("failed to delete tag %q: %w", tag.Name, err)
	}

	slog.Info("deleted tag", "household", householdID, "tag", tag.Name, "detached", report.TransactionsDetached)
	return report, nil
}

// Stats computes the live transaction count and absolute total of one tag.
// Excluded transactions are counted; exclusion only affects budget totals.
func (s *Store) Stats(ctx context.Context, householdID, name string) (*model.TagStats, error) {
	tag, err := s.repo.GetTag(ctx, householdID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %q: %w", name, err)
	}
	txns, err := s.repo.TransactionsWithTags(ctx, householdID, []string{tag.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions of %q: %w", tag.Name, err)
	}

	stats := &model.TagStats{Tag: *tag, TotalAmount: decimal.Zero}
	for _, txn := range txns {
		stats.TotalAmount = stats.TotalAmount.Add(txn.Amount.Abs())
		stats.TransactionCount++
	}
	return stats, nil
}

// AllStats computes stats for every tag of the household.
func (s *Store) AllStats(ctx context.Context, householdID string) ([]model.TagStats, error) {
	tags, err := s.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	out := make([]model.TagStats, 0, len(tags))
	for _, tag := range tags {
		stats, err := s.Stats(ctx, householdID, tag.Name)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *stats)
	}
	return out, nil
}

func normalize(tag model.Tag) (model.Tag, error) {
	tag.Name = strings.TrimSpace(tag.Name)
	tag.Category = strings.TrimSpace(tag.Category)
	if tag.ExpenseType == "" {
		tag.ExpenseType = model.DefaultExpenseType
	}
	expenseType, err := model.ParseExpenseType(string(tag.ExpenseType))
	if err != nil {
		return tag, err
	}
	tag.ExpenseType = expenseType
	if err := tag.Validate(); err != nil {
		return tag, err
	}
	tag.Labels = model.MergeLabels(nil, tag.Labels...)
	return tag, nil
}

func findTag(tags []model.Tag, name string) *model.Tag {
	for i := range tags {
		if model.SameTag(tags[i].Name, name) {
			return &tags[i]
		}
	}
	return nil
}
