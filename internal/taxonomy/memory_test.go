package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// memoryRepo is an in-memory Repository for tests.
type memoryRepo struct {
	tags  map[string]map[string]model.Tag
	txns  map[string]map[string]model.Transaction
	rules map[string][]model.ClassificationRule
	mu    sync.Mutex
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tags:  make(map[string]map[string]model.Tag),
		txns:  make(map[string]map[string]model.Transaction),
		rules: make(map[string][]model.ClassificationRule),
	}
}

func (m *memoryRepo) addRule(householdID string, rule model.ClassificationRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[householdID] = append(m.rules[householdID], rule)
}

func (m *memoryRepo) ruleTags(householdID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rules[householdID]))
	for _, r := range m.rules[householdID] {
		out = append(out, r.Tag)
	}
	return out
}

func (m *memoryRepo) addTransaction(householdID string, txn model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txns[householdID] == nil {
		m.txns[householdID] = make(map[string]model.Transaction)
	}
	m.txns[householdID][txn.ID] = txn
}

func (m *memoryRepo) transaction(householdID, id string) model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[householdID][id]
}

func (m *memoryRepo) ListTags(_ context.Context, householdID string) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Tag, 0, len(m.tags[householdID]))
	for _, t := range m.tags[householdID] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetTag(_ context.Context, householdID, name string) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[householdID][model.TagKey(name)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (m *memoryRepo) CreateTag(_ context.Context, householdID string, tag model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tags[householdID] == nil {
		m.tags[householdID] = make(map[string]model.Tag)
	}
	if _, ok := m.tags[householdID][model.TagKey(tag.Name)]; ok {
		return common.ErrDuplicateEntry
	}
	m.tags[householdID][model.TagKey(tag.Name)] = tag
	return nil
}

func (m *memoryRepo) UpdateTag(_ context.Context, householdID, currentName string, tag model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[householdID][model.TagKey(currentName)]; !ok {
		return common.ErrNotFound
	}
	delete(m.tags[householdID], model.TagKey(currentName))
	m.tags[householdID][model.TagKey(tag.Name)] = tag
	return nil
}

func (m *memoryRepo) DeleteTag(_ context.Context, householdID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[householdID][model.TagKey(name)]; !ok {
		return common.ErrNotFound
	}
	delete(m.tags[householdID], model.TagKey(name))
	return nil
}

func (m *memoryRepo) TransactionsWithTags(_ context.Context, householdID string, names []string) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, txn := range m.txns[householdID] {
		for _, name := range names {
			if txn.HasTag(name) {
				out = append(out, txn)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) SetTransactionTags(_ context.Context, householdID, transactionID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[householdID][transactionID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", transactionID, common.ErrNotFound)
	}
	txn.Tags = tags
	m.txns[householdID][transactionID] = txn
	return nil
}

func (m *memoryRepo) RetargetRules(_ context.Context, householdID string, from []string, to string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for i, r := range m.rules[householdID] {
		for _, name := range from {
			if model.SameTag(r.Tag, name) && r.Tag != to {
				m.rules[householdID][i].Tag = to
				changed++
				break
			}
		}
	}
	return changed, nil
}

// faultyRepo fails SetTransactionTags after a number of successful calls.
type faultyRepo struct {
	*memoryRepo
	failAfter int
	calls     int
}

var errInjected = errors.New("injected storage failure")

func (f *faultyRepo) SetTransactionTags(ctx context.Context, householdID, transactionID string, tags []string) error {
	f.calls++
	if f.calls > f.failAfter {
		return errInjected
	}
	return f.memoryRepo.SetTransactionTags(ctx, householdID, transactionID, tags)
}
