package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
)

// Origins of a summary line.
const (
	SourceProvision   = "provision"
	SourceRecurring   = "recurring"
	SourceTransaction = "transaction"
)

// LineAllocation is one monthly line of a summary section.
type LineAllocation struct {
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Source   string          `json:"source,omitempty"`
	Monthly  decimal.Decimal `json:"monthly"`
	Allocation
}

// Allocator splits recurring lines and transactions for one household.
type Allocator struct {
	revenues    Revenues
	defaultMode model.SplitMode
	defaultPct  Percentages
}

// NewAllocator precomputes the household's revenues and default split.
func NewAllocator(h model.HouseholdConfig) (*Allocator, error) {
	revenues, err := HouseholdRevenues(h)
	if err != nil {
		return nil, err
	}
	mode, pct := DefaultSplit(h)
	return &Allocator{revenues: revenues, defaultMode: mode, defaultPct: pct}, nil
}

// Line converts a recurring line to monthly and splits it with the line's own mode.
func (a *Allocator) Line(l model.RecurringLine) (LineAllocation, error) {
	monthly, err := ToMonthly(l.Amount, l.Frequency)
	if err != nil {
		return LineAllocation{}, fmt.Errorf("line %q: %w", l.Label, err)
	}
	monthly = RoundCents(monthly)

	alloc, err := Split(monthly, l.SplitMode, Percentages{Member1: l.Split1, Member2: l.Split2}, a.revenues)
	if err != nil {
		return LineAllocation{}, fmt.Errorf("line %q: %w", l.Label, err)
	}

	return LineAllocation{
		Name:       l.Label,
		Category:   l.Category,
		Monthly:    monthly,
		Allocation: alloc,
	}, nil
}

// Amount splits an arbitrary amount with the household's default policy.
func (a *Allocator) Amount(name string, amount decimal.Decimal) (LineAllocation, error) {
	amount = RoundCents(amount)
	alloc, err := Split(amount, a.defaultMode, a.defaultPct, a.revenues)
	if err != nil {
		return LineAllocation{}, fmt.Errorf("%s: %w", name, err)
	}
	return LineAllocation{Name: name, Monthly: amount, Allocation: alloc}, nil
}
