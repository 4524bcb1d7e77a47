package budget

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/model"
)

// Section names.
const (
	SectionProvisions = "provisions"
	SectionFixed      = "fixed"
	SectionVariable   = "variable"
)

// MonthInput is everything the aggregator needs for one household month.
type MonthInput struct {
	Month        model.Month
	Household    model.HouseholdConfig
	Lines        []model.RecurringLine
	Provisions   []model.Provision
	Transactions []model.Transaction
	Tags         []model.Tag
	Budgets      []model.CategoryBudget
}

// Section is an independently subtotaled part of the summary.
type Section struct {
	Name  string           `json:"name"`
	Items []LineAllocation `json:"items"`
	Total Allocation       `json:"total"`
}

func (s *Section) add(item LineAllocation) {
	s.Items = append(s.Items, item)
	s.Total = s.Total.Add(item.Allocation)
}

// CategoryRollup compares a category's actual spend with its budget.
type CategoryRollup struct {
	Budget       *decimal.Decimal `json:"budget,omitempty"`
	Category     string           `json:"category"`
	Spent        decimal.Decimal  `json:"spent"`
	Remaining    decimal.Decimal  `json:"remaining"`
	Ratio        decimal.Decimal  `json:"ratio"`
	Transactions int              `json:"transactions"`
	Alert        bool             `json:"alert"`
	Over         bool             `json:"over"`
}

// Summary is the monthly budget of a household. Fixed holds the active
// recurring lines followed by the month's fixed-tagged transactions; each
// item's Source tells them apart.
type Summary struct {
	Month      model.Month      `json:"month"`
	Provisions Section          `json:"provisions"`
	Fixed      Section          `json:"fixed"`
	Variable   Section          `json:"variable"`
	Categories []CategoryRollup `json:"categories"`
	GrandTotal Allocation       `json:"grand_total"`
	Included   int              `json:"included"`
	Excluded   int              `json:"excluded"`
	Unresolved int              `json:"unresolved"`
}

// Aggregator folds lines, provisions and transactions into a monthly summary.
type Aggregator struct{}

// NewAggregator creates a new aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Summarize builds the summary for in.Month.
func (a *Aggregator) Summarize(in MonthInput) (*Summary, error) {
	allocator, err := NewAllocator(in.Household)
	if err != nil {
		return nil, err
	}
	provisions, err := NewProvisionEngine(in.Household)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Month:      in.Month,
		Provisions: Section{Name: SectionProvisions},
		Fixed:      Section{Name: SectionFixed},
		Variable:   Section{Name: SectionVariable},
	}

	for _, p := range in.Provisions {
		if !p.Active {
			continue
		}
		item, err := provisions.Allocate(p)
		if err != nil {
			return nil, err
		}
		item.Source = SourceProvision
		summary.Provisions.add(item)
	}

	for _, l := range in.Lines {
		if !l.Active {
			continue
		}
		item, err := allocator.Line(l)
		if err != nil {
			return nil, err
		}
		item.Source = SourceRecurring
		summary.Fixed.add(item)
	}

	index := NewTagIndex(in.Tags)
	spent := make(map[string]*CategoryRollup)

	for _, txn := range in.Transactions {
		if !in.Month.Contains(txn.Date) {
			continue
		}
		if txn.Excluded {
			summary.Excluded++
			continue
		}
		summary.Included++

		if !txn.IsExpense() {
			continue
		}

		expenseType := model.DefaultExpenseType
		category := ""
		tag, ok := index.Resolve(txn)
		if ok {
			expenseType = tag.ExpenseType
			category = tag.Category
		} else {
			summary.Unresolved++
		}

		amount := txn.Amount.Abs()
		item, err := allocator.Amount(txn.Label, amount)
		if err != nil {
			return nil, err
		}
		item.Category = category
		item.Source = SourceTransaction

		if expenseType == model.ExpenseFixed {
			summary.Fixed.add(item)
		} else {
			summary.Variable.add(item)
		}

		if category != "" {
			roll, exists := spent[category]
			if !exists {
				roll = &CategoryRollup{Category: category}
				spent[category] = roll
			}
			roll.Spent = roll.Spent.Add(amount)
			roll.Transactions++
		}
	}

	summary.Categories = rollupCategories(in.Month, spent, in.Budgets)
	summary.GrandTotal = summary.Provisions.Total.
		Add(summary.Fixed.Total).
		Add(summary.Variable.Total)

	slog.Debug("summarized month",
		"household", in.Household.ID,
		"month", in.Month.String(),
		"included", summary.Included,
		"excluded", summary.Excluded,
		"total", summary.GrandTotal.Total().StringFixed(2))

	return summary, nil
}

func rollupCategories(month model.Month, spent map[string]*CategoryRollup, budgets []model.CategoryBudget) []CategoryRollup {
	for _, b := range budgets {
		if b.Month != month {
			continue
		}
		roll, exists := spent[b.Category]
		if !exists {
			roll = &CategoryRollup{Category: b.Category}
			spent[b.Category] = roll
		}

		amount := b.Amount
		roll.Budget = &amount
		roll.Remaining = amount.Sub(roll.Spent)
		roll.Over = roll.Spent.GreaterThan(amount)

		threshold := b.AlertThreshold
		if threshold.IsZero() {
			threshold = model.DefaultAlertThreshold
		}
		if amount.IsPositive() {
			roll.Ratio = roll.Spent.DivRound(amount, 4)
			roll.Alert = roll.Ratio.GreaterThanOrEqual(threshold)
		} else {
			roll.Alert = roll.Spent.IsPositive()
		}
	}

	out := make([]CategoryRollup, 0, len(spent))
	for _, roll := range spent {
		out = append(out, *roll)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category < out[j].Category
	})
	return out
}

// TagIndex resolves transaction tag names against the canonical taxonomy.
type TagIndex map[string]model.Tag

// NewTagIndex indexes tags by their case-insensitive key.
func NewTagIndex(tags []model.Tag) TagIndex {
	idx := make(TagIndex, len(tags))
	for _, t := range tags {
		idx[model.TagKey(t.Name)] = t
	}
	return idx
}

// Resolve returns the first of the transaction's tags present in the taxonomy.
func (idx TagIndex) Resolve(txn model.Transaction) (model.Tag, bool) {
	for _, name := range txn.Tags {
		if tag, ok := idx[model.TagKey(name)]; ok {
			return tag, true
		}
	}
	return model.Tag{}, false
}
