package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single bank movement belonging to a household.
type Transaction struct {
	Date     time.Time       `json:"date"`
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Tags     []string        `json:"tags"`
	Amount   decimal.Decimal `json:"amount"`
	Excluded bool            `json:"excluded"`
}

// IsExpense reports whether the transaction is an outflow.
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// HasTag reports whether the transaction carries the tag (case-insensitively).
func (t *Transaction) HasTag(name string) bool {
	for _, tag := range t.Tags {
		if SameTag(tag, name) {
			return true
		}
	}
	return false
}

// ReplaceTags returns the transaction's tags with every tag in from replaced by to.
// The result never contains the same name twice.
func (t *Transaction) ReplaceTags(from []string, to string) []string {
	out := make([]string, 0, len(t.Tags)+1)
	seen := make(map[string]bool, len(t.Tags)+1)
	add := func(name string) {
		if key := TagKey(name); !seen[key] {
			seen[key] = true
			out = append(out, name)
		}
	}

	for _, tag := range t.Tags {
		replaced := false
		for _, f := range from {
			if SameTag(tag, f) {
				replaced = true
				break
			}
		}
		if replaced {
			add(to)
		} else {
			add(tag)
		}
	}
	return out
}

// WithoutTag returns the transaction's tags minus the named tag.
func (t *Transaction) WithoutTag(name string) []string {
	out := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		if !SameTag(tag, name) {
			out = append(out, tag)
		}
	}
	return out
}
