package model

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/household-budget/internal/common"
)

// Frequency is the billing cadence of a recurring line.
type Frequency string

// Frequency constants.
const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// ParseFrequency validates a billing cadence.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return f, nil
	default:
		return "", common.NewValidationError("frequency", "unknown frequency %q", s)
	}
}

// SplitMode is the policy used to divide a single line between the two members.
type SplitMode string

// Split mode constants.
const (
	SplitRevenueKey  SplitMode = "revenue-key"
	SplitEqual       SplitMode = "50/50"
	SplitMember1Only SplitMode = "member1-only"
	SplitMember2Only SplitMode = "member2-only"
	SplitManual      SplitMode = "manual"
)

// ParseSplitMode validates a line split mode.
func ParseSplitMode(s string) (SplitMode, error) {
	switch m := SplitMode(s); m {
	case SplitRevenueKey, SplitEqual, SplitMember1Only, SplitMember2Only, SplitManual:
		return m, nil
	default:
		return "", common.NewValidationError("split_mode", "unknown split mode %q", s)
	}
}

// RecurringLine is a fixed expense billed at a regular cadence.
type RecurringLine struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Category  string          `json:"category,omitempty"`
	Frequency Frequency       `json:"frequency"`
	SplitMode SplitMode       `json:"split_mode"`
	Amount    decimal.Decimal `json:"amount"`
	Split1    decimal.Decimal `json:"split1"`
	Split2    decimal.Decimal `json:"split2"`
	Active    bool            `json:"active"`
}

// Validate ensures the line can be converted and split.
func (l *RecurringLine) Validate() error {
	if l.Label == "" {
		return common.NewValidationError("label", "label is required")
	}
	if l.Amount.IsNegative() {
		return common.NewValidationError("amount", "amount cannot be negative")
	}
	if _, err := ParseFrequency(string(l.Frequency)); err != nil {
		return err
	}
	if _, err := ParseSplitMode(string(l.SplitMode)); err != nil {
		return err
	}
	if l.SplitMode == SplitManual && !ManualSplitValid(l.Split1, l.Split2) {
		return common.NewValidationError("split1", "split percentages must sum to 100, got %s", l.Split1.Add(l.Split2))
	}
	return nil
}
