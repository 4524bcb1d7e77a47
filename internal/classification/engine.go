// Package classification assigns tags and expense types to transactions
// using prioritized keyword rules.
package classification

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// Result is the outcome of classifying one transaction.
type Result struct {
	TransactionID string            `json:"transaction_id"`
	RuleID        string            `json:"rule_id,omitempty"`
	RuleName      string            `json:"rule_name,omitempty"`
	Tag           string            `json:"tag,omitempty"`
	ExpenseType   model.ExpenseType `json:"expense_type"`
	Confidence    float64           `json:"confidence"`
	Classified    bool              `json:"classified"`
}

// SkippedRule is a rule the engine could not use.
type SkippedRule struct {
	Name   string
	Reason string
}

// compiledRule holds a rule with its keywords prepared for matching.
type compiledRule struct {
	model.ClassificationRule
	patterns []*regexp.Regexp
}

// Engine evaluates an ordered rule set. It is immutable once built and safe
// for concurrent use.
type Engine struct {
	rules   []compiledRule
	skipped []SkippedRule
}

// NewEngine prepares the active rules, ordered by ascending priority.
// Rules that fail validation or carry a malformed regex are skipped with a
// warning; the remaining rules still classify.
func NewEngine(rules []model.ClassificationRule) *Engine {
	e := &Engine{}

	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if err := rule.Validate(); err != nil {
			e.skip(rule, err)
			continue
		}

		cr := compiledRule{ClassificationRule: rule}
		if rule.MatchType == model.MatchRegex {
			var err error
			cr.patterns, err = compileKeywords(rule)
			if err != nil {
				e.skip(rule, err)
				continue
			}
		}
		e.rules = append(e.rules, cr)
	}

	sort.SliceStable(e.rules, func(i, j int) bool {
		a, b := e.rules[i], e.rules[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Name < b.Name
	})

	return e
}

func (e *Engine) skip(rule model.ClassificationRule, err error) {
	slog.Warn("skipping classification rule", "rule", rule.Name, "error", err)
	e.skipped = append(e.skipped, SkippedRule{Name: rule.Name, Reason: err.Error()})
}

func compileKeywords(rule model.ClassificationRule) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(rule.Keywords))
	for _, kw := range rule.Keywords {
		re, err := common.CompileFullMatch(kw, rule.CaseSensitive)
		if err != nil {
			return nil, common.NewValidationError("keywords", "malformed regex %q: %v", kw, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// Skipped lists the rules left out when the engine was built.
func (e *Engine) Skipped() []SkippedRule {
	return e.skipped
}

// Len returns the number of usable rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Classify runs the rules against txn in priority order. The first rule that
// matches with a confidence at or above its threshold wins. Without a winner
// the result is unclassified with the default expense type.
func (e *Engine) Classify(txn model.Transaction) Result {
	for _, rule := range e.rules {
		confidence, ok := rule.match(txn)
		if !ok || confidence < rule.ConfidenceThreshold {
			continue
		}
		return Result{
			TransactionID: txn.ID,
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			Tag:           rule.Tag,
			ExpenseType:   rule.ExpenseType,
			Confidence:    confidence,
			Classified:    true,
		}
	}

	return Result{
		TransactionID: txn.ID,
		ExpenseType:   model.DefaultExpenseType,
	}
}
