package classification

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// ruleFile is the on-disk shape of a YAML rule file.
type ruleFile struct {
	Rules []model.ClassificationRule `yaml:"rules"`
}

// LoadRules decodes a YAML rule file. Rules without an explicit is_active
// field are active. Invalid rules are returned in a *common.PartialImportError
// alongside the valid ones.
func LoadRules(r io.Reader) ([]model.ClassificationRule, error) {
	var raw struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode rule file: %w", err)
	}

	rules := make([]model.ClassificationRule, 0, len(raw.Rules))
	var failures []common.RecordError

	for i := range raw.Rules {
		node := &raw.Rules[i]
		rule := model.ClassificationRule{
			Active:      true,
			MatchType:   model.MatchPartial,
			ExpenseType: model.DefaultExpenseType,
		}
		if err := node.Decode(&rule); err != nil {
			failures = append(failures, common.RecordError{Line: node.Line, Reason: err.Error()})
			continue
		}
		if err := rule.Validate(); err != nil {
			failures = append(failures, common.RecordError{Key: rule.Name, Line: node.Line, Reason: err.Error()})
			continue
		}
		rules = append(rules, rule)
	}

	if len(failures) > 0 {
		return rules, &common.PartialImportError{Failures: failures, Succeeded: len(rules)}
	}
	return rules, nil
}

// WriteRules encodes rules in the format LoadRules reads.
func WriteRules(w io.Writer, rules []model.ClassificationRule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: rules}); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return enc.Close()
}

// DefaultRules returns a starter rule set for common household bills.
func DefaultRules() []model.ClassificationRule {
	return []model.ClassificationRule{
		{
			Name:        "Rent",
			Tag:         "Rent",
			ExpenseType: model.ExpenseFixed,
			MatchType:   model.MatchExact,
			Keywords:    []string{"rent", "loyer"},
			Priority:    10,
			Active:      true,
		},
		{
			Name:                "Insurance",
			Tag:                 "Insurance",
			ExpenseType:         model.ExpenseFixed,
			MatchType:           model.MatchRegex,
			Keywords:            []string{`.*\b(insurance|assurance|mutuelle)\b.*`},
			ConfidenceThreshold: 0.9,
			Priority:            20,
			Active:              true,
		},
		{
			Name:        "Utilities",
			Tag:         "Utilities",
			ExpenseType: model.ExpenseFixed,
			MatchType:   model.MatchPartial,
			Keywords:    []string{"edf", "engie", "electricity", "water", "internet"},
			Priority:    30,
			Active:      true,
		},
		{
			Name:                "Subscriptions",
			Tag:                 "Subscriptions",
			ExpenseType:         model.ExpenseFixed,
			MatchType:           model.MatchPartial,
			Keywords:            []string{"netflix", "spotify", "deezer"},
			ConfidenceThreshold: 0.6,
			Priority:            40,
			Active:              true,
		},
		{
			Name:        "Groceries",
			Tag:         "Groceries",
			ExpenseType: model.ExpenseVariable,
			MatchType:   model.MatchPartial,
			Keywords:    []string{"carrefour", "lidl", "auchan", "monoprix"},
			Priority:    100,
			Active:      true,
		},
	}
}
