package classification

import (
	"math"
	"strings"

	"github.com/Veraticus/household-budget/internal/model"
)

// LabelRulePriority places tag label rules after every explicit rule.
const LabelRulePriority = math.MaxInt32

// LabelRules turns each tag's associated labels into a partial-match rule
// routing to that tag. Merged tags carry the labels of their sources, so
// transactions that used to match a source land on the surviving tag.
func LabelRules(tags []model.Tag) []model.ClassificationRule {
	var rules []model.ClassificationRule
	for _, tag := range tags {
		var keywords []string
		for _, label := range tag.Labels {
			if label = strings.TrimSpace(label); label != "" {
				keywords = append(keywords, label)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		rules = append(rules, model.ClassificationRule{
			Name:        "tag labels: " + tag.Name,
			Tag:         tag.Name,
			ExpenseType: tag.ExpenseType,
			MatchType:   model.MatchPartial,
			Keywords:    keywords,
			Priority:    LabelRulePriority,
			Active:      true,
		})
	}
	return rules
}
