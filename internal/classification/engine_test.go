package classification

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/model"
)

func txn(label, amount string) model.Transaction {
	return model.Transaction{ID: "t-" + label, Label: label, Amount: decimal.RequireFromString(amount)}
}

func rule(name string, priority int, match model.MatchType, keywords ...string) model.ClassificationRule {
	return model.ClassificationRule{
		ID:          name,
		Name:        name,
		Tag:         name,
		ExpenseType: model.ExpenseFixed,
		MatchType:   match,
		Keywords:    keywords,
		Priority:    priority,
		Active:      true,
	}
}

func TestEngine_Classify(t *testing.T) {
	amountRule := rule("Big spend", 5, model.MatchPartial)
	amountRule.AmountCondition = model.AmountLessThan
	v := decimal.RequireFromString("-1000")
	amountRule.AmountValue = &v

	strict := rule("Strict", 1, model.MatchPartial, "net")
	strict.ConfidenceThreshold = 0.9

	caseSensitive := rule("Shouting", 2, model.MatchExact, "EDF")
	caseSensitive.CaseSensitive = true

	engine := NewEngine([]model.ClassificationRule{
		rule("Groceries", 50, model.MatchPartial, "carrefour", "lidl"),
		rule("Rent", 10, model.MatchExact, "loyer"),
		rule("Streaming", 20, model.MatchRegex, `.*netflix\.com.*`),
		strict,
		caseSensitive,
		amountRule,
	})
	require.Empty(t, engine.Skipped())

	tests := []struct {
		name       string
		txn        model.Transaction
		wantRule   string
		confidence float64
		classified bool
	}{
		{name: "partial substring", txn: txn("CB CARREFOUR MARKET 12/03", "-45.10"), wantRule: "Groceries", confidence: 0.5 + 0.5*9.0/25.0, classified: true},
		{name: "partial whole label", txn: txn("lidl", "-12"), wantRule: "Groceries", confidence: 1, classified: true},
		{name: "exact token", txn: txn("PRLV SEPA LOYER MARS", "-900"), wantRule: "Rent", confidence: 1, classified: true},
		{name: "exact rejects substrings", txn: txn("PRLV LOYERS", "-900"), classified: false},
		{name: "regex full match", txn: txn("PAYPAL *NETFLIX.COM 866", "-13.49"), wantRule: "Streaming", confidence: 1, classified: true},
		{name: "low confidence falls through to next rule", txn: txn("NETFLIX.COM MONTHLY", "-13.49"), wantRule: "Streaming", confidence: 1, classified: true},
		{name: "case sensitive exact", txn: txn("PRLV EDF CLIENTS", "-80"), wantRule: "Shouting", confidence: 1, classified: true},
		{name: "case sensitive exact mismatch", txn: txn("prlv edf clients", "-80"), classified: false},
		{name: "amount only rule", txn: txn("VIREMENT NOTAIRE", "-15000"), wantRule: "Big spend", confidence: 1, classified: true},
		{name: "no match", txn: txn("BOULANGERIE", "-3.20"), classified: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Classify(tt.txn)
			assert.Equal(t, tt.classified, got.Classified)
			assert.Equal(t, tt.txn.ID, got.TransactionID)
			if !tt.classified {
				assert.Equal(t, model.ExpenseVariable, got.ExpenseType)
				assert.Empty(t, got.RuleName)
				return
			}
			assert.Equal(t, tt.wantRule, got.RuleName)
			assert.Equal(t, tt.wantRule, got.Tag)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestEngine_PriorityOrder(t *testing.T) {
	engine := NewEngine([]model.ClassificationRule{
		rule("Late", 90, model.MatchPartial, "amazon"),
		rule("Early", 1, model.MatchPartial, "amazon"),
		rule("Middle", 50, model.MatchPartial, "amazon"),
	})

	got := engine.Classify(txn("AMAZON", "-10"))
	assert.Equal(t, "Early", got.RuleName)
}

func TestEngine_InactiveRulesIgnored(t *testing.T) {
	inactive := rule("Off", 1, model.MatchPartial, "amazon")
	inactive.Active = false

	engine := NewEngine([]model.ClassificationRule{inactive})
	assert.Equal(t, 0, engine.Len())
	assert.False(t, engine.Classify(txn("AMAZON", "-10")).Classified)
}

func TestEngine_MalformedRegexIsolated(t *testing.T) {
	engine := NewEngine([]model.ClassificationRule{
		rule("Broken", 1, model.MatchRegex, `[unclosed`),
		rule("Works", 2, model.MatchPartial, "lidl"),
	})

	require.Len(t, engine.Skipped(), 1)
	assert.Equal(t, "Broken", engine.Skipped()[0].Name)
	assert.Contains(t, engine.Skipped()[0].Reason, "malformed regex")
	assert.Equal(t, 1, engine.Len())

	got := engine.Classify(txn("LIDL", "-20"))
	assert.True(t, got.Classified)
	assert.Equal(t, "Works", got.RuleName)
}

func TestEngine_Deterministic(t *testing.T) {
	rules := []model.ClassificationRule{
		rule("A", 10, model.MatchPartial, "shop"),
		rule("B", 10, model.MatchPartial, "shop"),
	}
	first := NewEngine(rules).Classify(txn("SHOP 42", "-1"))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, NewEngine(rules).Classify(txn("SHOP 42", "-1")))
	}
	assert.Equal(t, "A", first.RuleName)
}

func TestMatchTokens(t *testing.T) {
	tests := []struct {
		keyword string
		label   string
		want    bool
	}{
		{"loyer", "PRLV LOYER MARS", true},
		{"sepa loyer", "PRLV SEPA-LOYER", true},
		{"loyer mars", "LOYER AVRIL MARS", false},
		{"", "anything", false},
		{"a b c", "a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.keyword+"/"+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, matchTokens(tt.keyword, tt.label, false))
		})
	}
}
