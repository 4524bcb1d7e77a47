package classification

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/household-budget/internal/model"
)

// match reports whether any keyword matches the transaction and the amount
// condition holds, along with the best keyword confidence.
func (r *compiledRule) match(txn model.Transaction) (float64, bool) {
	if !r.MatchesAmount(txn.Amount) {
		return 0, false
	}

	label := strings.TrimSpace(txn.Label)
	if len(r.Keywords) == 0 {
		// Amount-only rule.
		return 1, true
	}
	if label == "" {
		return 0, false
	}

	best, matched := 0.0, false
	for i, kw := range r.Keywords {
		var confidence float64
		var ok bool
		switch r.MatchType {
		case model.MatchRegex:
			ok = r.patterns[i].MatchString(label)
			confidence = 1
		case model.MatchExact:
			ok = matchTokens(kw, label, r.CaseSensitive)
			confidence = 1
		default:
			confidence, ok = matchPartial(kw, label, r.CaseSensitive)
		}
		if ok && confidence > best {
			best, matched = confidence, true
		}
	}
	return best, matched
}

// matchPartial is a substring test. The score grows with the share of the
// label the keyword covers, from 0.5 up to 1 for a whole-label match.
func matchPartial(keyword, label string, caseSensitive bool) (float64, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0, false
	}
	if !caseSensitive {
		keyword = strings.ToLower(keyword)
		label = strings.ToLower(label)
	}
	if !strings.Contains(label, keyword) {
		return 0, false
	}
	if keyword == label {
		return 1, true
	}
	ratio := float64(utf8.RuneCountInString(keyword)) / float64(utf8.RuneCountInString(label))
	return 0.5 + 0.5*ratio, true
}

// matchTokens reports whether the keyword's tokens appear as a contiguous
// run of the label's tokens.
func matchTokens(keyword, label string, caseSensitive bool) bool {
	if !caseSensitive {
		keyword = strings.ToLower(keyword)
		label = strings.ToLower(label)
	}
	want := tokenize(keyword)
	have := tokenize(label)
	if len(want) == 0 || len(want) > len(have) {
		return false
	}

	for start := 0; start+len(want) <= len(have); start++ {
		found := true
		for i := range want {
			if have[start+i] != want[i] {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
