package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/household-budget/internal/classification"
	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
	"github.com/Veraticus/household-budget/internal/service"
)

// ReclassifyOptions tunes Reclassify.
type ReclassifyOptions struct {
	// Progress is called once per classified transaction.
	Progress func()
	// OnlyUntagged limits the run to transactions without any tag.
	OnlyUntagged bool
}

// ReclassifyReport summarizes a rule run over stored transactions.
type ReclassifyReport struct {
	Results      []classification.Result      `json:"results"`
	Skipped      []classification.SkippedRule `json:"skipped_rules,omitempty"`
	TagsCreated  []string                     `json:"tags_created,omitempty"`
	Failures     []common.RecordError         `json:"failures,omitempty"`
	Considered   int                          `json:"considered"`
	Classified   int                          `json:"classified"`
	Tagged       int                          `json:"tagged"`
	Unclassified int                          `json:"unclassified"`
}

// Reclassify runs the household's rules, followed by the associated labels of
// its tags, over its transactions. The winning rule's tag replaces whatever
// the transaction carried; unmatched transactions keep their tags. Tags named
// by rules are created on demand with the rule's expense type. Records that could not be classified or written are
// listed in the report, which then comes with a *common.PartialImportError.
func (s *Service) Reclassify(ctx context.Context, householdID string, opts ReclassifyOptions) (*ReclassifyReport, error) {
	rules, err := s.storage.GetRules(ctx, householdID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	engine := classification.NewEngine(append(rules, classification.LabelRules(tags)...))

	txns, err := s.storage.GetTransactions(ctx, householdID, service.TransactionFilter{Untagged: opts.OnlyUntagged})
	if err != nil {
		return nil, err
	}

	report := &ReclassifyReport{
		Skipped:    engine.Skipped(),
		Considered: len(txns),
	}
	if len(txns) == 0 {
		return report, nil
	}

	batch, err := engine.ClassifyBatch(ctx, txns, classification.BatchOptions{
		Progress: opts.Progress,
		Workers:  s.workers,
	})
	var partial *common.PartialImportError
	if err != nil && !errors.As(err, &partial) {
		return nil, err
	}
	report.Results = batch.Results
	report.Failures = append(report.Failures, batch.Failures...)
	report.Classified = batch.Classified

	byID := make(map[string]model.Transaction, len(txns))
	for _, txn := range txns {
		byID[txn.ID] = txn
	}

	for _, result := range batch.Results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !result.Classified {
			report.Unclassified++
			continue
		}
		if result.Tag == "" {
			continue
		}

		assigned, err := s.tags.Assign(ctx, householdID, byID[result.TransactionID], model.Tag{
			Name:        result.Tag,
			ExpenseType: result.ExpenseType,
		})
		if err != nil {
			report.Failures = append(report.Failures, common.RecordError{Key: result.TransactionID, Reason: err.Error()})
			continue
		}
		if assigned.TagCreated {
			report.TagsCreated = append(report.TagsCreated, assigned.Tag)
		}
		if assigned.Changed {
			report.Tagged++
		}
	}

	slog.Info("reclassified transactions",
		"household", householdID,
		"considered", report.Considered,
		"classified", report.Classified,
		"tagged", report.Tagged,
		"failed", len(report.Failures))

	if len(report.Failures) > 0 {
		return report, &common.PartialImportError{
			Failures:  report.Failures,
			Succeeded: report.Considered - len(report.Failures),
		}
	}
	return report, nil
}
