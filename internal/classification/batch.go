package classification

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// DefaultWorkers bounds batch fan-out when no worker count is given.
const DefaultWorkers = 4

// BatchOptions tunes ClassifyBatch.
type BatchOptions struct {
	// Progress is called once per processed transaction, possibly concurrently.
	Progress func()
	Workers  int
}

// BatchReport collects the results of a batch, in input order.
type BatchReport struct {
	Results    []Result
	Failures   []common.RecordError
	Classified int
}

// ClassifyBatch classifies many transactions concurrently. A transaction that
// cannot be classified is reported in Failures without stopping the batch;
// when any record failed the report comes with a *common.PartialImportError.
func (e *Engine) ClassifyBatch(ctx context.Context, txns []model.Transaction, opts BatchOptions) (*BatchReport, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]Result, len(txns))
	failures := make([]string, len(txns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range txns {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if reason := checkClassifiable(txns[i]); reason != "" {
				failures[i] = reason
			} else {
				results[i] = e.Classify(txns[i])
			}
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &BatchReport{Results: make([]Result, 0, len(txns))}
	for i, txn := range txns {
		if failures[i] != "" {
			report.Failures = append(report.Failures, common.RecordError{Key: txn.ID, Reason: failures[i], Line: i + 1})
			continue
		}
		report.Results = append(report.Results, results[i])
		if results[i].Classified {
			report.Classified++
		}
	}

	slog.Debug("classified batch",
		"transactions", len(txns),
		"classified", report.Classified,
		"failed", len(report.Failures))

	if len(report.Failures) > 0 {
		return report, &common.PartialImportError{
			Failures:  report.Failures,
			Succeeded: len(report.Results),
		}
	}
	return report, nil
}

func checkClassifiable(txn model.Transaction) string {
	switch {
	case txn.ID == "":
		return "transaction has no id"
	case strings.TrimSpace(txn.Label) == "":
		return "transaction has no label"
	default:
		return ""
	}
}
