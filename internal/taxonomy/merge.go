package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// MergeRequest consolidates SourceTags into TargetTag.
type MergeRequest struct {
	TargetTag             string            `json:"target_tag"`
	TargetExpenseType     model.ExpenseType `json:"target_expense_type,omitempty"`
	SourceTags            []string          `json:"source_tags"`
	CreateTargetIfMissing bool              `json:"create_target_if_missing"`
	DeleteSourceTags      bool              `json:"delete_source_tags"`
}

// MergeReport describes a completed merge.
type MergeReport struct {
	TargetTag             string   `json:"target_tag"`
	MergedTags            []string `json:"merged_tags"`
	UpdatedTransactionIDs []string `json:"updated_transaction_ids,omitempty"`
	TransactionsUpdated   int      `json:"transactions_updated"`
	RulesUpdated          int      `json:"rules_updated,omitempty"`
	TargetCreated         bool     `json:"target_created,omitempty"`
}

// mergePlan is everything a merge will write, computed before any write.
type mergePlan struct {
	target       model.Tag
	sources      []string
	ruleSources  []string
	deletable    []string
	transactions []model.Transaction
	createTarget bool
	labelsChange bool
}

// Merge moves every transaction of the source tags onto the target and
// unions the sources' labels into it. All reads and checks happen before the
// first write. Sources that no longer exist are skipped, so repeating a merge
// reports zero updated transactions. A write failure midway returns a
// *common.PartialFailureError listing the transactions already moved.
func (s *Store) Merge(ctx context.Context, householdID string, req MergeRequest) (*MergeReport, error) {
	if err := validateMerge(req); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := s.planMerge(ctx, householdID, req)
	if err != nil {
		return nil, err
	}

	report := &MergeReport{
		TargetTag:     plan.target.Name,
		MergedTags:    plan.sources,
		TargetCreated: plan.createTarget,
	}
	fail := func(err error) (*MergeReport, error) {
		return nil, &common.PartialFailureError{Operation: "merge", UpdatedIDs: report.UpdatedTransactionIDs, Err: err}
	}

	if plan.createTarget {
		if err := s.repo.CreateTag(ctx, householdID, plan.target); err != nil {
			return nil, fmt.Errorf("failed to create target tag %q: %w", plan.target.Name, err)
		}
	}

	for _, txn := range plan.transactions {
		tags := txn.ReplaceTags(plan.sources, plan.target.Name)
		if err := s.repo.SetTransactionTags(ctx, householdID, txn.ID, tags); err != nil {
			return fail(fmt.Errorf("transaction %s: %w", txn.ID, err))
		}
		report.UpdatedTransactionIDs = append(report.UpdatedTransactionIDs, txn.ID)
	}
	report.TransactionsUpdated = len(report.UpdatedTransactionIDs)

	rules, err := s.repo.RetargetRules(ctx, householdID, plan.ruleSources, plan.target.Name)
	if err != nil {
		return fail(fmt.Errorf("rules of %s: %w", strings.Join(plan.ruleSources, ","), err))
	}
	report.RulesUpdated = rules

	if plan.labelsChange && !plan.createTarget {
		if err := s.repo.UpdateTag(ctx, householdID, plan.target.Name, plan.target); err != nil {
			return fail(fmt.Errorf("target tag %q: %w", plan.target.Name, err))
		}
	}

	if req.DeleteSourceTags {
		for _, name := range plan.deletable {
			if err := s.repo.DeleteTag(ctx, householdID, name); err != nil {
				return fail(fmt.Errorf("source tag %q: %w", name, err))
			}
		}
	}

	slog.Info("merged tags",
		"household", householdID,
		"target", report.TargetTag,
		"sources", strings.Join(report.MergedTags, ","),
		"transactions_updated", report.TransactionsUpdated,
		"rules_updated", report.RulesUpdated,
		"sources_deleted", req.DeleteSourceTags)

	return report, nil
}

func validateMerge(req MergeRequest) error {
	if strings.TrimSpace(req.TargetTag) == "" {
		return &common.InvalidMergeError{Reason: "target tag is required"}
	}
	if len(req.SourceTags) == 0 {
		return &common.InvalidMergeError{Tag: req.TargetTag, Reason: "at least one source tag is required"}
	}
	for _, src := range req.SourceTags {
		if strings.TrimSpace(src) == "" {
			return &common.InvalidMergeError{Reason: "source tag names cannot be empty"}
		}
		if model.SameTag(src, req.TargetTag) {
			return &common.InvalidMergeError{Tag: src, Reason: "target tag cannot also be a source"}
		}
	}
	if req.TargetExpenseType != "" {
		if _, err := model.ParseExpenseType(string(req.TargetExpenseType)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) planMerge(ctx context.Context, householdID string, req MergeRequest) (*mergePlan, error) {
	tags, err := s.repo.ListTags(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	plan := &mergePlan{}

	if target := findTag(tags, req.TargetTag); target != nil {
		plan.target = *target
	} else {
		if !req.CreateTargetIfMissing {
			return nil, &common.InvalidMergeError{Tag: req.TargetTag, Reason: "target tag does not exist"}
		}
		plan.createTarget = true
		plan.target = model.Tag{
			Name:        strings.TrimSpace(req.TargetTag),
			ExpenseType: model.ExpenseType(strings.ToLower(strings.TrimSpace(string(req.TargetExpenseType)))),
		}
	}

	seen := make(map[string]bool, len(req.SourceTags))
	var labels []string
	for _, name := range req.SourceTags {
		key := model.TagKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		// Rules may still name a source deleted by an earlier merge.
		plan.ruleSources = append(plan.ruleSources, strings.TrimSpace(name))

		src := findTag(tags, name)
		if src == nil {
			// References may outlive the tag; they still move to the target.
			plan.sources = append(plan.sources, strings.TrimSpace(name))
			continue
		}
		plan.sources = append(plan.sources, src.Name)
		plan.deletable = append(plan.deletable, src.Name)
		labels = append(labels, src.Labels...)
		if plan.target.ExpenseType == "" {
			plan.target.ExpenseType = src.ExpenseType
		}
	}
	if plan.target.ExpenseType == "" {
		plan.target.ExpenseType = model.DefaultExpenseType
	}

	merged := model.MergeLabels(plan.target.Labels, labels...)
	plan.labelsChange = len(merged) != len(plan.target.Labels)
	plan.target.Labels = merged

	plan.transactions, err = s.repo.TransactionsWithTags(ctx, householdID, plan.sources)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions of %s: %w", strings.Join(plan.sources, ","), err)
	}

	// A missing source without references was merged by an earlier call.
	referenced := make(map[string]bool, len(plan.sources))
	for _, txn := range plan.transactions {
		for _, tag := range txn.Tags {
			referenced[model.TagKey(tag)] = true
		}
	}
	existing := make(map[string]bool, len(plan.deletable))
	for _, name := range plan.deletable {
		existing[model.TagKey(name)] = true
	}
	kept := plan.sources[:0]
	for _, name := range plan.sources {
		if existing[model.TagKey(name)] || referenced[model.TagKey(name)] {
			kept = append(kept, name)
		}
	}
	plan.sources = kept

	return plan, nil
}
