package taxonomy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

const labelSeparator = ";"

var exportHeader = []string{"name", "expense_type", "associated_labels", "category"}

// ImportReport lists the tags an import created.
type ImportReport struct {
	Created  []string             `json:"created"`
	Failures []common.RecordError `json:"failures,omitempty"`
}

// Export writes the household's tags, one per line:
// name,expense_type,label1;label2,category.
func (s *Store) Export(ctx context.Context, householdID string, w io.Writer) error {
	tags, err := s.List(ctx, householdID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, tag := range tags {
		record := []string{
			tag.Name,
			string(tag.ExpenseType),
			strings.Join(tag.Labels, labelSeparator),
			tag.Category,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write tag %q: %w", tag.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import creates tags from the export format. Bad rows and duplicates, of an
// existing tag or of an earlier row, are reported by line and skipped; the
// rest are created. Any rejected row yields a *common.PartialImportError next
// to the report.
func (s *Store) Import(ctx context.Context, householdID string, r io.Reader) (*ImportReport, error) {
	unlock, err := s.locks.Lock(ctx, householdID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.ListTags(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	seen := make(map[string]string, len(existing))
	for _, tag := range existing {
		seen[model.TagKey(tag.Name)] = tag.Name
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	report := &ImportReport{}
	reject := func(line int, key, format string, args ...any) {
		report.Failures = append(report.Failures, common.RecordError{
			Line:   line,
			Key:    key,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				reject(parseErr.StartLine, "", "malformed record: %v", parseErr.Err)
				continue
			}
			return nil, fmt.Errorf("failed to read tags: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if line == 1 && isHeader(record) {
			continue
		}

		tag, reason := parseRecord(record)
		if reason != "" {
			reject(line, tag.Name, "%s", reason)
			continue
		}
		if prior, dup := seen[model.TagKey(tag.Name)]; dup {
			reject(line, tag.Name, "duplicate of %q", prior)
			continue
		}

		normalized, err := normalize(tag)
		if err != nil {
			reject(line, tag.Name, "%v", err)
			continue
		}
		if err := s.repo.CreateTag(ctx, householdID, normalized); err != nil {
			reject(line, tag.Name, "%v", err)
			continue
		}
		seen[model.TagKey(normalized.Name)] = normalized.Name
		report.Created = append(report.Created, normalized.Name)
	}

	slog.Info("imported tags",
		"household", householdID,
		"created", len(report.Created),
		"rejected", len(report.Failures))

	if len(report.Failures) > 0 {
		return report, &common.PartialImportError{Failures: report.Failures, Succeeded: len(report.Created)}
	}
	return report, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), exportHeader[0])
}

func parseRecord(record []string) (model.Tag, string) {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	tag := model.Tag{
		Name:     field(0),
		Category: field(3),
	}
	if tag.Name == "" {
		return tag, "name is required"
	}
	expenseType, err := model.ParseExpenseType(field(1))
	if err != nil {
		return tag, fmt.Sprintf("expense_type must be fixed or variable, got %q", field(1))
	}
	tag.ExpenseType = expenseType
	if labels := field(2); labels != "" {
		tag.Labels = model.MergeLabels(nil, strings.Split(labels, labelSeparator)...)
	}
	return tag, ""
}
