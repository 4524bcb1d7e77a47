package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-budget/internal/common"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  path: %s
logging:
  level: error
household:
  id: couple
  member1: Alex
  member2: Sam
  income1:
    amount: 2000
  income2:
    amount: 1000
`, filepath.Join(dir, "budget.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(bytes.NewReader(nil))
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), "budget %v", args)
	return out.String()
}

func TestCLI_EndToEnd(t *testing.T) {
	cfg := writeConfig(t)

	assert.Contains(t, run(t, cfg, "household", "set"), "Saved household couple")
	assert.Contains(t, run(t, cfg, "household", "show"), "Alex")

	assert.Contains(t, run(t, cfg, "tags", "add", "Restaurants", "--category", "Food"), "Created tag Restaurants (variable)")
	assert.Contains(t, run(t, cfg, "tags", "add", "resto", "--category", "Food", "--label", "CB RESTO"), "Created tag resto")
	tags := run(t, cfg, "tags", "list")
	assert.Contains(t, tags, "Restaurants")
	assert.Contains(t, tags, "resto")

	merged := run(t, cfg, "tags", "merge", "resto", "--into", "Restaurants", "--delete-sources", "--yes")
	assert.Contains(t, merged, "Merged 1 tag(s) into Restaurants")
	assert.NotContains(t, run(t, cfg, "tags", "list"), "resto")
	assert.Contains(t, run(t, cfg, "checkpoint", "list"), "auto-merge-")

	assert.Contains(t, run(t, cfg, "lines", "add", "Rent", "--amount", "900", "--category", "Housing"), "Saved Rent: 900.00 monthly")
	assert.Contains(t, run(t, cfg, "provisions", "add", "Savings", "--percentage", "10"), "Saved Savings: 300.00 per month")
	assert.Contains(t, run(t, cfg, "budgets", "set", "Food", "450", "--month", "2024-03"), "Food budget for 2024-03 set to 450.00")

	summary := run(t, cfg, "summary", "--month", "2024-03")
	for _, want := range []string{"Budget for 2024-03", "Rent", "600.00", "Savings", "Grand total 1200.00"} {
		assert.Contains(t, summary, want)
	}
	assert.Contains(t, run(t, cfg, "summary", "--month", "2024-03", "--json"), `"month": "2024-03"`)

	assert.Contains(t, run(t, cfg, "classify", "--no-progress"), "No transactions to classify")
	assert.Contains(t, run(t, cfg, "migrate", "--status"), "Current version: 3")
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string][]string{
		"tags":         {"list", "add", "update", "rename", "delete", "merge", "export", "import"},
		"rules":        {"list", "add", "delete", "import", "export"},
		"lines":        {"add", "list", "delete"},
		"provisions":   {"add", "list", "delete"},
		"budgets":      {"set", "list"},
		"household":    {"show", "set"},
		"checkpoint":   {"create", "list", "restore", "delete"},
		"transactions": {"list", "exclude", "include"},
	}

	for parent, children := range want {
		t.Run(parent, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{parent})
			require.NoError(t, err)
			require.Equal(t, parent, cmd.Name())

			names := make(map[string]*cobra.Command)
			for _, sub := range cmd.Commands() {
				names[sub.Name()] = sub
			}
			for _, child := range children {
				assert.Contains(t, names, child)
			}
		})
	}
}

func TestMergeTagsCmd_RequiresTarget(t *testing.T) {
	cmd := mergeTagsCmd()
	flag := cmd.Flag("into")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
}

func TestExplainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation",
			err:  fmt.Errorf("wrapped: %w", common.NewValidationError("amount", "%q is not a number", "lots")),
			want: `invalid amount: "lots" is not a number`,
		},
		{
			name: "referenced tag",
			err:  &common.ReferentialError{Tag: "Rent", Transactions: 3},
			want: `tag "Rent" is used by 3 transaction(s); delete with --policy detach to untag them first`,
		},
		{
			name: "partial import",
			err:  &common.PartialImportError{Failures: []common.RecordError{{Line: 2}}, Succeeded: 4},
			want: "1 record(s) failed, 4 succeeded",
		},
		{
			name: "user error",
			err:  common.NewUserError("household not saved yet", common.ErrNotFound),
			want: "household not saved yet: not found",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, explainError(tt.err))
		})
	}
}

func TestExplainError_PartialFailure(t *testing.T) {
	err := &common.PartialFailureError{Operation: "merge", UpdatedIDs: []string{"t1"}, Err: errors.New("disk full")}
	msg := explainError(err)
	assert.Contains(t, msg, "merge stopped after updating 1 record(s): disk full")
	assert.Contains(t, msg, "Run the command again")
}

func TestFindByName(t *testing.T) {
	records := [][2]string{{"id-1", "Rent"}, {"id-2", "Car"}, {"id-3", "car "}}
	at := func(i int) (string, string) { return records[i][0], records[i][1] }

	id, err := findByName("rent", len(records), at)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	_, err = findByName("Gym", len(records), at)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = findByName("car", len(records), at)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	assert.Equal(t, "just now", formatRelativeTime(time.Now()))
	assert.Equal(t, "5 minutes ago", formatRelativeTime(time.Now().Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "yesterday", formatRelativeTime(time.Now().Add(-25*time.Hour)))

	old := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-03-01 09:30", formatRelativeTime(old))
}
