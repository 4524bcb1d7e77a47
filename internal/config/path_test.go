package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BUDGET_TEST_DIR", "/srv/budget")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde only", in: "~", want: home},
		{name: "tilde prefix", in: "~/budget.db", want: filepath.Join(home, "budget.db")},
		{name: "env var", in: "$BUDGET_TEST_DIR/budget.db", want: "/srv/budget/budget.db"},
		{name: "absolute", in: "/tmp/budget.db", want: "/tmp/budget.db"},
		{name: "tilde in the middle", in: "/tmp/~/x", want: "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "budget"), dir)
}
