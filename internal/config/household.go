package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/household-budget/internal/common"
	"github.com/Veraticus/household-budget/internal/model"
)

// DefaultHouseholdID is used when household.id is not configured.
const DefaultHouseholdID = "default"

// SetDefaults registers the default value of every budget key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "$HOME/.local/share/budget/budget.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("household.id", DefaultHouseholdID)
	v.SetDefault("household.split_mode", string(model.HouseholdProportional))
	v.SetDefault("household.split1", "50")
	v.SetDefault("household.split2", "50")
	v.SetDefault("household.income1.unit", string(model.IncomeMonthly))
	v.SetDefault("household.income2.unit", string(model.IncomeMonthly))
	v.SetDefault("classification.workers", 4)
	v.SetDefault("taxonomy.delete_policy", "detach")
}

// DatabasePath returns the configured database path with ~ and variables expanded.
func DatabasePath(v *viper.Viper) (string, error) {
	path := ExpandPath(v.GetString("database.path"))
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "budget.db")
	}
	return path, nil
}

// HouseholdID returns the household the CLI operates on.
func HouseholdID(v *viper.Viper) string {
	if id := strings.TrimSpace(v.GetString("household.id")); id != "" {
		return id
	}
	return DefaultHouseholdID
}

// LoadHousehold decodes and validates the household section. Members and
// incomes left out of the configuration default to zero.
func LoadHousehold(v *viper.Viper) (*model.HouseholdConfig, error) {
	h := &model.HouseholdConfig{
		ID:      HouseholdID(v),
		Member1: v.GetString("household.member1"),
		Member2: v.GetString("household.member2"),
	}

	var err error
	if h.Income1, err = loadIncome(v, "household.income1"); err != nil {
		return nil, err
	}
	if h.Income2, err = loadIncome(v, "household.income2"); err != nil {
		return nil, err
	}

	mode, err := model.ParseHouseholdSplitMode(v.GetString("household.split_mode"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	h.SplitMode = mode
	if h.Split1, err = decimalKey(v, "household.split1"); err != nil {
		return nil, err
	}
	if h.Split2, err = decimalKey(v, "household.split2"); err != nil {
		return nil, err
	}

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return h, nil
}

func loadIncome(v *viper.Viper, prefix string) (model.Income, error) {
	var in model.Income
	var err error

	if in.Amount, err = decimalKey(v, prefix+".amount"); err != nil {
		return in, err
	}
	if in.TaxRate, err = decimalKey(v, prefix+".tax_rate"); err != nil {
		return in, err
	}
	unit := v.GetString(prefix + ".unit")
	if unit == "" {
		unit = string(model.IncomeMonthly)
	}
	if in.Unit, err = model.ParseIncomeUnit(unit); err != nil {
		return in, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, prefix, err)
	}
	return in, nil
}

// decimalKey reads a money or percentage key. Values are read as strings so
// that YAML floats do not lose precision before reaching decimal.
func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %q is not a number", common.ErrInvalidConfig, key, raw)
	}
	return d, nil
}
