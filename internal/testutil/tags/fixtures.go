package tags

import "github.com/Veraticus/household-budget/internal/model"

// Fixture is a predefined set of tags for testing.
type Fixture interface {
	Name() string
	Tags() []Spec
}

type fixture struct {
	name string
	tags []Spec
}

func (f *fixture) Name() string { return f.name }
func (f *fixture) Tags() []Spec { return f.tags }

// Predefined fixtures.
var (
	// FixtureMinimal is one fixed and one variable tag.
	FixtureMinimal = &fixture{
		name: "Minimal",
		tags: []Spec{
			{Name: TagRent, ExpenseType: model.ExpenseFixed, Category: "Housing"},
			{Name: TagGroceries, ExpenseType: model.ExpenseVariable, Category: "Food"},
		},
	}

	// FixtureHousehold covers the usual monthly spending of a couple.
	FixtureHousehold = &fixture{
		name: "Household",
		tags: []Spec{
			{Name: TagRent, ExpenseType: model.ExpenseFixed, Category: "Housing", Labels: []string{"LOYER"}},
			{Name: TagInsurance, ExpenseType: model.ExpenseFixed, Category: "Housing"},
			{Name: TagUtilities, ExpenseType: model.ExpenseFixed, Category: "Utilities", Labels: []string{"EDF", "ENGIE"}},
			{Name: TagGroceries, ExpenseType: model.ExpenseVariable, Category: "Food", Labels: []string{"CARREFOUR", "LIDL"}},
			{Name: TagRestaurants, ExpenseType: model.ExpenseVariable, Category: "Food"},
			{Name: TagSubscriptions, ExpenseType: model.ExpenseVariable, Category: "Leisure", Labels: []string{"NETFLIX"}},
			{Name: TagLeisure, ExpenseType: model.ExpenseVariable, Category: "Leisure"},
		},
	}

	// FixtureRestaurantDuplicates is three spellings of the same tag.
	FixtureRestaurantDuplicates = &fixture{
		name: "RestaurantDuplicates",
		tags: []Spec{
			{Name: TagResto, ExpenseType: model.ExpenseVariable, Labels: []string{"CB RESTO", "brasserie"}},
			{Name: TagRestaurant, ExpenseType: model.ExpenseVariable, Labels: []string{"cb resto", "pizzeria"}},
			{Name: TagRestaurants, ExpenseType: model.ExpenseVariable, Labels: []string{"bistro"}},
		},
	}
)
