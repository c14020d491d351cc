package enums

import "fmt"

// PizzaCategory splits the menu into dietary groups.
type PizzaCategory string

const (
	PizzaCategoryVeg    PizzaCategory = "veg"
	PizzaCategoryNonVeg PizzaCategory = "non_veg"
)

var validPizzaCategories = []PizzaCategory{
	PizzaCategoryVeg,
	PizzaCategoryNonVeg,
}

// String implements fmt.Stringer.
func (p PizzaCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PizzaCategory.
func (p PizzaCategory) IsValid() bool {
	for _, candidate := range validPizzaCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePizzaCategory converts raw input into a PizzaCategory.
func ParsePizzaCategory(value string) (PizzaCategory, error) {
	for _, candidate := range validPizzaCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pizza category %q", value)
}

// ToppingCategory groups toppings for menu display and filtering.
type ToppingCategory string

const (
	ToppingCategoryMeat      ToppingCategory = "meat"
	ToppingCategoryVegetable ToppingCategory = "vegetable"
	ToppingCategoryCheese    ToppingCategory = "cheese"
	ToppingCategorySauce     ToppingCategory = "sauce"
	ToppingCategorySpice     ToppingCategory = "spice"
)

var validToppingCategories = []ToppingCategory{
	ToppingCategoryMeat,
	ToppingCategoryVegetable,
	ToppingCategoryCheese,
	ToppingCategorySauce,
	ToppingCategorySpice,
}

// String implements fmt.Stringer.
func (t ToppingCategory) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ToppingCategory.
func (t ToppingCategory) IsValid() bool {
	for _, candidate := range validToppingCategories {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseToppingCategory converts raw input into a ToppingCategory.
func ParseToppingCategory(value string) (ToppingCategory, error) {
	for _, candidate := range validToppingCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid topping category %q", value)
}
