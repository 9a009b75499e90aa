package core

import (
	"errors"
	"strings"
)

type (
	// MealType classifies a recipe by the meal it is planned for.
	MealType string

	// Unit is the measurement unit of an ingredient amount.
	Unit string

	// Category is the grocery category an ingredient is shelved under.
	Category string
)

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
	Baking    MealType = "Baking"
)

const (
	Gram       Unit = "g"
	Milliliter Unit = "ml"
	Tablespoon Unit = "tablespoon"
	Teaspoon   Unit = "teaspoon"
	Piece      Unit = "piece"
)

const (
	Produce     Category = "Produce"
	MeatFish    Category = "Meat & Fish"
	ColdCuts    Category = "Cold Cuts & Spreads"
	DairyEggs   Category = "Dairy & Eggs"
	Bread       Category = "Bread & Baked Goods"
	Cereal      Category = "Cereal & Müsli"
	CannedGoods Category = "Canned Goods & Oils"
	PastaRice   Category = "Pasta & Rice"
	Frozen      Category = "Frozen"
	Other       Category = "Other"
)

// MealTypes lists the meal types in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack, Baking}

// Units lists the allowed measurement units.
var Units = []Unit{Gram, Milliliter, Tablespoon, Teaspoon, Piece}

// Categories lists the grocery categories in shopping-list display order.
// The order is part of the contract: shopping lists are sorted by this
// sequence, not alphabetically.
var Categories = []Category{
	Produce,
	MeatFish,
	ColdCuts,
	DairyEggs,
	Bread,
	Cereal,
	CannedGoods,
	PastaRice,
	Frozen,
	Other,
}

var (
	ErrNotFound         = errors.New("recipe not found")
	ErrDuplicateName    = errors.New("recipe name already exists")
	ErrEmptyName        = errors.New("empty recipe name")
	ErrEmptyPreparation = errors.New("empty preparation")
	ErrNoIngredients    = errors.New("recipe needs at least one ingredient")
	ErrInvalidMealType  = errors.New("invalid meal type")
	ErrInvalidUnit      = errors.New("invalid unit")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidAmount    = errors.New("invalid amount")
)

type (
	// Ingredient is a single line of a recipe. Ingredients are owned by
	// their recipe and replaced wholesale on every edit, so the ID is only
	// stable until the next edit of the owning recipe.
	Ingredient struct {
		ID       int64
		RecipeID int64
		Name     string
		Amount   float64
		Unit     Unit
		Category Category
	}

	// Recipe is a stored recipe without its ingredient rows.
	Recipe struct {
		ID          int64
		MealType    MealType
		Name        string
		Preparation string
	}

	// RecipeDetail is a recipe together with its ingredients.
	RecipeDetail struct {
		Recipe      Recipe
		Ingredients []Ingredient
	}

	// NewIngredient carries one ingredient row of a create/edit submission.
	NewIngredient struct {
		Name     string
		Amount   float64
		Unit     Unit
		Category Category
	}

	// NewRecipe carries a full create/edit submission. Edits must resubmit
	// the complete ingredient list; the stored rows are replaced, not diffed.
	NewRecipe struct {
		MealType    MealType
		Name        string
		Preparation string
		Ingredients []NewIngredient
	}

	// AdditionalItem is an ad-hoc shopping entry not tied to any recipe.
	AdditionalItem struct {
		ID     int64
		Name   string
		Amount float64
		Unit   Unit
	}
)

func (m MealType) Valid() bool {
	for _, t := range MealTypes {
		if m == t {
			return true
		}
	}
	return false
}

func (u Unit) Valid() bool {
	for _, v := range Units {
		if u == v {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Rank returns the display position of the category, or len(Categories)
// for unknown values so they sort last.
func (c Category) Rank() int {
	for i, v := range Categories {
		if c == v {
			return i
		}
	}
	return len(Categories)
}

func (i NewIngredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("empty ingredient name")
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !i.Unit.Valid() {
		return ErrInvalidUnit
	}
	if !i.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (r NewRecipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("recipe name too long (max 200 characters)")
	}
	if !r.MealType.Valid() {
		return ErrInvalidMealType
	}
	if strings.TrimSpace(r.Preparation) == "" {
		return ErrEmptyPreparation
	}
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	for _, ing := range r.Ingredients {
		if err := ing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PreparationSteps splits the newline-delimited preparation text into
// trimmed, non-empty steps for numbered display.
func (r Recipe) PreparationSteps() []string {
	var steps []string
	for _, line := range strings.Split(r.Preparation, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
