package core

import (
	"errors"
	"testing"
)

func validRecipe() NewRecipe {
	return NewRecipe{
		MealType:    Dinner,
		Name:        "Pancakes",
		Preparation: "Mix everything\nFry in butter",
		Ingredients: []NewIngredient{
			{Name: "Flour", Amount: 200, Unit: Gram, Category: Bread},
			{Name: "Egg", Amount: 2, Unit: Piece, Category: DairyEggs},
		},
	}
}

func TestNewRecipeValidate(t *testing.T) {
	if err := validRecipe().Validate(); err != nil {
		t.Fatalf("valid recipe rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*NewRecipe)
		wantErr error
	}{
		{"empty name", func(r *NewRecipe) { r.Name = "  " }, ErrEmptyName},
		{"bad meal type", func(r *NewRecipe) { r.MealType = "Brunch" }, ErrInvalidMealType},
		{"empty preparation", func(r *NewRecipe) { r.Preparation = "" }, ErrEmptyPreparation},
		{"no ingredients", func(r *NewRecipe) { r.Ingredients = nil }, ErrNoIngredients},
		{"zero amount", func(r *NewRecipe) { r.Ingredients[0].Amount = 0 }, ErrInvalidAmount},
		{"negative amount", func(r *NewRecipe) { r.Ingredients[0].Amount = -5 }, ErrInvalidAmount},
		{"bad unit", func(r *NewRecipe) { r.Ingredients[0].Unit = "cup" }, ErrInvalidUnit},
		{"bad category", func(r *NewRecipe) { r.Ingredients[0].Category = "Sweets" }, ErrInvalidCategory},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := validRecipe()
			c.mutate(&r)
			err := r.Validate()
			if err == nil {
				t.Fatalf("expected error %v, got nil", c.wantErr)
			}
			if c.wantErr != nil && !errors.Is(err, c.wantErr) {
				t.Fatalf("expected %v, got %v", c.wantErr, err)
			}
		})
	}
}

func TestVocabularies(t *testing.T) {
	if len(MealTypes) != 5 {
		t.Fatalf("expected 5 meal types, got %d", len(MealTypes))
	}
	if len(Units) != 5 {
		t.Fatalf("expected 5 units, got %d", len(Units))
	}
	if len(Categories) != 10 {
		t.Fatalf("expected 10 categories, got %d", len(Categories))
	}
	if Categories[0] != Produce || Categories[len(Categories)-1] != Other {
		t.Fatalf("category display order changed: %v", Categories)
	}
	if Category("Sweets").Valid() {
		t.Fatal("unknown category accepted")
	}
	if !Bread.Valid() || !Piece.Valid() || !Baking.Valid() {
		t.Fatal("vocabulary member rejected")
	}
}

func TestCategoryRank(t *testing.T) {
	if Produce.Rank() != 0 {
		t.Fatalf("Produce rank = %d", Produce.Rank())
	}
	if Other.Rank() != 9 {
		t.Fatalf("Other rank = %d", Other.Rank())
	}
	// Bread & Baked Goods sorts before Other per the fixed order even though
	// "B" < "O" happens to agree alphabetically; Frozen before Other does not.
	if Frozen.Rank() >= Other.Rank() {
		t.Fatal("Frozen should rank before Other")
	}
	if Category("Unknown").Rank() != len(Categories) {
		t.Fatal("unknown categories must sort last")
	}
}

func TestPreparationSteps(t *testing.T) {
	r := Recipe{Preparation: "Mix everything\n\n  Fry in butter  \n"}
	steps := r.PreparationSteps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d: %v", len(steps), steps)
	}
	if steps[0] != "Mix everything" || steps[1] != "Fry in butter" {
		t.Fatalf("unexpected steps: %v", steps)
	}
}
