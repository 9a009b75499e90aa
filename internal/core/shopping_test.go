package core

import "testing"

func TestSortShoppingItems(t *testing.T) {
	items := []ShoppingItem{
		{Name: "Milk", Category: Other, Amount: 2, Unit: Piece},
		{Name: "Apples", Category: Produce, Amount: 4, Unit: Piece},
		{Name: "Flour", Category: Bread, Amount: 300, Unit: Gram},
		{Name: "bananas", Category: Produce, Amount: 3, Unit: Piece},
		{Name: "Fish sticks", Category: Frozen, Amount: 1, Unit: Piece},
	}
	SortShoppingItems(items)

	want := []string{"Apples", "bananas", "Flour", "Fish sticks", "Milk"}
	for i, name := range want {
		if items[i].Name != name {
			t.Fatalf("position %d: got %q, want %q (full order: %v)", i, items[i].Name, name, items)
		}
	}
}

func TestSortIsByFixedOrderNotAlphabetical(t *testing.T) {
	// Alphabetically "Frozen" < "Produce", but Produce comes first in the
	// fixed display order.
	items := []ShoppingItem{
		{Name: "Peas", Category: Frozen},
		{Name: "Carrots", Category: Produce},
	}
	SortShoppingItems(items)
	if items[0].Category != Produce {
		t.Fatalf("expected Produce first, got %v", items[0].Category)
	}
}

func TestGroupShoppingItems(t *testing.T) {
	items := []ShoppingItem{
		{Name: "Apples", Category: Produce, Amount: 4, Unit: Piece},
		{Name: "Flour", Category: Bread, Amount: 300, Unit: Gram},
		{Name: "Milk", Category: Other, Amount: 2, Unit: Piece},
	}
	SortShoppingItems(items)
	groups := GroupShoppingItems(items)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Category != Produce || groups[1].Category != Bread || groups[2].Category != Other {
		t.Fatalf("group order wrong: %v %v %v", groups[0].Category, groups[1].Category, groups[2].Category)
	}
	if len(groups[1].Items) != 1 || groups[1].Items[0].Name != "Flour" {
		t.Fatalf("Bread group wrong: %+v", groups[1])
	}
}

func TestGroupShoppingItemsEmpty(t *testing.T) {
	if groups := GroupShoppingItems(nil); len(groups) != 0 {
		t.Fatalf("expected no groups for empty list, got %d", len(groups))
	}
}

func TestGroupRecipesByMealType(t *testing.T) {
	recipes := []Recipe{
		{Name: "Stew", MealType: Dinner},
		{Name: "Porridge", MealType: Breakfast},
		{Name: "curry", MealType: Dinner},
	}
	groups := GroupRecipesByMealType(recipes)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].MealType != Breakfast {
		t.Fatalf("expected Breakfast first, got %v", groups[0].MealType)
	}
	if len(groups[1].Recipes) != 2 {
		t.Fatalf("Dinner group has %d recipes, want 2", len(groups[1].Recipes))
	}
	if groups[1].Recipes[0].Name != "curry" {
		t.Fatalf("Dinner group not alphabetical: %v", groups[1].Recipes)
	}
}

func TestShoppingItemDisplayAmount(t *testing.T) {
	it := ShoppingItem{Name: "Flour", Amount: 300, Unit: Gram}
	if it.DisplayAmount() != "300" {
		t.Fatalf("DisplayAmount = %q", it.DisplayAmount())
	}
	it.Amount = 2.5
	if it.DisplayAmount() != "2.5" {
		t.Fatalf("DisplayAmount = %q", it.DisplayAmount())
	}
}
