package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mealplan/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "mealplan.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func pancakes() core.NewRecipe {
	return core.NewRecipe{
		MealType:    core.Breakfast,
		Name:        "Pancakes",
		Preparation: "Mix everything\nFry in butter",
		Ingredients: []core.NewIngredient{
			{Name: "Flour", Amount: 200, Unit: core.Gram, Category: core.Bread},
			{Name: "Egg", Amount: 2, Unit: core.Piece, Category: core.DairyEggs},
		},
	}
}

func (r *Repository) mustCreate(t *testing.T, nr core.NewRecipe) int64 {
	t.Helper()
	id, err := r.CreateRecipe(context.Background(), nr)
	if err != nil {
		t.Fatalf("CreateRecipe(%s): %v", nr.Name, err)
	}
	return id
}

func TestCreateAndGetRecipe(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())

	detail, err := repo.GetRecipeDetail(ctx, id)
	if err != nil {
		t.Fatalf("GetRecipeDetail: %v", err)
	}
	if detail.Recipe.Name != "Pancakes" || detail.Recipe.MealType != core.Breakfast {
		t.Fatalf("unexpected recipe: %+v", detail.Recipe)
	}
	if len(detail.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(detail.Ingredients))
	}
	if detail.Ingredients[0].Name != "Flour" || detail.Ingredients[0].Amount != 200 {
		t.Fatalf("unexpected first ingredient: %+v", detail.Ingredients[0])
	}
}

func TestGetRecipeDetailNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetRecipeDetail(context.Background(), 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateNameLeavesNoPartialRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())

	// Second create under the same name must fail with the duplicate error
	// and leave the first recipe's ingredient rows untouched.
	dup := pancakes()
	dup.Ingredients = append(dup.Ingredients, core.NewIngredient{
		Name: "Milk", Amount: 300, Unit: core.Milliliter, Category: core.DairyEggs,
	})
	if _, err := repo.CreateRecipe(ctx, dup); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	detail, err := repo.GetRecipeDetail(ctx, id)
	if err != nil {
		t.Fatalf("GetRecipeDetail: %v", err)
	}
	if len(detail.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients after failed duplicate, got %d", len(detail.Ingredients))
	}

	recipes, err := repo.ListRecipes(ctx)
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}
}

func TestEditReplacesIngredientsWholesale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())

	edited := core.NewRecipe{
		MealType:    core.Breakfast,
		Name:        "Pancakes",
		Preparation: "Mix everything\nFry in butter",
		Ingredients: []core.NewIngredient{
			{Name: "Milk", Amount: 300, Unit: core.Milliliter, Category: core.DairyEggs},
		},
	}
	version, err := repo.EditRecipe(ctx, id, edited)
	if err != nil {
		t.Fatalf("EditRecipe: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d after first edit, want 2", version)
	}

	detail, err := repo.GetRecipeDetail(ctx, id)
	if err != nil {
		t.Fatalf("GetRecipeDetail: %v", err)
	}
	if len(detail.Ingredients) != 1 {
		t.Fatalf("expected exactly 1 ingredient after edit, got %d", len(detail.Ingredients))
	}
	if detail.Ingredients[0].Name != "Milk" {
		t.Fatalf("old rows survived the edit: %+v", detail.Ingredients)
	}
}

func TestEditNotFoundAndDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.EditRecipe(ctx, 42, pancakes()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	repo.mustCreate(t, pancakes())
	other := pancakes()
	other.Name = "Waffles"
	otherID := repo.mustCreate(t, other)

	// Renaming Waffles to Pancakes collides with the existing recipe.
	renamed := pancakes()
	if _, err := repo.EditRecipe(ctx, otherID, renamed); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	// Keeping its own name is fine.
	other.Preparation = "Updated steps"
	if _, err := repo.EditRecipe(ctx, otherID, other); err != nil {
		t.Fatalf("EditRecipe keeping own name: %v", err)
	}
}

func TestDeleteRecipeCascadesAndIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())
	if err := repo.ReplaceSelection(ctx, []int64{id}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}

	if err := repo.DeleteRecipe(ctx, id); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if _, err := repo.GetRecipeDetail(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("recipe still readable after delete: %v", err)
	}
	selected, err := repo.ListSelectedRecipes(ctx)
	if err != nil {
		t.Fatalf("ListSelectedRecipes: %v", err)
	}
	if len(selected) != 0 {
		t.Fatalf("selection entry survived the delete: %v", selected)
	}

	// Shopping list must also be empty: no orphaned ingredient rows.
	list, err := repo.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("orphaned ingredients in shopping list: %v", list)
	}

	// Second delete of the same id is a no-op, not an error.
	if err := repo.DeleteRecipe(ctx, id); err != nil {
		t.Fatalf("repeated DeleteRecipe errored: %v", err)
	}
}

func TestReplaceSelection(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := repo.mustCreate(t, pancakes())
	other := pancakes()
	other.Name = "Soup"
	other.MealType = core.Lunch
	b := repo.mustCreate(t, other)

	if err := repo.ReplaceSelection(ctx, []int64{a, b}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}
	selected, err := repo.ListSelectedRecipes(ctx)
	if err != nil {
		t.Fatalf("ListSelectedRecipes: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}

	if err := repo.ReplaceSelection(ctx, []int64{b}); err != nil {
		t.Fatalf("ReplaceSelection shrink: %v", err)
	}
	selected, _ = repo.ListSelectedRecipes(ctx)
	if len(selected) != 1 || selected[0].ID != b {
		t.Fatalf("expected only recipe %d selected, got %v", b, selected)
	}

	if err := repo.ReplaceSelection(ctx, nil); err != nil {
		t.Fatalf("ReplaceSelection clear: %v", err)
	}
	selected, _ = repo.ListSelectedRecipes(ctx)
	if len(selected) != 0 {
		t.Fatalf("expected empty selection, got %v", selected)
	}
}

func TestReplaceSelectionAtomicOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := repo.mustCreate(t, pancakes())
	if err := repo.ReplaceSelection(ctx, []int64{a}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}

	// A foreign-key violation mid-insert must roll the whole replace back,
	// leaving the previous selection intact.
	if err := repo.ReplaceSelection(ctx, []int64{a, 9999}); err == nil {
		t.Fatal("expected foreign key failure for unknown recipe id")
	}
	selected, err := repo.ListSelectedRecipes(ctx)
	if err != nil {
		t.Fatalf("ListSelectedRecipes: %v", err)
	}
	if len(selected) != 1 || selected[0].ID != a {
		t.Fatalf("selection not restored after failed replace: %v", selected)
	}
}

func TestShoppingListAggregation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := core.NewRecipe{
		MealType: core.Breakfast, Name: "A", Preparation: "x",
		Ingredients: []core.NewIngredient{
			{Name: "Flour", Amount: 200, Unit: core.Gram, Category: core.Bread},
		},
	}
	b := core.NewRecipe{
		MealType: core.Dinner, Name: "B", Preparation: "x",
		Ingredients: []core.NewIngredient{
			{Name: "Flour", Amount: 100, Unit: core.Gram, Category: core.Bread},
		},
	}
	idA := repo.mustCreate(t, a)
	idB := repo.mustCreate(t, b)

	if err := repo.ReplaceSelection(ctx, []int64{idA, idB}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.AddAdditionalItem(ctx, "Milk"); err != nil {
			t.Fatalf("AddAdditionalItem: %v", err)
		}
	}

	list, err := repo.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(list), list)
	}

	// Bread & Baked Goods sorts before Other per the fixed category order.
	if list[0].Name != "Flour" || list[0].Category != core.Bread || list[0].Amount != 300 || list[0].Unit != core.Gram {
		t.Fatalf("unexpected first row: %+v", list[0])
	}
	if list[1].Name != "Milk" || list[1].Category != core.Other || list[1].Amount != 2 || list[1].Unit != core.Piece {
		t.Fatalf("unexpected second row: %+v", list[1])
	}
}

func TestShoppingListExcludesUnselected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.mustCreate(t, pancakes())

	list, err := repo.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("ingredients of unselected recipes leaked into the list: %v", list)
	}
}

func TestEmptyShoppingListIsNotAnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceSelection(ctx, nil); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}
	list, err := repo.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestResetPlanningClearsSelectionAndItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())
	if err := repo.ReplaceSelection(ctx, []int64{id}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}
	if _, err := repo.AddAdditionalItem(ctx, "Batteries"); err != nil {
		t.Fatalf("AddAdditionalItem: %v", err)
	}

	if err := repo.ResetPlanning(ctx); err != nil {
		t.Fatalf("ResetPlanning: %v", err)
	}

	selected, _ := repo.ListSelectedRecipes(ctx)
	if len(selected) != 0 {
		t.Fatalf("selection survived reset: %v", selected)
	}
	items, err := repo.ListAdditionalItems(ctx)
	if err != nil {
		t.Fatalf("ListAdditionalItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("additional items survived reset: %v", items)
	}
}

func TestClearAdditionalItemsLeavesSelectionAlone(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())
	if err := repo.ReplaceSelection(ctx, []int64{id}); err != nil {
		t.Fatalf("ReplaceSelection: %v", err)
	}
	for _, name := range []string{"Milk", "Batteries"} {
		if _, err := repo.AddAdditionalItem(ctx, name); err != nil {
			t.Fatalf("AddAdditionalItem: %v", err)
		}
	}

	if err := repo.ClearAdditionalItems(ctx); err != nil {
		t.Fatalf("ClearAdditionalItems: %v", err)
	}

	items, err := repo.ListAdditionalItems(ctx)
	if err != nil {
		t.Fatalf("ListAdditionalItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("additional items survived clear: %v", items)
	}
	selected, err := repo.ListSelectedRecipes(ctx)
	if err != nil {
		t.Fatalf("ListSelectedRecipes: %v", err)
	}
	if len(selected) != 1 {
		t.Fatalf("selection changed by clearing items: %v", selected)
	}

	// clearing an already-empty table is fine
	if err := repo.ClearAdditionalItems(ctx); err != nil {
		t.Fatalf("repeat clear: %v", err)
	}
}

func TestAdditionalItemsKeepDuplicateRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.AddAdditionalItem(ctx, "Milk"); err != nil {
			t.Fatalf("AddAdditionalItem: %v", err)
		}
	}
	items, err := repo.ListAdditionalItems(ctx)
	if err != nil {
		t.Fatalf("ListAdditionalItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 raw rows, got %d", len(items))
	}

	list, err := repo.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	if len(list) != 1 || list[0].Amount != 3 {
		t.Fatalf("expected one grouped row with count 3, got %v", list)
	}
}

func TestSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := repo.mustCreate(t, pancakes())

	pending, err := repo.PendingSyncRecipes(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncRecipes: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].Version != 1 {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	if err := repo.MarkRecipeSynced(ctx, id); err != nil {
		t.Fatalf("MarkRecipeSynced: %v", err)
	}
	pending, _ = repo.PendingSyncRecipes(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("recipe still pending after sync: %+v", pending)
	}

	// An edit bumps the version and re-queues the recipe.
	nr := pancakes()
	nr.Preparation = "New steps"
	if _, err := repo.EditRecipe(ctx, id, nr); err != nil {
		t.Fatalf("EditRecipe: %v", err)
	}
	pending, _ = repo.PendingSyncRecipes(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("edit did not re-queue with bumped version: %+v", pending)
	}

	if err := repo.MarkRecipeSyncError(ctx, id); err != nil {
		t.Fatalf("MarkRecipeSyncError: %v", err)
	}
	pending, _ = repo.PendingSyncRecipes(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("errored recipe still pending: %+v", pending)
	}
}
