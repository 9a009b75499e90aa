package core

import (
	"sort"
	"strings"
)

// ShoppingItem is one aggregated row of the shopping list: all occurrences
// of an ingredient name with the same unit and category summed over the
// selected recipes, or an additional item counted by occurrence.
type ShoppingItem struct {
	Name     string
	Category Category
	Amount   float64
	Unit     Unit
}

// DisplayAmount renders the aggregated amount through the formatter.
func (s ShoppingItem) DisplayAmount() string {
	return FormatAmount(s.Amount)
}

// DisplayAmount renders the ingredient amount through the formatter.
func (i Ingredient) DisplayAmount() string {
	return FormatAmount(i.Amount)
}

// SortShoppingItems orders the list for display: by the fixed category
// sequence first, then by name alphabetically (case-insensitive) within a
// category. The sort is stable so equal rows keep their aggregation order.
func SortShoppingItems(items []ShoppingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Category.Rank(), items[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

// GroupShoppingItems splits a sorted shopping list into per-category groups,
// keeping the fixed category order. Categories with no items are omitted.
func GroupShoppingItems(items []ShoppingItem) []ShoppingGroup {
	var groups []ShoppingGroup
	for _, cat := range Categories {
		var group ShoppingGroup
		group.Category = cat
		for _, it := range items {
			if it.Category == cat {
				group.Items = append(group.Items, it)
			}
		}
		if len(group.Items) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// ShoppingGroup is the per-category section of the rendered checklist.
type ShoppingGroup struct {
	Category Category
	Items    []ShoppingItem
}

// MealGroup is the per-meal-type section of the recipe overview.
type MealGroup struct {
	MealType MealType
	Recipes  []Recipe
}

// GroupRecipesByMealType splits recipes into per-meal-type groups in the
// fixed display order, alphabetical within each group. Meal types with no
// recipes are omitted.
func GroupRecipesByMealType(recipes []Recipe) []MealGroup {
	var groups []MealGroup
	for _, mt := range MealTypes {
		var group MealGroup
		group.MealType = mt
		for _, r := range recipes {
			if r.MealType == mt {
				group.Recipes = append(group.Recipes, r)
			}
		}
		if len(group.Recipes) > 0 {
			sort.Slice(group.Recipes, func(i, j int) bool {
				return strings.ToLower(group.Recipes[i].Name) < strings.ToLower(group.Recipes[j].Name)
			})
			groups = append(groups, group)
		}
	}
	return groups
}
