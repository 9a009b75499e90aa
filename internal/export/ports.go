// Package export defines the outbound ports for mirroring recipes to an
// external backup destination.
package export

import (
	"context"

	"mealplan/internal/core"
)

// Ports for outbound adapters.
type (
	// RecipeWriter mirrors a recipe to the export destination, replacing any
	// previously exported version.
	RecipeWriter interface {
		UpsertRecipe(ctx context.Context, r core.RecipeDetail) (rowRef string, err error)
	}

	// RecipeDeleter removes an exported recipe by name. Deleting a recipe
	// that was never exported is not an error.
	RecipeDeleter interface {
		DeleteRecipe(ctx context.Context, name string) error
	}
)
