// Package services orchestrates recipe and planning operations across
// SQLite and AMQP. SQLite is the source of truth; broker publishes are
// best-effort hints for the export worker.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"mealplan/internal/amqp"
	"mealplan/internal/core"
	"mealplan/internal/storage"
)

// RecipeService owns the recipe lifecycle.
type RecipeService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewRecipeService(storage *storage.Repository, amqpClient *amqp.Client) *RecipeService {
	return &RecipeService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateRecipe validates and saves a recipe locally, then publishes a sync
// message. A broker failure never fails the request.
func (s *RecipeService) CreateRecipe(ctx context.Context, nr core.NewRecipe) (int64, error) {
	if err := nr.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateRecipe(ctx, nr)
	if err != nil {
		return 0, fmt.Errorf("save recipe: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}

	return id, nil
}

// EditRecipe validates and applies a full edit, then publishes a sync
// message carrying the bumped version.
func (s *RecipeService) EditRecipe(ctx context.Context, id int64, nr core.NewRecipe) error {
	if err := nr.Validate(); err != nil {
		return err
	}

	version, err := s.storage.EditRecipe(ctx, id, nr)
	if err != nil {
		return err
	}

	if err := s.publishSyncMessage(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}

	return nil
}

// DeleteRecipe removes a recipe locally and publishes a delete message so
// the worker can drop the exported row. Deleting an unknown id is a no-op.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id int64) error {
	// Capture the name before the row disappears; the export row is keyed
	// by it.
	var name string
	if detail, err := s.storage.GetRecipeDetail(ctx, id); err == nil {
		name = detail.Recipe.Name
	}

	if err := s.storage.DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}

	if name != "" {
		if err := s.publishDeleteMessage(ctx, id, name); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"id", id, "error", err)
		}
	}

	return nil
}

// Ping reports whether the backing database is reachable.
func (s *RecipeService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// ListRecipes returns all recipes for display.
func (s *RecipeService) ListRecipes(ctx context.Context) ([]core.Recipe, error) {
	return s.storage.ListRecipes(ctx)
}

// GetRecipeDetail returns a recipe with its ingredients.
func (s *RecipeService) GetRecipeDetail(ctx context.Context, id int64) (core.RecipeDetail, error) {
	return s.storage.GetRecipeDetail(ctx, id)
}

// RecipesByMealType groups all recipes by meal type in display order,
// skipping meal types with no recipes.
func (s *RecipeService) RecipesByMealType(ctx context.Context) ([]core.MealGroup, error) {
	recipes, err := s.storage.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	return core.GroupRecipesByMealType(recipes), nil
}

func (s *RecipeService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishRecipeSync(ctx, id, version)
}

func (s *RecipeService) publishDeleteMessage(ctx context.Context, id int64, name string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishRecipeDelete(ctx, id, name)
}

// Close closes both storage and AMQP connections.
func (s *RecipeService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close recipe service: %v", errs)
	}

	return nil
}
