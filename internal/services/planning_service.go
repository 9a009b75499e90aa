package services

import (
	"context"
	"fmt"
	"strings"

	"mealplan/internal/core"
	"mealplan/internal/storage"
)

// PlanningService owns the weekly selection, additional items and the
// derived shopping list. All state lives in SQLite.
type PlanningService struct {
	storage *storage.Repository
}

func NewPlanningService(storage *storage.Repository) *PlanningService {
	return &PlanningService{storage: storage}
}

// ReplaceSelection swaps the whole selection for the given recipe ids.
// An empty slice clears it.
func (s *PlanningService) ReplaceSelection(ctx context.Context, ids []int64) error {
	return s.storage.ReplaceSelection(ctx, ids)
}

// SelectedRecipes returns the recipes in the current selection.
func (s *PlanningService) SelectedRecipes(ctx context.Context) ([]core.Recipe, error) {
	return s.storage.ListSelectedRecipes(ctx)
}

// AddItem appends an ad-hoc shopping entry. Blank names are rejected,
// duplicates are kept as separate rows and counted on the list.
func (s *PlanningService) AddItem(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("additional item: %w", core.ErrEmptyName)
	}
	return s.storage.AddAdditionalItem(ctx, name)
}

// AdditionalItems returns the raw additional item rows.
func (s *PlanningService) AdditionalItems(ctx context.Context) ([]core.AdditionalItem, error) {
	return s.storage.ListAdditionalItems(ctx)
}

// ShoppingList aggregates the selection and additional items into
// per-category groups in the fixed display order.
func (s *PlanningService) ShoppingList(ctx context.Context) ([]core.ShoppingGroup, error) {
	items, err := s.storage.ShoppingList(ctx)
	if err != nil {
		return nil, err
	}
	return core.GroupShoppingItems(items), nil
}

// Reset clears the selection and all additional items in one transaction.
func (s *PlanningService) Reset(ctx context.Context) error {
	return s.storage.ResetPlanning(ctx)
}
