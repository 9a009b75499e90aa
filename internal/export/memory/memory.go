// Package memory is an in-process export backend used for tests and for
// running without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mealplan/internal/core"
)

type Store struct {
	mu      sync.Mutex
	recipes map[string]core.RecipeDetail
}

func New() *Store {
	return &Store{recipes: make(map[string]core.RecipeDetail)}
}

// UpsertRecipe stores the recipe keyed by name and returns a synthetic row
// reference.
func (s *Store) UpsertRecipe(_ context.Context, r core.RecipeDetail) (string, error) {
	if r.Recipe.Name == "" {
		return "", fmt.Errorf("recipe name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.Recipe.Name] = r
	return fmt.Sprintf("mem:%s", r.Recipe.Name), nil
}

func (s *Store) DeleteRecipe(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recipes, name)
	return nil
}

// Get returns the stored recipe, if any.
func (s *Store) Get(name string) (core.RecipeDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[name]
	return r, ok
}

// Len returns the number of stored recipes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}
