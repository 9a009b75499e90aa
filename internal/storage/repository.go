// Package storage owns the SQLite schema and every read/write query
// against it. All multi-statement writes run inside a single transaction;
// a failure anywhere rolls the whole operation back.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mealplan/internal/core"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if necessary) the SQLite database at dbPath,
// runs pending migrations and returns a ready repository.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations on a dedicated connection before opening the pool.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// foreign_keys enforces the ingredient/selection cascades; busy_timeout
	// keeps concurrent connections from failing fast with SQLITE_BUSY.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateRecipe inserts the recipe and all its ingredient rows atomically.
// A name collision returns core.ErrDuplicateName and leaves nothing behind.
func (r *Repository) CreateRecipe(ctx context.Context, nr core.NewRecipe) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create recipe: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO recipes (meal_type, name, preparation) VALUES (?, ?, ?)`,
		string(nr.MealType), nr.Name, nr.Preparation)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrDuplicateName
		}
		return 0, fmt.Errorf("insert recipe: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recipe id: %w", err)
	}

	if err := insertIngredients(ctx, tx, id, nr.Ingredients); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create recipe: %w", err)
	}

	slog.InfoContext(ctx, "Recipe created",
		"id", id,
		"name", nr.Name,
		"meal_type", nr.MealType,
		"ingredients", len(nr.Ingredients))

	return id, nil
}

func insertIngredients(ctx context.Context, tx *sql.Tx, recipeID int64, ings []core.NewIngredient) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ingredients (recipe_id, name, amount, unit, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ingredient insert: %w", err)
	}
	defer stmt.Close()

	for _, ing := range ings {
		if _, err := stmt.ExecContext(ctx, recipeID, ing.Name, ing.Amount, string(ing.Unit), string(ing.Category)); err != nil {
			return fmt.Errorf("insert ingredient %q: %w", ing.Name, err)
		}
	}
	return nil
}

// ListRecipes returns all recipes. Ordering is a presentation concern; rows
// come back in whatever order SQLite yields them.
func (r *Repository) ListRecipes(ctx context.Context) ([]core.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, meal_type, name, preparation FROM recipes`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()
	return scanRecipes(rows)
}

// ListSelectedRecipes returns the recipes currently in the selection.
func (r *Repository) ListSelectedRecipes(ctx context.Context) ([]core.Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.meal_type, r.name, r.preparation
		 FROM recipes r JOIN selected_recipes s ON r.id = s.recipe_id`)
	if err != nil {
		return nil, fmt.Errorf("list selected recipes: %w", err)
	}
	defer rows.Close()
	return scanRecipes(rows)
}

func scanRecipes(rows *sql.Rows) ([]core.Recipe, error) {
	var out []core.Recipe
	for rows.Next() {
		var rec core.Recipe
		var mealType string
		if err := rows.Scan(&rec.ID, &mealType, &rec.Name, &rec.Preparation); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		rec.MealType = core.MealType(mealType)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

// GetRecipeDetail returns a recipe with its ingredient rows, or
// core.ErrNotFound.
func (r *Repository) GetRecipeDetail(ctx context.Context, id int64) (core.RecipeDetail, error) {
	var detail core.RecipeDetail
	var mealType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, meal_type, name, preparation FROM recipes WHERE id = ?`, id).
		Scan(&detail.Recipe.ID, &mealType, &detail.Recipe.Name, &detail.Recipe.Preparation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RecipeDetail{}, core.ErrNotFound
		}
		return core.RecipeDetail{}, fmt.Errorf("get recipe %d: %w", id, err)
	}
	detail.Recipe.MealType = core.MealType(mealType)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, name, amount, unit, category FROM ingredients WHERE recipe_id = ? ORDER BY id`, id)
	if err != nil {
		return core.RecipeDetail{}, fmt.Errorf("get ingredients for recipe %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ing core.Ingredient
		var unit, category string
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.Name, &ing.Amount, &unit, &category); err != nil {
			return core.RecipeDetail{}, fmt.Errorf("scan ingredient: %w", err)
		}
		ing.Unit = core.Unit(unit)
		ing.Category = core.Category(category)
		detail.Ingredients = append(detail.Ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return core.RecipeDetail{}, fmt.Errorf("iterate ingredients: %w", err)
	}

	return detail, nil
}

// EditRecipe updates the recipe fields and replaces all ingredient rows
// (delete-then-insert, not a diff) in a single transaction. Returns the new
// version, core.ErrNotFound for an unknown id, and core.ErrDuplicateName
// when the new name collides with a different recipe.
func (r *Repository) EditRecipe(ctx context.Context, id int64, nr core.NewRecipe) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin edit recipe: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recipes
		 SET meal_type = ?, name = ?, preparation = ?,
		     version = version + 1, sync_status = 'pending',
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(nr.MealType), nr.Name, nr.Preparation, id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrDuplicateName
		}
		return 0, fmt.Errorf("update recipe %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("edit recipe rows affected: %w", err)
	}
	if affected == 0 {
		return 0, core.ErrNotFound
	}

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM recipes WHERE id = ?`, id).Scan(&version); err != nil {
		return 0, fmt.Errorf("read recipe version %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear ingredients for recipe %d: %w", id, err)
	}
	if err := insertIngredients(ctx, tx, id, nr.Ingredients); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit edit recipe: %w", err)
	}

	slog.InfoContext(ctx, "Recipe updated",
		"id", id,
		"name", nr.Name,
		"version", version,
		"ingredients", len(nr.Ingredients))

	return version, nil
}

// DeleteRecipe removes the recipe, its ingredients and any selection entry.
// Deleting a recipe that does not exist is not an error.
func (r *Repository) DeleteRecipe(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete recipe: %w", err)
	}
	defer tx.Rollback()

	// Cascades cover these, but deleting explicitly keeps the contract
	// honest even against a database opened without foreign_keys.
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("delete ingredients for recipe %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM selected_recipes WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("delete selection entry for recipe %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recipe %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete recipe: %w", err)
	}

	slog.InfoContext(ctx, "Recipe deleted", "id", id)
	return nil
}

// ReplaceSelection atomically clears the selection and inserts the given
// recipe ids. An empty slice just clears it.
func (r *Repository) ReplaceSelection(ctx context.Context, ids []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace selection: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selected_recipes`); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}

	if len(ids) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO selected_recipes (recipe_id) VALUES (?)`)
		if err != nil {
			return fmt.Errorf("prepare selection insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return fmt.Errorf("insert selection entry %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace selection: %w", err)
	}

	slog.InfoContext(ctx, "Selection replaced", "count", len(ids))
	return nil
}

// AddAdditionalItem appends one ad-hoc shopping entry. Repeated names are
// kept as separate rows; the shopping-list query groups them by count.
func (r *Repository) AddAdditionalItem(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO additional_items (name, amount, unit) VALUES (?, 1, ?)`,
		name, string(core.Piece))
	if err != nil {
		return 0, fmt.Errorf("add additional item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("additional item id: %w", err)
	}
	slog.InfoContext(ctx, "Additional item added", "id", id, "name", name)
	return id, nil
}

// ClearAdditionalItems removes every ad-hoc entry.
func (r *Repository) ClearAdditionalItems(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM additional_items`); err != nil {
		return fmt.Errorf("clear additional items: %w", err)
	}
	return nil
}

// ListAdditionalItems returns the raw ad-hoc entries (ungrouped).
func (r *Repository) ListAdditionalItems(ctx context.Context) ([]core.AdditionalItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, amount, unit FROM additional_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list additional items: %w", err)
	}
	defer rows.Close()

	var out []core.AdditionalItem
	for rows.Next() {
		var it core.AdditionalItem
		var unit string
		if err := rows.Scan(&it.ID, &it.Name, &it.Amount, &unit); err != nil {
			return nil, fmt.Errorf("scan additional item: %w", err)
		}
		it.Unit = core.Unit(unit)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate additional items: %w", err)
	}
	return out, nil
}

// ResetPlanning clears the selection and all additional items together, the
// single "reset selection" user action.
func (r *Repository) ResetPlanning(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset planning: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selected_recipes`); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM additional_items`); err != nil {
		return fmt.Errorf("clear additional items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset planning: %w", err)
	}

	slog.InfoContext(ctx, "Planning reset")
	return nil
}

// ShoppingList aggregates the shopping list: ingredients of selected recipes
// summed by (name, unit, category), plus additional items grouped by name
// with their occurrence count as the amount. The two sets are concatenated
// without cross-deduplication; display ordering is applied in core.
func (r *Repository) ShoppingList(ctx context.Context) ([]core.ShoppingItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.name, i.category, SUM(i.amount) AS total_amount, i.unit
		 FROM ingredients i
		 JOIN selected_recipes s ON i.recipe_id = s.recipe_id
		 GROUP BY i.name, i.unit, i.category

		 UNION ALL

		 SELECT a.name, ? AS category, COUNT(*) AS total_amount, ? AS unit
		 FROM additional_items a
		 GROUP BY a.name`,
		string(core.Other), string(core.Piece))
	if err != nil {
		return nil, fmt.Errorf("shopping list query: %w", err)
	}
	defer rows.Close()

	var items []core.ShoppingItem
	for rows.Next() {
		var it core.ShoppingItem
		var category, unit string
		if err := rows.Scan(&it.Name, &category, &it.Amount, &unit); err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		it.Category = core.Category(category)
		it.Unit = core.Unit(unit)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shopping items: %w", err)
	}

	core.SortShoppingItems(items)
	return items, nil
}

// SyncRecipe is the minimal row the background exporter works with.
type SyncRecipe struct {
	ID        int64
	Version   int64
	Recipe    core.Recipe
	UpdatedAt time.Time
}

// PendingSyncRecipes returns recipes awaiting export, oldest first.
func (r *Repository) PendingSyncRecipes(ctx context.Context, limit int) ([]SyncRecipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, meal_type, name, preparation, updated_at
		 FROM recipes WHERE sync_status = 'pending' ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync recipes: %w", err)
	}
	defer rows.Close()

	var out []SyncRecipe
	for rows.Next() {
		var sr SyncRecipe
		var mealType string
		if err := rows.Scan(&sr.ID, &sr.Version, &mealType, &sr.Recipe.Name, &sr.Recipe.Preparation, &sr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending recipe: %w", err)
		}
		sr.Recipe.ID = sr.ID
		sr.Recipe.MealType = core.MealType(mealType)
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending recipes: %w", err)
	}
	return out, nil
}

// MarkRecipeSynced records a successful export.
func (r *Repository) MarkRecipeSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE recipes SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark recipe synced: %w", err)
	}
	slog.InfoContext(ctx, "Recipe marked as synced", "id", id)
	return nil
}

// MarkRecipeSyncError records a failed export so the periodic sweep can
// surface it without retrying in a tight loop.
func (r *Repository) MarkRecipeSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE recipes SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark recipe sync error: %w", err)
	}
	slog.WarnContext(ctx, "Recipe marked with sync error", "id", id)
	return nil
}
