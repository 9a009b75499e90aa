// Package http provides the web server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: method guards, form parsing, and the ingredient-row form layout
// shared by the create and edit pages.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mealplan/internal/core"
)

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for GET-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// ParseID extracts a positive integer id from the given values.
func ParseID(values url.Values, key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(values.Get(key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseIDList extracts all positive integer values for the given key,
// skipping malformed entries.
func ParseIDList(values url.Values, key string) []int64 {
	raw := values[key]
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ParseRecipeForm builds a recipe submission from the form layout used by
// the create and edit pages: scalar fields plus parallel ingredient arrays
// ing_name, ing_amount, ing_unit, ing_category. Rows whose every field is
// blank are skipped so unused blank rows don't fail validation.
func ParseRecipeForm(form url.Values) (core.NewRecipe, error) {
	nr := core.NewRecipe{
		MealType:    core.MealType(strings.TrimSpace(form.Get("meal_type"))),
		Name:        sanitizeInput(form.Get("name")),
		Preparation: sanitizeInput(form.Get("preparation")),
	}

	names := form["ing_name"]
	amounts := form["ing_amount"]
	units := form["ing_unit"]
	categories := form["ing_category"]

	for i := range names {
		name := sanitizeInput(names[i])
		amountStr := strings.TrimSpace(valueAt(amounts, i))
		if name == "" && amountStr == "" {
			continue
		}
		amount, err := core.ParseAmount(amountStr)
		if err != nil {
			return core.NewRecipe{}, core.ErrInvalidAmount
		}
		nr.Ingredients = append(nr.Ingredients, core.NewIngredient{
			Name:     name,
			Amount:   amount,
			Unit:     core.Unit(strings.TrimSpace(valueAt(units, i))),
			Category: core.Category(strings.TrimSpace(valueAt(categories, i))),
		})
	}

	return nr, nil
}

func valueAt(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

// sanitizeInput removes control characters (keeping tab, newline, carriage
// return) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
