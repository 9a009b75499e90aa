package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"mealplan/internal/core"
)

// handleIndex renders the recipe overview grouped by meal type, with the
// current selection and additional items.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	groups, err := s.getRecipeGroups(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Recipe list error", "error", err)
		http.Error(w, "failed to load recipes", http.StatusInternalServerError)
		return
	}

	// Optional meal-type filter; unknown values fall back to showing all.
	filter := core.MealType(r.URL.Query().Get("meal_type"))
	if filter != "" && filter.Valid() {
		filtered := make([]core.MealGroup, 0, 1)
		for _, g := range groups {
			if g.MealType == filter {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	} else {
		filter = ""
	}

	selected, err := s.planning.SelectedRecipes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Selection list error", "error", err)
		http.Error(w, "failed to load selection", http.StatusInternalServerError)
		return
	}
	items, err := s.planning.AdditionalItems(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Additional items error", "error", err)
		http.Error(w, "failed to load items", http.StatusInternalServerError)
		return
	}

	selectedIDs := make(map[int64]bool, len(selected))
	for _, rec := range selected {
		selectedIDs[rec.ID] = true
	}

	data := struct {
		Groups      []core.MealGroup
		MealTypes   []core.MealType
		Filter      core.MealType
		SelectedIDs map[int64]bool
		Items       []core.AdditionalItem
	}{
		Groups:      groups,
		MealTypes:   core.MealTypes,
		Filter:      filter,
		SelectedIDs: selectedIDs,
		Items:       items,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleRecipeDetail renders the recipe detail partial with numbered steps.
func (s *Server) handleRecipeDetail(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := ParseID(r.URL.Query(), "id")
	if !ok {
		BadRequestError("Missing or invalid recipe id").Write(w)
		return
	}

	detail, err := s.recipes.GetRecipeDetail(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("Recipe not found").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Recipe detail error", "error", err, "id", id)
		InternalServerError("Failed to load recipe").Write(w)
		return
	}

	data := struct {
		Recipe      core.Recipe
		Steps       []string
		Ingredients []core.Ingredient
	}{
		Recipe:      detail.Recipe,
		Steps:       detail.Recipe.PreparationSteps(),
		Ingredients: detail.Ingredients,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "recipe_detail.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "recipe_detail.html", "id", id)
		InternalServerError("Failed to render recipe").Write(w)
	}
}

// handleNewRecipeForm renders the create form with the fixed vocabularies.
func (s *Server) handleNewRecipeForm(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.renderRecipeForm(w, r, "recipe_form.html", core.RecipeDetail{})
}

// handleCreateRecipe validates and stores a new recipe.
func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	if !s.allowMutation(r) {
		UnauthorizedError("Wrong password").Write(w)
		return
	}

	nr, err := ParseRecipeForm(r.Form)
	if err != nil {
		UnprocessableEntityError("Invalid ingredient amount").Write(w)
		return
	}
	if err := nr.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id, err := s.recipes.CreateRecipe(r.Context(), nr)
	if err != nil {
		s.writeRecipeError(w, r, err, "Recipe create error")
		return
	}

	s.invalidateRecipes()
	NewHTMXResponse().
		TriggerRecipeCreated(id).
		TriggerSuccessNotification("Recipe saved").
		BodyHTML(`<div class="success">Saved ` + template.HTMLEscapeString(nr.Name) + `</div>`).
		Write(w)
}

// handleEditRecipe serves the edit form on GET and applies the edit on POST.
// Edits replace the full ingredient list.
func (s *Server) handleEditRecipe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := ParseID(r.URL.Query(), "id")
		if !ok {
			BadRequestError("Missing or invalid recipe id").Write(w)
			return
		}
		detail, err := s.recipes.GetRecipeDetail(r.Context(), id)
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Recipe not found").Write(w)
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Recipe detail error", "error", err, "id", id)
			InternalServerError("Failed to load recipe").Write(w)
			return
		}
		s.renderRecipeForm(w, r, "recipe_edit.html", detail)

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		if !s.allowMutation(r) {
			UnauthorizedError("Wrong password").Write(w)
			return
		}
		id, ok := ParseID(r.Form, "id")
		if !ok {
			BadRequestError("Missing or invalid recipe id").Write(w)
			return
		}
		nr, err := ParseRecipeForm(r.Form)
		if err != nil {
			UnprocessableEntityError("Invalid ingredient amount").Write(w)
			return
		}
		if err := nr.Validate(); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		if err := s.recipes.EditRecipe(r.Context(), id, nr); err != nil {
			s.writeRecipeError(w, r, err, "Recipe edit error")
			return
		}
		s.invalidateRecipes()
		NewHTMXResponse().
			TriggerRecipeUpdated(id).
			TriggerSuccessNotification("Recipe updated").
			BodyHTML(`<div class="success">Updated ` + template.HTMLEscapeString(nr.Name) + `</div>`).
			Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleDeleteRecipe removes a recipe. Deleting an already-gone recipe
// still succeeds.
func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	if !s.allowMutation(r) {
		UnauthorizedError("Wrong password").Write(w)
		return
	}
	id, ok := ParseID(r.Form, "id")
	if !ok {
		BadRequestError("Missing or invalid recipe id").Write(w)
		return
	}

	if err := s.recipes.DeleteRecipe(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Recipe delete error", "error", err, "id", id)
		InternalServerError("Failed to delete recipe").Write(w)
		return
	}

	s.invalidateRecipes()
	NewHTMXResponse().
		TriggerRecipeDeleted(id).
		TriggerSuccessNotification("Recipe deleted").
		BodyHTML(`<div class="success">Recipe deleted</div>`).
		Write(w)
}

// handleSelection replaces the selection with the submitted recipe ids.
// Submitting none clears it.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ids := ParseIDList(r.Form, "recipe_id")
	if err := s.planning.ReplaceSelection(r.Context(), ids); err != nil {
		slog.ErrorContext(r.Context(), "Selection update error", "error", err, "count", len(ids))
		InternalServerError("Failed to update selection").Write(w)
		return
	}

	s.invalidateShopping()
	NewHTMXResponse().
		TriggerSelectionUpdated(len(ids)).
		TriggerSuccessNotification("Selection updated").
		BodyHTML(`<div class="success">Selection updated</div>`).
		Write(w)
}

// handleSelectionReset clears the selection and all additional items.
func (s *Server) handleSelectionReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if err := s.planning.Reset(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Planning reset error", "error", err)
		InternalServerError("Failed to reset planning").Write(w)
		return
	}

	s.invalidateShopping()
	NewHTMXResponse().
		TriggerPlanningReset().
		TriggerSuccessNotification("Planning cleared").
		BodyHTML(`<div class="success">Planning cleared</div>`).
		Write(w)
}

// handleAddItem appends an ad-hoc shopping entry.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if _, err := s.planning.AddItem(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrEmptyName) {
			UnprocessableEntityError("Item name must not be empty").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Add item error", "error", err)
		InternalServerError("Failed to add item").Write(w)
		return
	}

	s.invalidateShopping()
	NewHTMXResponse().
		TriggerItemAdded().
		TriggerSuccessNotification("Item added").
		BodyHTML(`<div class="success">Added ` + template.HTMLEscapeString(name) + `</div>`).
		Write(w)
}

// handleShoppingPage renders the full shopping list page.
func (s *Server) handleShoppingPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	groups, err := s.getShoppingGroups(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Shopping list error", "error", err)
		http.Error(w, "failed to load shopping list", http.StatusInternalServerError)
		return
	}
	selected, err := s.planning.SelectedRecipes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Selection list error", "error", err)
		http.Error(w, "failed to load selection", http.StatusInternalServerError)
		return
	}

	data := struct {
		Groups   []core.ShoppingGroup
		Selected []core.Recipe
	}{Groups: groups, Selected: selected}

	if err := s.templates.ExecuteTemplate(w, "shopping.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "shopping.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleShoppingPartial renders the shopping list fragment for HTMX swaps.
func (s *Server) handleShoppingPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	groups, err := s.getShoppingGroups(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Shopping list error", "error", err)
		_, _ = w.Write([]byte(`<section id="shopping-list"><div class="placeholder">Failed to load shopping list</div></section>`))
		return
	}

	data := struct {
		Groups []core.ShoppingGroup
	}{Groups: groups}

	if err := s.templates.ExecuteTemplate(w, "shopping_list.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "shopping_list.html")
		_, _ = w.Write([]byte(`<section id="shopping-list"><div class="placeholder">Failed to render shopping list</div></section>`))
	}
}

// renderRecipeForm renders the create or edit form with the fixed
// vocabularies and, for edits, the current recipe.
func (s *Server) renderRecipeForm(w http.ResponseWriter, r *http.Request, tmpl string, detail core.RecipeDetail) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		MealTypes  []core.MealType
		Units      []core.Unit
		Categories []core.Category
		Detail     core.RecipeDetail
	}{
		MealTypes:  core.MealTypes,
		Units:      core.Units,
		Categories: core.Categories,
		Detail:     detail,
	}

	if err := s.templates.ExecuteTemplate(w, tmpl, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", tmpl)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeRecipeError maps domain errors from create/edit to HTTP responses.
func (s *Server) writeRecipeError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, core.ErrDuplicateName):
		ConflictError("A recipe with this name already exists").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Recipe not found").Write(w)
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyPreparation),
		errors.Is(err, core.ErrNoIngredients),
		errors.Is(err, core.ErrInvalidMealType),
		errors.Is(err, core.ErrInvalidUnit),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidAmount):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		slog.ErrorContext(r.Context(), logMsg, "error", err)
		InternalServerError("Failed to save recipe").Write(w)
	}
}
