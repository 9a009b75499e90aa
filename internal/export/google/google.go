// Package google mirrors recipes to a Google Sheet using a service account.
// The sheet acts as an off-device backup of the recipe book, one row per
// recipe keyed by name.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mealplan/internal/core"
	ports "mealplan/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.RecipeWriter  = (*Client)(nil)
	_ ports.RecipeDeleter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Recipes").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Recipes"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertRecipe writes the recipe to its row in the sheet, overwriting a
// previous export with the same name or appending a new row.
func (c *Client) UpsertRecipe(ctx context.Context, r core.RecipeDetail) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, err := c.findRowByName(ctx, r.Recipe.Name)
	if err != nil {
		return "", err
	}
	if row == 0 {
		next, err := c.nextFreeRow(ctx)
		if err != nil {
			return "", err
		}
		row = next
	}

	rng := fmt.Sprintf("%s!A%d:D%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		r.Recipe.Name,
		string(r.Recipe.MealType),
		r.Recipe.Preparation,
		formatIngredients(r.Ingredients),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update row in sheet %s: %w", c.sheetName, err)
	}

	return rng, nil
}

// DeleteRecipe clears the row holding the named recipe. Missing rows are
// treated as already deleted.
func (c *Client) DeleteRecipe(ctx context.Context, name string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRowByName(ctx, name)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:D%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row in sheet %s: %w", c.sheetName, err)
	}
	return nil
}

// findRowByName returns the 1-based row holding the named recipe, or 0 when
// no row matches.
func (c *Client) findRowByName(ctx context.Context, name string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read names from sheet %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if strings.EqualFold(v, strings.TrimSpace(name)) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// nextFreeRow returns the first empty 1-based row, reusing gaps left by
// cleared rows.
func (c *Client) nextFreeRow(ctx context.Context) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read sheet dimensions for %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 || strings.TrimSpace(fmt.Sprint(row[0])) == "" {
			return i + 1, nil
		}
	}
	return len(resp.Values) + 1, nil
}

// formatIngredients renders the ingredient lines into a single cell, one
// "amount unit name (category)" entry per line.
func formatIngredients(ings []core.Ingredient) string {
	lines := make([]string, 0, len(ings))
	for _, ing := range ings {
		lines = append(lines, fmt.Sprintf("%s %s %s (%s)",
			core.FormatAmount(ing.Amount), ing.Unit, ing.Name, ing.Category))
	}
	return strings.Join(lines, "\n")
}
