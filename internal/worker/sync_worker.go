// Package worker mirrors recipes from SQLite to the export backend. It is
// driven by AMQP messages, with a periodic sweep of pending rows as backup
// in case messages are lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mealplan/internal/amqp"
	"mealplan/internal/core"
	"mealplan/internal/export"
	"mealplan/internal/storage"
)

// SyncWorker handles synchronization of recipes from SQLite to the export
// destination.
type SyncWorker struct {
	storage   *storage.Repository
	writer    export.RecipeWriter
	deleter   export.RecipeDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.Repository, writer export.RecipeWriter, deleter export.RecipeDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single recipe sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecipeSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	detail, err := w.storage.GetRecipeDetail(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and delivery; the delete message will
		// clean up the export.
		slog.WarnContext(ctx, "Recipe gone, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get recipe from storage: %w", err)
	}

	if err := w.exportRecipe(ctx, msg.ID, detail); err != nil {
		return fmt.Errorf("export recipe: %w", err)
	}

	return nil
}

// HandleDeleteMessage processes a single recipe delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.RecipeDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"name", msg.Name)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No recipe deleter configured, skipping export deletion",
			"id", msg.ID)
		return nil
	}

	if err := w.deleter.DeleteRecipe(ctx, msg.Name); err != nil {
		return fmt.Errorf("delete exported recipe: %w", err)
	}

	slog.InfoContext(ctx, "Removed exported recipe", "id", msg.ID, "name", msg.Name)
	return nil
}

// ProcessPendingRecipes exports any recipes that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingRecipes(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains pending recipes at worker startup with a larger
// batch, recovering from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.storage.PendingSyncRecipes(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending recipes: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending recipes", "count", len(pending))

	for _, p := range pending {
		detail, err := w.storage.GetRecipeDetail(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get recipe", "id", p.ID, "error", err)
			if err := w.storage.MarkRecipeSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportRecipe(ctx, p.ID, detail); err != nil {
			slog.ErrorContext(ctx, "Failed to export recipe", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

func (w *SyncWorker) exportRecipe(ctx context.Context, id int64, detail core.RecipeDetail) error {
	ref, err := w.writer.UpsertRecipe(ctx, detail)
	if err != nil {
		if markErr := w.storage.MarkRecipeSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("upsert recipe: %w", err)
	}

	if err := w.storage.MarkRecipeSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		// The export itself worked, don't fail the message.
	}

	slog.InfoContext(ctx, "Recipe exported",
		"id", id,
		"export_ref", ref,
		"name", detail.Recipe.Name)

	return nil
}
