package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP message Type property.
const (
	TypeRecipeSync   = "recipe.sync"
	TypeRecipeDelete = "recipe.delete"
)

// RecipeSyncMessage announces that a recipe was created or edited.
// It carries only the ID and version, the worker fetches the full
// recipe from the database.
type RecipeSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecipeSyncMessage(id, version int64) *RecipeSyncMessage {
	return &RecipeSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *RecipeSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecipeSyncMessageFromJSON(data []byte) (*RecipeSyncMessage, error) {
	var msg RecipeSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecipeDeleteMessage announces that a recipe was removed. The database row
// is already gone when the worker sees this, so the message carries the name
// needed to locate the exported row.
type RecipeDeleteMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecipeDeleteMessage(id int64, name string) *RecipeDeleteMessage {
	return &RecipeDeleteMessage{
		ID:        id,
		Name:      name,
		Timestamp: time.Now(),
	}
}

func (m *RecipeDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecipeDeleteMessageFromJSON(data []byte) (*RecipeDeleteMessage, error) {
	var msg RecipeDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
