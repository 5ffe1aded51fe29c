package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source yields a seed document for a user's kitchen state.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

type FileSource struct {
	FilePath string
}

func NewFileSource(filePath string) *FileSource {
	return &FileSource{FilePath: filePath}
}

func (f *FileSource) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}

// Seed is the document shape accepted by SeedStore.
type Seed struct {
	Inventory    []InventoryItem `json:"inventory"`
	ShoppingList ShoppingItems   `json:"shopping_list"`
	Leftovers    []Leftover      `json:"leftovers"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
}

// SeedStore loads a seed document from src and writes it for userID.
func SeedStore(ctx context.Context, src Source, store Store, userID string) error {
	b, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for i := range seed.Inventory {
		seed.Inventory[i].UserID = userID
	}
	if len(seed.Inventory) > 0 {
		if _, err := store.InsertInventory(ctx, seed.Inventory); err != nil {
			return err
		}
	}

	for i := range seed.Leftovers {
		seed.Leftovers[i].UserID = userID
	}
	if len(seed.Leftovers) > 0 {
		if _, err := store.InsertLeftovers(ctx, seed.Leftovers); err != nil {
			return err
		}
	}

	if len(seed.ShoppingList) > 0 {
		if _, err := store.SaveShoppingList(ctx, ShoppingList{UserID: userID, Items: seed.ShoppingList}); err != nil {
			return err
		}
	}

	if len(seed.Preferences) > 0 {
		prefs := DefaultPreferences(userID)
		if err := json.Unmarshal(seed.Preferences, &prefs); err != nil {
			return fmt.Errorf("decode seed preferences: %w", err)
		}
		prefs.UserID = userID
		if _, err := store.SavePreferences(ctx, prefs); err != nil {
			return err
		}
	}
	return nil
}
