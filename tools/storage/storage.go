// Package storage persists the per-user meal-planning state: inventory,
// shopping lists, leftovers, preferences, the Amazon search cache, chat
// sessions and shared shopping lists.
//
// Lookups whose absence is a normal state (a user with no preferences yet, a
// cache miss) return nil and no error. Rows addressed by ID return ErrNotFound.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type InventoryStore interface {
	// ListInventory returns the user's items ordered by category then name.
	ListInventory(ctx context.Context, userID string) ([]InventoryItem, error)
	GetInventoryItem(ctx context.Context, userID, id string) (*InventoryItem, error)
	InsertInventory(ctx context.Context, items []InventoryItem) ([]InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item InventoryItem) (*InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, userID, id string) error
}

type ShoppingListStore interface {
	// GetShoppingList returns the list for (userID, mealPlanID); a nil
	// mealPlanID selects the list not tied to a meal plan.
	GetShoppingList(ctx context.Context, userID string, mealPlanID *string) (*ShoppingList, error)
	// SaveShoppingList upserts on (user_id, meal_plan_id).
	SaveShoppingList(ctx context.Context, list ShoppingList) (*ShoppingList, error)
}

type LeftoverStore interface {
	// ListLeftovers returns the user's leftovers, newest first.
	ListLeftovers(ctx context.Context, userID string) ([]Leftover, error)
	GetLeftover(ctx context.Context, userID, id string) (*Leftover, error)
	InsertLeftovers(ctx context.Context, items []Leftover) ([]Leftover, error)
	UpdateLeftover(ctx context.Context, item Leftover) (*Leftover, error)
	DeleteLeftover(ctx context.Context, userID, id string) error
}

type PreferencesStore interface {
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	// SavePreferences upserts on user_id.
	SavePreferences(ctx context.Context, prefs Preferences) (*Preferences, error)
}

type AmazonCache interface {
	GetSearch(ctx context.Context, userID, query, country string) (*AmazonSearch, error)
	// SaveSearch upserts on (user_id, product_query, country).
	SaveSearch(ctx context.Context, search AmazonSearch) (*AmazonSearch, error)
	ListSearches(ctx context.Context, userID string) ([]AmazonSearch, error)
	// DeleteSearches removes the cached searches for the given queries, or
	// every cached search of the user when queries is empty.
	DeleteSearches(ctx context.Context, userID string, queries []string) (int64, error)
}

type ChatStore interface {
	GetSession(ctx context.Context, userID string) (*ChatSession, error)
	// SaveSession upserts on user_id; the last writer wins.
	SaveSession(ctx context.Context, session ChatSession) (*ChatSession, error)
	DeleteSession(ctx context.Context, userID string) error
}

type SharedListStore interface {
	CreateSharedList(ctx context.Context, list SharedList) (*SharedList, error)
	// GetSharedList returns ErrNotFound for unknown or expired tokens.
	GetSharedList(ctx context.Context, token string) (*SharedList, error)
}

// Store is the full persistence surface used by the tool handlers.
type Store interface {
	InventoryStore
	ShoppingListStore
	LeftoverStore
	PreferencesStore
	AmazonCache
	ChatStore
	SharedListStore
}
