package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/tools/storage"
)

func TestSharedLists_ShareAndImport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemory().WithClock(func() time.Time { return now })
	s := NewSharedLists(store, store)
	s.now = func() time.Time { return now }

	_, err := s.Share(ctx, testUser, "")
	require.ErrorIs(t, err, ErrInvalidInput, "an empty list cannot be shared")

	seedShoppingList(t, store,
		storage.ShoppingItem{ID: "a", Item: "Milk", Quantity: 1, Unit: "gallon"},
		storage.ShoppingItem{ID: "b", Item: "Bread", Quantity: 1, Unit: "loaf"},
	)
	shared, err := s.Share(ctx, testUser, "")
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultSharedListTitle, shared.Title)
	assert.Len(t, shared.ShareToken, 32)
	assert.Equal(t, now.Add(7*24*time.Hour), shared.ExpiresAt)

	const friend = "user-2"
	_, err = store.SaveShoppingList(ctx, storage.ShoppingList{UserID: friend, Items: storage.ShoppingItems{{Item: "milk", Quantity: 2, Unit: "Gallon"}}})
	require.NoError(t, err)

	_, err = s.Import(ctx, friend, shared.ShareToken)
	require.NoError(t, err)

	list, err := store.GetShoppingList(ctx, friend, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.ShoppingItems{
		{Item: "milk", Quantity: 3, Unit: "Gallon"},
		{Item: "Bread", Quantity: 1, Unit: "loaf"},
	}, list.Items)
}

func TestSharedLists_ExpiredOrUnknownToken(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := created
	store := storage.NewMemory().WithClock(func() time.Time { return clock })
	s := NewSharedLists(store, store)
	s.now = func() time.Time { return created }

	seedShoppingList(t, store, storage.ShoppingItem{Item: "Milk", Quantity: 1, Unit: "gallon"})
	shared, err := s.Share(ctx, testUser, "Weekend groceries")
	require.NoError(t, err)

	got, err := s.Get(ctx, shared.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "Weekend groceries", got.Title)

	clock = created.Add(8 * 24 * time.Hour)
	_, err = s.Get(ctx, shared.ShareToken)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "This shared shopping list doesn't exist or has expired.", Message(err))

	_, err = s.Import(ctx, "user-2", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSharedLists_AcknowledgeSharedItems(t *testing.T) {
	s := NewSharedLists(storage.NewMemory(), storage.NewMemory())

	msg, err := s.Handle(userCtx(), Call{Name: "acknowledgeSharedItems", Input: map[string]any{
		"items":   []any{map[string]any{"item": "Milk"}, map[string]any{"item": "Eggs"}},
		"message": "Want me to check Amazon for any of them?",
	}})
	require.NoError(t, err)
	assert.Equal(t, "I can see you've imported a shared shopping list with 2 items. Want me to check Amazon for any of them?", msg)
}
