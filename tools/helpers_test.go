package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"miseagent/tools/storage"
)

const testUser = "user-1"

func userCtx() context.Context {
	return WithUserID(context.Background(), testUser)
}

// handlerFunc adapts a function into a Handler serving names.
type handlerFunc struct {
	names []string
	fn    func(ctx context.Context, call Call) (string, error)
}

func (h handlerFunc) Handle(ctx context.Context, call Call) (string, error) { return h.fn(ctx, call) }

func (h handlerFunc) Tools() []Tool {
	defs := make([]Def, len(h.names))
	for i, n := range h.names {
		defs[i] = Def{Name: n, Title: n, Description: n}
	}
	return Route(h, defs...)
}

func seedInventory(t *testing.T, store *storage.Memory, items ...storage.InventoryItem) []storage.InventoryItem {
	t.Helper()
	for i := range items {
		items[i].UserID = testUser
	}
	saved, err := store.InsertInventory(context.Background(), items)
	require.NoError(t, err)
	return saved
}

func seedShoppingList(t *testing.T, store *storage.Memory, items ...storage.ShoppingItem) {
	t.Helper()
	_, err := store.SaveShoppingList(context.Background(), storage.ShoppingList{UserID: testUser, Items: items})
	require.NoError(t, err)
}

func shoppingItems(t *testing.T, store *storage.Memory, planID *string) storage.ShoppingItems {
	t.Helper()
	list, err := store.GetShoppingList(context.Background(), testUser, planID)
	require.NoError(t, err)
	if list == nil {
		return nil
	}
	return list.Items
}
