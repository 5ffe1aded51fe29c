package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/tools/storage"
)

func TestInventory_UpdateInventoryReplacesQuantity(t *testing.T) {
	store := storage.NewMemory()
	seedInventory(t, store, storage.InventoryItem{ItemName: "Apple", Category: "fruits", Quantity: 5, Unit: "pcs"})
	h := NewInventory(store, nil)

	msg, err := h.Handle(userCtx(), Call{Name: "updateInventory", Input: map[string]any{
		"items": []any{
			map[string]any{"item_name": "Apples", "category": "fruits", "quantity": 2, "unit": "pcs"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, "I've updated your inventory with the new items.", msg)

	items, err := store.ListInventory(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple", items[0].ItemName)
	assert.Equal(t, 2.0, items[0].Quantity, "inventory upsert replaces, it does not add")
}

func TestInventory_UpdateInventoryInsertsNewItems(t *testing.T) {
	store := storage.NewMemory()
	h := NewInventory(store, nil)

	_, err := h.Handle(userCtx(), Call{Name: "updateInventory", Input: map[string]any{
		"items": []any{
			map[string]any{"item_name": "Rice", "category": "grains", "quantity": 2, "unit": "kg", "expiry_date": "2025-01-31"},
			map[string]any{"item_name": "Kale", "category": "vegetables", "quantity": 0, "unit": "bunch"},
		},
	}})
	require.NoError(t, err)

	items, err := store.ListInventory(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, items, 1, "a new item with no quantity is not inserted")
	assert.Equal(t, "Rice", items[0].ItemName)
	require.NotNil(t, items[0].ExpiryDate)
	assert.Equal(t, "2025-01-31", items[0].ExpiryDate.Format("2006-01-02"))
}

func TestInventory_UpdateInventoryBatchSeesEarlierEntries(t *testing.T) {
	tests := []struct {
		name     string
		seed     []storage.InventoryItem
		items    []any
		wantName string
		wantQty  float64
	}{
		{
			name: "same item twice in one batch",
			items: []any{
				map[string]any{"item_name": "Milk", "category": "dairy", "quantity": 1, "unit": "gallon"},
				map[string]any{"item_name": "milk", "category": "dairy", "quantity": 2, "unit": "gallon"},
			},
			wantName: "Milk",
			wantQty:  2,
		},
		{
			name: "removed then re-added under a plural",
			seed: []storage.InventoryItem{{ItemName: "Apple", Category: "fruits", Quantity: 5, Unit: "pcs"}},
			items: []any{
				map[string]any{"item_name": "Apple", "category": "fruits", "quantity": 0, "unit": "pcs"},
				map[string]any{"item_name": "Apples", "category": "fruits", "quantity": 3, "unit": "pcs"},
			},
			wantName: "Apples",
			wantQty:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			seedInventory(t, store, tt.seed...)
			h := NewInventory(store, nil)

			msg, err := h.Handle(userCtx(), Call{Name: "updateInventory", Input: map[string]any{"items": tt.items}})
			require.NoError(t, err)
			assert.Equal(t, "I've updated your inventory with the new items.", msg)

			items, err := store.ListInventory(context.Background(), testUser)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantName, items[0].ItemName)
			assert.Equal(t, tt.wantQty, items[0].Quantity)
		})
	}
}

func TestInventory_NonPositiveQuantityRemovesItem(t *testing.T) {
	tests := []struct {
		name    string
		call    func(id string) Call
		wantMsg string
	}{
		{
			name: "upsert to zero",
			call: func(string) Call {
				return Call{Name: "updateInventory", Input: map[string]any{
					"items": []any{map[string]any{"item_name": "milk", "category": "dairy", "quantity": 0, "unit": "gallon"}},
				}}
			},
			wantMsg: "I've updated your inventory with the new items.",
		},
		{
			name: "patch to negative",
			call: func(id string) Call {
				return Call{Name: "updateInventoryItem", Input: map[string]any{
					"item_id": id,
					"updates": map[string]any{"quantity": -1},
				}}
			},
			wantMsg: "I've removed Milk from your inventory since the quantity reached zero.",
		},
		{
			name: "replace with zero",
			call: func(id string) Call {
				return Call{Name: "replaceInventoryItem", Input: map[string]any{
					"item_id":   id,
					"item_data": map[string]any{"item_name": "Milk", "category": "dairy", "quantity": 0, "unit": "gallon"},
				}}
			},
			wantMsg: "I've removed Milk from your inventory since the quantity reached zero.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			saved := seedInventory(t, store, storage.InventoryItem{ItemName: "Milk", Category: "dairy", Quantity: 1, Unit: "gallon"})

			var restocked []string
			h := NewInventory(store, func(ctx context.Context, item storage.InventoryItem) {
				restocked = append(restocked, item.ItemName)
			})
			thoughts := NewThoughts(nil)

			msg, err := h.Handle(WithThoughts(userCtx(), thoughts), tt.call(saved[0].ID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)

			items, err := store.ListInventory(context.Background(), testUser)
			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Equal(t, []string{"Milk"}, restocked)

			var steps []string
			for _, s := range thoughts.Steps() {
				steps = append(steps, s.Step)
			}
			assert.Contains(t, steps, "🛒 Restock suggestion")
		})
	}
}

func TestInventory_Listings(t *testing.T) {
	store := storage.NewMemory()
	h := NewInventory(store, nil)

	msg, err := h.Handle(userCtx(), Call{Name: "getInventory"})
	require.NoError(t, err)
	assert.Equal(t, "Your inventory is currently empty.", msg)

	seedInventory(t, store,
		storage.InventoryItem{ItemName: "Rice", Category: "grains", Quantity: 2, Unit: "kg"},
		storage.InventoryItem{ItemName: "Butter", Category: "dairy", Quantity: 0.5, Unit: "lb"},
	)

	msg, err = h.Handle(userCtx(), Call{Name: "getInventory"})
	require.NoError(t, err)
	assert.Equal(t, "Here is your current inventory:\n- 0.5 lb of Butter\n- 2 kg of Rice", msg)

	msg, err = h.Handle(userCtx(), Call{Name: "getInventoryItems"})
	require.NoError(t, err)
	assert.Contains(t, msg, "  Item: Rice\n  Quantity: 2 kg\n  Category: grains\n  Location: Not specified\n")
}

func TestInventory_CreateInventoryItems(t *testing.T) {
	store := storage.NewMemory()
	h := NewInventory(store, nil)

	msg, err := h.Handle(userCtx(), Call{Name: "createInventoryItems", Input: map[string]any{
		"items": []any{
			map[string]any{"item_name": "Eggs", "category": "proteins", "quantity": "12", "unit": "count", "location": "fridge"},
			map[string]any{"item_name": "Oats", "category": "breakfast", "quantity": 1, "unit": "bag"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, "I've created 2 new inventory item(s).", msg)

	items, err := store.ListInventory(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Oats", items[0].ItemName)
	assert.Equal(t, storage.CategoryOther, items[0].Category)
	assert.Equal(t, storage.CategoryProteins, items[1].Category)
	assert.Equal(t, 12.0, items[1].Quantity)

	_, err = h.Handle(userCtx(), Call{Name: "createInventoryItems", Input: map[string]any{
		"items": []any{map[string]any{"item_name": "Salt", "category": "spices", "quantity": 0, "unit": "g"}},
	}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInventory_ResolveByName(t *testing.T) {
	store := storage.NewMemory()
	saved := seedInventory(t, store,
		storage.InventoryItem{ItemName: "Tomato", Category: "vegetables", Quantity: 4, Unit: "pcs"},
		storage.InventoryItem{ItemName: "Basil", Category: "spices", Quantity: 1, Unit: "bunch"},
	)
	h := NewInventory(store, nil)

	msg, err := h.Handle(userCtx(), Call{Name: "updateInventoryItem", Input: map[string]any{
		"item_name": "tomatoes",
		"updates":   map[string]any{"quantity": 6, "location": "counter"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "I've updated the following fields for inventory item "+saved[0].ID+": quantity, location.", msg)

	got, err := store.GetInventoryItem(context.Background(), testUser, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.Quantity)
	assert.Equal(t, "counter", *got.Location)

	msg, err = h.Handle(userCtx(), Call{Name: "deleteInventoryItem", Input: map[string]any{"item_id": "basil"}})
	require.NoError(t, err)
	assert.Equal(t, "I've deleted the inventory item with ID "+saved[1].ID+".", msg)

	_, err = h.Handle(userCtx(), Call{Name: "deleteInventoryItem", Input: map[string]any{"item_id": "kale"}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `I couldn't find "kale" in your inventory.`, Message(err))
}

func TestInventory_RequiresSession(t *testing.T) {
	h := NewInventory(storage.NewMemory(), nil)

	_, err := h.Handle(context.Background(), Call{Name: "getInventory"})
	require.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, "Inventory function is not available right now.", Message(err))
}

func TestInventory_PatchWithoutFields(t *testing.T) {
	store := storage.NewMemory()
	saved := seedInventory(t, store, storage.InventoryItem{ItemName: "Flour", Category: "pantry_staples", Quantity: 1, Unit: "kg"})
	h := NewInventory(store, nil)

	_, err := h.Handle(userCtx(), Call{Name: "updateInventoryItem", Input: map[string]any{
		"item_id": saved[0].ID,
		"updates": map[string]any{},
	}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
