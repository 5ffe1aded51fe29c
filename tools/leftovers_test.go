package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/tools/storage"
)

func newTestLeftovers(store *storage.Memory) *Leftovers {
	h := NewLeftovers(store)
	h.now = func() time.Time { return time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC) }
	return h
}

func TestLeftovers_AddAndList(t *testing.T) {
	store := storage.NewMemory()
	h := newTestLeftovers(store)

	msg, err := h.Handle(userCtx(), Call{Name: "getLeftovers"})
	require.NoError(t, err)
	assert.Equal(t, "You don't have any leftovers right now.", msg)

	msg, err = h.Handle(userCtx(), Call{Name: "addLeftover", Input: map[string]any{"meal_name": "Lasagna", "servings": 3}})
	require.NoError(t, err)
	assert.Equal(t, "I've added 3 servings of Lasagna to your leftovers.", msg)

	msg, err = h.Handle(userCtx(), Call{Name: "getLeftovers"})
	require.NoError(t, err)
	assert.Equal(t, "Here are your current leftovers:\n- Lasagna: 3 serving(s)", msg)

	msg, err = h.Handle(userCtx(), Call{Name: "getLeftoverItems"})
	require.NoError(t, err)
	assert.Contains(t, msg, "  Meal: Lasagna\n  Servings: 3\n  Created: 2024-05-10\n")

	_, err = h.Handle(userCtx(), Call{Name: "addLeftover", Input: map[string]any{"meal_name": "Soup", "servings": 0}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLeftovers_ServingsAtOrBelowZeroRemove(t *testing.T) {
	tests := []struct {
		name    string
		call    func(id string) Call
		wantMsg string
	}{
		{
			name: "adjust down to zero",
			call: func(string) Call {
				return Call{Name: "adjustLeftoverServings", Input: map[string]any{"meal_name": "chili", "serving_adjustment": -2}}
			},
			wantMsg: "I've removed Chili from your leftovers since no servings are left.",
		},
		{
			name: "update to zero",
			call: func(id string) Call {
				return Call{Name: "updateLeftover", Input: map[string]any{"leftover_id": id, "servings": 0}}
			},
			wantMsg: "I've removed Chili from your leftovers since no servings are left.",
		},
		{
			name: "partial update to negative",
			call: func(id string) Call {
				return Call{Name: "updateLeftoverItemPartial", Input: map[string]any{
					"leftover_id": id,
					"updates":     map[string]any{"servings": -1},
				}}
			},
			wantMsg: "I've removed Chili from your leftovers since no servings are left.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			saved, err := store.InsertLeftovers(context.Background(), []storage.Leftover{{UserID: testUser, MealName: "Chili", Servings: 2}})
			require.NoError(t, err)
			h := newTestLeftovers(store)

			msg, err := h.Handle(userCtx(), tt.call(saved[0].ID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)

			items, err := store.ListLeftovers(context.Background(), testUser)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestLeftovers_AdjustServings(t *testing.T) {
	store := storage.NewMemory()
	saved, err := store.InsertLeftovers(context.Background(), []storage.Leftover{{UserID: testUser, MealName: "Curry", Servings: 4}})
	require.NoError(t, err)
	h := newTestLeftovers(store)

	msg, err := h.Handle(userCtx(), Call{Name: "adjustLeftoverServings", Input: map[string]any{"meal_name": "CURRY", "serving_adjustment": "-1.5"}})
	require.NoError(t, err)
	assert.Equal(t, "I've adjusted your Curry leftovers to 2.5 serving(s).", msg)

	got, err := store.GetLeftover(context.Background(), testUser, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Servings)
}

func TestLeftovers_CreateReplaceRemove(t *testing.T) {
	store := storage.NewMemory()
	h := newTestLeftovers(store)

	msg, err := h.Handle(userCtx(), Call{Name: "createLeftoverItems", Input: map[string]any{
		"items": []any{
			map[string]any{"meal_name": "Pad Thai", "servings": 2, "date_created": "2024-05-08"},
			map[string]any{"meal_name": "Tacos", "servings": 1, "notes": "no salsa"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, "I've created 2 new leftover item(s).", msg)

	items, err := store.ListLeftovers(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Tacos", items[0].MealName, "newest first")
	padThai := items[1]
	assert.Equal(t, "2024-05-08", padThai.DateCreated.Format(time.DateOnly))

	msg, err = h.Handle(userCtx(), Call{Name: "replaceLeftoverItem", Input: map[string]any{
		"leftover_id":   padThai.ID,
		"leftover_data": map[string]any{"meal_name": "Pad See Ew", "servings": 3},
	}})
	require.NoError(t, err)
	assert.Equal(t, "I've completely replaced the leftover item with ID "+padThai.ID+".", msg)

	got, err := store.GetLeftover(context.Background(), testUser, padThai.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pad See Ew", got.MealName)
	assert.Equal(t, 3.0, got.Servings)

	msg, err = h.Handle(userCtx(), Call{Name: "removeLeftover", Input: map[string]any{"meal_name": "taco"}})
	require.NoError(t, err)
	assert.Equal(t, "I've removed Tacos from your leftovers.", msg)

	_, err = h.Handle(userCtx(), Call{Name: "deleteLeftoverItem", Input: map[string]any{"leftover_id": "missing"}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `I couldn't find "missing" in your leftovers.`, Message(err))

	_, err = h.Handle(userCtx(), Call{Name: "createLeftoverItems", Input: map[string]any{
		"items": []any{map[string]any{"meal_name": "Stew", "servings": 1, "date_created": "last tuesday"}},
	}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
