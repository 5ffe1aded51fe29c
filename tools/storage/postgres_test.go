package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := OpenPostgres(ctx, dsn, 4, 2)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Migrate(ctx))
	return pg
}

func TestPostgresRoundTrip(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	inv, err := pg.InsertInventory(ctx, []InventoryItem{{UserID: user, ItemName: "Apple", Category: "fruits", Quantity: 2, Unit: "pcs"}})
	require.NoError(t, err)
	require.Len(t, inv, 1)

	inv[0].Quantity = 4
	upd, err := pg.UpdateInventoryItem(ctx, inv[0])
	require.NoError(t, err)
	assert.Equal(t, 4.0, upd.Quantity)
	require.NoError(t, pg.DeleteInventoryItem(ctx, user, inv[0].ID))
	assert.ErrorIs(t, pg.DeleteInventoryItem(ctx, user, inv[0].ID), ErrNotFound)

	_, err = pg.SaveShoppingList(ctx, ShoppingList{UserID: user, Items: ShoppingItems{{Item: "Milk", Quantity: 1, Unit: "gallon"}}})
	require.NoError(t, err)
	_, err = pg.SaveShoppingList(ctx, ShoppingList{UserID: user, Items: ShoppingItems{{Item: "Milk", Quantity: 2, Unit: "gallon"}}})
	require.NoError(t, err)
	list, err := pg.GetShoppingList(ctx, user, nil)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, 2.0, list.Items[0].Quantity)

	prefs := DefaultPreferences(user)
	prefs.KeyInfo["oven"] = StringFact("gas")
	_, err = pg.SavePreferences(ctx, prefs)
	require.NoError(t, err)
	got, err := pg.GetPreferences(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, StringFact("gas"), got.KeyInfo["oven"])

	_, err = pg.SaveSearch(ctx, AmazonSearch{UserID: user, ProductQuery: "Milk", Country: "US"})
	require.NoError(t, err)
	n, err := pg.DeleteSearches(ctx, user, []string{"milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	shared, err := pg.CreateSharedList(ctx, SharedList{SharedByUserID: user, Items: list.Items})
	require.NoError(t, err)
	fetched, err := pg.GetSharedList(ctx, shared.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, DefaultSharedListTitle, fetched.Title)
}

func TestPostgresNonUUIDIDsAreNotFound(t *testing.T) {
	// Malformed ids never reach the database.
	pg := &Postgres{}
	ctx := context.Background()

	_, err := pg.GetInventoryItem(ctx, "u1", "basil")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, pg.DeleteInventoryItem(ctx, "u1", "basil"), ErrNotFound)
	_, err = pg.UpdateInventoryItem(ctx, InventoryItem{ID: "basil", UserID: "u1"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = pg.GetLeftover(ctx, "u1", "chili")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, pg.DeleteLeftover(ctx, "u1", "chili"), ErrNotFound)
	_, err = pg.UpdateLeftover(ctx, Leftover{ID: "chili", UserID: "u1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresLookupByNameFallsThrough(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	_, err := pg.InsertInventory(ctx, []InventoryItem{{UserID: user, ItemName: "Basil", Category: "spices", Quantity: 1, Unit: "bunch"}})
	require.NoError(t, err)

	_, err = pg.GetInventoryItem(ctx, user, "basil")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = pg.GetInventoryItem(ctx, user, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
