package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyInfoRejectsNestedValues(t *testing.T) {
	var k KeyInfo
	err := json.Unmarshal([]byte(`{"allergy":"peanuts","kids":2,"vegan":false}`), &k)
	require.NoError(t, err)
	assert.Equal(t, StringFact("peanuts"), k["allergy"])
	assert.Equal(t, NumberFact(2), k["kids"])
	assert.Equal(t, BoolFact(false), k["vegan"])

	err = json.Unmarshal([]byte(`{"pets":{"dog":"rex"}}`), &k)
	assert.ErrorIs(t, err, ErrUnsupportedFact)

	_, err = KeyInfoFrom(map[string]any{"list": []any{"a"}})
	assert.ErrorIs(t, err, ErrUnsupportedFact)
}

func TestJSONColumnsStoreEmptyCollections(t *testing.T) {
	var nilList StringList
	v, err := nilList.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var nilRatings MealRatings
	v, err = nilRatings.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var items ShoppingItems
	require.NoError(t, items.Scan([]byte(`[{"item":"Milk","quantity":1,"unit":"gallon"}]`)))
	assert.Equal(t, ShoppingItems{{Item: "Milk", Quantity: 1, Unit: "gallon"}}, items)
	assert.Error(t, items.Scan(42))
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryPantryStaples, NormalizeCategory(" Pantry_Staples "))
	assert.Equal(t, CategoryOther, NormalizeCategory("snacks"))
	assert.Equal(t, CategoryOther, NormalizeCategory(""))
}
