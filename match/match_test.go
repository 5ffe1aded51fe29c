package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tomato", "tomato"},
		{"Tomatoes", "tomato"},
		{"tomatos", "tomato"},
		{"Apples", "apple"},
		{"  Milk ", "milk"},
		{"Boxes", "box"},
		{"peaches", "peach"},
		{"dishes", "dish"},
		{"glass", "glass"},
		{"glasses", "glass"},
		{"peas", "pea"},
		{"cheeses", "cheese"},
		{"oranges", "orange"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeSuffixInsensitive(t *testing.T) {
	for _, n := range []string{"tomato", "potato", "apple", "carrot", "egg", "Onion"} {
		assert.Equal(t, Normalize(n), Normalize(n+"s"), n)
	}
	for _, n := range []string{"tomato", "potato", "box", "peach", "dish", "glass"} {
		assert.Equal(t, Normalize(n), Normalize(n+"es"), n)
	}

	// "es" is only a plural after ch, sh, ss, o or x, so other stems keep the e.
	assert.Equal(t, "milke", Normalize("milk"+"es"))
	assert.NotEqual(t, Normalize("milk"), Normalize("milk"+"es"))
}

// Short words ending in s lose their last letter. Pinned so a change to the
// rule is a deliberate one.
func TestNormalizeKnownConflation(t *testing.T) {
	assert.Equal(t, "bu", Normalize("bus"))
	assert.True(t, Equal("bus", "bu"))
	assert.Equal(t, "ga", Normalize("gas"))
}

type item struct {
	ID   string
	Name string
}

func TestFind(t *testing.T) {
	items := []item{
		{ID: "1", Name: "Apple"},
		{ID: "2", Name: "Tomatoes"},
		{ID: "3", Name: "apples"},
	}
	name := func(i item) string { return i.Name }

	tests := []struct {
		name   string
		query  string
		wantID string
		found  bool
	}{
		{name: "plural query matches singular record", query: "Apples", wantID: "1", found: true},
		{name: "first match wins", query: "apple", wantID: "1", found: true},
		{name: "singular query matches plural record", query: "tomato", wantID: "2", found: true},
		{name: "no match", query: "banana", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(tt.query, items, name)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	assert.Equal(t, 1, Index("tomato", items, name))
	assert.Equal(t, -1, Index("kiwi", items, name))
}
