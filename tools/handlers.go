package tools

import (
	"time"

	"miseagent/tools/storage"
)

// Options configures the handlers built by NewHandlers.
type Options struct {
	Searcher    ProductSearcher
	Country     string
	SearchDelay time.Duration
	Restock     RestockFunc
	Plans       *Plans
	Now         func() time.Time
}

// NewHandlers builds every tool handler over store.
func NewHandlers(store storage.Store, opts Options) []Handler {
	if opts.Plans == nil {
		opts.Plans = NewPlans()
	}
	return []Handler{
		NewClock(opts.Now),
		NewInventory(store, opts.Restock),
		NewShoppingList(store, store, opts.Plans),
		NewMeals(opts.Plans),
		NewPreferences(store),
		NewNotes(store),
		NewLeftovers(store),
		NewAmazon(store, opts.Searcher, opts.Country, opts.SearchDelay),
		NewSharedLists(store, store),
	}
}

// NewDefaultRegistry registers the handlers of NewHandlers.
func NewDefaultRegistry(store storage.Store, opts Options) (*Registry, error) {
	return NewRegistry(NewHandlers(store, opts)...)
}
