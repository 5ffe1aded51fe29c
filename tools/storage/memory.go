package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests, the CLI and local runs.
type Memory struct {
	mu sync.Mutex

	inventory   map[string]InventoryItem
	lists       map[listKey]ShoppingList
	leftovers   map[string]Leftover
	preferences map[string]Preferences
	searches    map[searchKey]AmazonSearch
	sessions    map[string]ChatSession
	shared      map[string]SharedList

	now func() time.Time
}

type listKey struct {
	userID     string
	mealPlanID string
}

type searchKey struct {
	userID  string
	query   string
	country string
}

func NewMemory() *Memory {
	return &Memory{
		inventory:   map[string]InventoryItem{},
		lists:       map[listKey]ShoppingList{},
		leftovers:   map[string]Leftover{},
		preferences: map[string]Preferences{},
		searches:    map[searchKey]AmazonSearch{},
		sessions:    map[string]ChatSession{},
		shared:      map[string]SharedList{},
		now:         time.Now,
	}
}

// WithClock replaces the clock used for timestamps and share expiry.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) ListInventory(ctx context.Context, userID string) ([]InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []InventoryItem{}
	for _, it := range m.inventory {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b InventoryItem) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.ItemName, b.ItemName))
	})
	return out, nil
}

func (m *Memory) GetInventoryItem(ctx context.Context, userID, id string) (*InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.inventory[id]
	if !ok || it.UserID != userID {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (m *Memory) InsertInventory(ctx context.Context, items []InventoryItem) ([]InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]InventoryItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Category = NormalizeCategory(it.Category)
		it.CreatedAt, it.UpdatedAt = now, now
		m.inventory[it.ID] = it
		out = append(out, it)
	}
	return out, nil
}

func (m *Memory) UpdateInventoryItem(ctx context.Context, item InventoryItem) (*InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.inventory[item.ID]
	if !ok || cur.UserID != item.UserID {
		return nil, ErrNotFound
	}
	item.Category = NormalizeCategory(item.Category)
	item.CreatedAt = cur.CreatedAt
	item.UpdatedAt = m.now()
	m.inventory[item.ID] = item
	return &item, nil
}

func (m *Memory) DeleteInventoryItem(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.inventory[id]
	if !ok || it.UserID != userID {
		return ErrNotFound
	}
	delete(m.inventory, id)
	return nil
}

func keyFor(userID string, mealPlanID *string) listKey {
	k := listKey{userID: userID}
	if mealPlanID != nil {
		k.mealPlanID = *mealPlanID
	}
	return k
}

func (m *Memory) GetShoppingList(ctx context.Context, userID string, mealPlanID *string) (*ShoppingList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lists[keyFor(userID, mealPlanID)]
	if !ok {
		return nil, nil
	}
	l.Items = slices.Clone(l.Items)
	return &l, nil
}

func (m *Memory) SaveShoppingList(ctx context.Context, list ShoppingList) (*ShoppingList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyFor(list.UserID, list.MealPlanID)
	now := m.now()
	if cur, ok := m.lists[k]; ok {
		list.ID = cur.ID
		list.CreatedAt = cur.CreatedAt
	} else {
		list.ID = uuid.NewString()
		list.CreatedAt = now
	}
	list.UpdatedAt = now
	if list.Items == nil {
		list.Items = ShoppingItems{}
	}
	list.Items = slices.Clone(list.Items)
	m.lists[k] = list
	return &list, nil
}

func (m *Memory) ListLeftovers(ctx context.Context, userID string) ([]Leftover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Leftover{}
	for _, l := range m.leftovers {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b Leftover) int {
		return cmp.Or(b.DateCreated.Compare(a.DateCreated), cmp.Compare(a.MealName, b.MealName))
	})
	return out, nil
}

func (m *Memory) GetLeftover(ctx context.Context, userID, id string) (*Leftover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leftovers[id]
	if !ok || l.UserID != userID {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *Memory) InsertLeftovers(ctx context.Context, items []Leftover) ([]Leftover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]Leftover, 0, len(items))
	for _, l := range items {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.DateCreated.IsZero() {
			l.DateCreated = now
		}
		l.CreatedAt, l.UpdatedAt = now, now
		m.leftovers[l.ID] = l
		out = append(out, l)
	}
	return out, nil
}

func (m *Memory) UpdateLeftover(ctx context.Context, item Leftover) (*Leftover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leftovers[item.ID]
	if !ok || cur.UserID != item.UserID {
		return nil, ErrNotFound
	}
	if item.DateCreated.IsZero() {
		item.DateCreated = cur.DateCreated
	}
	item.CreatedAt = cur.CreatedAt
	item.UpdatedAt = m.now()
	m.leftovers[item.ID] = item
	return &item, nil
}

func (m *Memory) DeleteLeftover(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leftovers[id]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	delete(m.leftovers, id)
	return nil
}

func (m *Memory) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.preferences[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) SavePreferences(ctx context.Context, prefs Preferences) (*Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.preferences[prefs.UserID]; ok {
		prefs.ID = cur.ID
		prefs.CreatedAt = cur.CreatedAt
	} else {
		prefs.ID = uuid.NewString()
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now
	m.preferences[prefs.UserID] = prefs
	return &prefs, nil
}

func (m *Memory) GetSearch(ctx context.Context, userID, query, country string) (*AmazonSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.searches[searchKey{userID, CacheKey(query), country}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) SaveSearch(ctx context.Context, search AmazonSearch) (*AmazonSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search.ProductQuery = CacheKey(search.ProductQuery)
	k := searchKey{search.UserID, search.ProductQuery, search.Country}
	now := m.now()
	if cur, ok := m.searches[k]; ok {
		search.ID = cur.ID
		search.CreatedAt = cur.CreatedAt
	} else {
		search.ID = uuid.NewString()
		search.CreatedAt = now
	}
	search.UpdatedAt = now
	m.searches[k] = search
	return &search, nil
}

func (m *Memory) ListSearches(ctx context.Context, userID string) ([]AmazonSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []AmazonSearch{}
	for k, s := range m.searches {
		if k.userID == userID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b AmazonSearch) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ProductQuery, b.ProductQuery))
	})
	return out, nil
}

func (m *Memory) DeleteSearches(ctx context.Context, userID string, queries []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := map[string]bool{}
	for _, q := range queries {
		want[CacheKey(q)] = true
	}

	var n int64
	for k := range m.searches {
		if k.userID != userID {
			continue
		}
		if len(want) > 0 && !want[k.query] {
			continue
		}
		delete(m.searches, k)
		n++
	}
	return n, nil
}

func (m *Memory) GetSession(ctx context.Context, userID string) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	s.Messages = slices.Clone(s.Messages)
	s.ThoughtSteps = slices.Clone(s.ThoughtSteps)
	return &s, nil
}

func (m *Memory) SaveSession(ctx context.Context, session ChatSession) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.sessions[session.UserID]; ok {
		session.ID = cur.ID
		session.CreatedAt = cur.CreatedAt
	} else {
		session.ID = uuid.NewString()
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	session.Messages = slices.Clone(session.Messages)
	session.ThoughtSteps = slices.Clone(session.ThoughtSteps)
	m.sessions[session.UserID] = session
	return &session, nil
}

func (m *Memory) DeleteSession(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

func (m *Memory) CreateSharedList(ctx context.Context, list SharedList) (*SharedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	list.ID = uuid.NewString()
	if list.ShareToken == "" {
		list.ShareToken = NewShareToken()
	}
	if list.Title == "" {
		list.Title = DefaultSharedListTitle
	}
	list.CreatedAt = now
	list.ExpiresAt = now.Add(SharedListTTL)
	list.Items = slices.Clone(list.Items)
	m.shared[list.ShareToken] = list
	return &list, nil
}

func (m *Memory) GetSharedList(ctx context.Context, token string) (*SharedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.shared[token]
	if !ok || !l.ExpiresAt.After(m.now()) {
		return nil, ErrNotFound
	}
	l.Items = slices.Clone(l.Items)
	return &l, nil
}
