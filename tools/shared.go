package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/tools/storage"
)

// SharedLists publishes shopping lists under a token and imports them into
// another user's list.
type SharedLists struct {
	shared storage.SharedListStore
	lists  storage.ShoppingListStore
	now    func() time.Time
}

func NewSharedLists(shared storage.SharedListStore, lists storage.ShoppingListStore) *SharedLists {
	return &SharedLists{shared: shared, lists: lists, now: time.Now}
}

// Share publishes the user's current shopping list for SharedListTTL.
func (s *SharedLists) Share(ctx context.Context, userID, title string) (*storage.SharedList, error) {
	const failMsg = "I had trouble sharing your shopping list."

	list, err := s.lists.GetShoppingList(ctx, userID, nil)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	if list == nil || len(list.Items) == 0 {
		return nil, invalid("Your shopping list is empty, so there is nothing to share.", nil)
	}
	if strings.TrimSpace(title) == "" {
		title = storage.DefaultSharedListTitle
	}

	now := s.now().UTC()
	shared, err := s.shared.CreateSharedList(ctx, storage.SharedList{
		ShareToken:     storage.NewShareToken(),
		SharedByUserID: userID,
		Items:          list.Items,
		Title:          title,
		CreatedAt:      now,
		ExpiresAt:      now.Add(storage.SharedListTTL),
	})
	if err != nil {
		return nil, backend(failMsg, err)
	}
	return shared, nil
}

func (s *SharedLists) Get(ctx context.Context, token string) (*storage.SharedList, error) {
	shared, err := s.shared.GetSharedList(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("This shared shopping list doesn't exist or has expired.")
	}
	if err != nil {
		return nil, backend("I had trouble opening that shared shopping list.", err)
	}
	return shared, nil
}

// Import merges a shared list into the user's shopping list.
func (s *SharedLists) Import(ctx context.Context, userID, token string) (*storage.SharedList, error) {
	const failMsg = "I had trouble importing that shared shopping list."

	shared, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	list, err := s.lists.GetShoppingList(ctx, userID, nil)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	if list == nil {
		list = &storage.ShoppingList{UserID: userID}
	}
	incoming := make(storage.ShoppingItems, len(shared.Items))
	for i, it := range shared.Items {
		it.ID = ""
		incoming[i] = it
	}
	list.Items = MergeItems(list.Items, incoming)
	if _, err := s.lists.SaveShoppingList(ctx, *list); err != nil {
		return nil, backend(failMsg, err)
	}
	return shared, nil
}

func (s *SharedLists) Handle(ctx context.Context, call Call) (string, error) {
	if call.Name != "acknowledgeSharedItems" {
		return NotHandled(call.Name), nil
	}

	args, err := decodeArgs[struct {
		Items   []any  `json:"items"`
		Message string `json:"message"`
	}](call.Input)
	if err != nil {
		return "", err
	}
	addThought(ctx, "📋 Imported shared shopping list", "")
	return strings.TrimSpace(fmt.Sprintf("I can see you've imported a shared shopping list with %d items. %s", len(args.Items), args.Message)), nil
}

func (s *SharedLists) Tools() []Tool {
	return Route(s, Def{
		Name:        "acknowledgeSharedItems",
		Title:       "Acknowledge Shared Items",
		Description: "Acknowledge a shopping list the user imported from a share link.",
		Input: object(map[string]*jsonschema.Schema{
			"items":   arrayOf("The imported items.", shoppingItemSchema()),
			"message": str("A short message for the user about the imported items."),
		}, "items"),
	})
}
