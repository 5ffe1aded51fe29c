package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/match"
	"miseagent/tools/storage"
)

type ShoppingList struct {
	store storage.ShoppingListStore
	cache storage.AmazonCache
	plans *Plans
}

func NewShoppingList(store storage.ShoppingListStore, cache storage.AmazonCache, plans *Plans) *ShoppingList {
	return &ShoppingList{store: store, cache: cache, plans: plans}
}

type shoppingInput struct {
	MealPlanID string `json:"meal_plan_id"`
	Items      []struct {
		Item     string `json:"item"`
		Quantity Num    `json:"quantity"`
		Unit     string `json:"unit"`
	} `json:"items"`
	ItemNames []string `json:"item_names"`
	ItemName  string   `json:"item_name"`
	Quantity  *Num     `json:"quantity"`
	Unit      *string  `json:"unit"`
}

func (in shoppingInput) items() storage.ShoppingItems {
	out := storage.ShoppingItems{}
	for _, it := range in.Items {
		if strings.TrimSpace(it.Item) == "" {
			continue
		}
		out = append(out, storage.ShoppingItem{Item: strings.TrimSpace(it.Item), Quantity: float64(it.Quantity), Unit: it.Unit})
	}
	return out
}

func (h *ShoppingList) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Shopping list")
	}

	in, err := decodeArgs[shoppingInput](call.Input)
	if err != nil {
		return "", err
	}
	planID := validPlanID(in.MealPlanID)

	switch call.Name {
	case "showShoppingList":
		return h.show(ctx, userID, call.Input)
	case "getShoppingList":
		return h.summary(ctx, userID, planID)
	case "getShoppingListItems":
		return h.details(ctx, userID, planID)
	case "addToShoppingList":
		if _, err := h.add(ctx, userID, planID, in.items()); err != nil {
			return "", err
		}
		return "I've added the items to your shopping list.", nil
	case "createShoppingListItems":
		items := in.items()
		if _, err := h.add(ctx, userID, planID, items); err != nil {
			return "", err
		}
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Item
		}
		return fmt.Sprintf("I've added %d new item(s) to your shopping list: %s.", len(items), strings.Join(names, ", ")), nil
	case "removeFromShoppingList":
		if _, err := h.remove(ctx, userID, planID, in.ItemNames); err != nil {
			return "", err
		}
		return "I've removed the items from your shopping list.", nil
	case "deleteShoppingListItems":
		removed, err := h.remove(ctx, userID, planID, in.ItemNames)
		if err != nil {
			return "", err
		}
		if len(removed) == 0 {
			return "", notFound("I couldn't find %s on your shopping list.", strings.Join(in.ItemNames, ", "))
		}
		return fmt.Sprintf("I've removed %s from your shopping list.", strings.Join(removed, ", ")), nil
	case "replaceShoppingList":
		items := in.items()
		if err := h.replace(ctx, userID, planID, items); err != nil {
			return "", err
		}
		return fmt.Sprintf("I've replaced your entire shopping list with %d new item(s).", len(items)), nil
	case "updateShoppingListItem":
		return h.update(ctx, userID, planID, in)
	}
	return NotHandled(call.Name), nil
}

func (h *ShoppingList) load(ctx context.Context, userID string, planID *string) (storage.ShoppingList, error) {
	list, err := h.store.GetShoppingList(ctx, userID, planID)
	if err != nil {
		return storage.ShoppingList{}, err
	}
	if list == nil {
		return storage.ShoppingList{UserID: userID, MealPlanID: planID, Items: storage.ShoppingItems{}}, nil
	}
	return *list, nil
}

func (h *ShoppingList) show(ctx context.Context, userID string, input map[string]any) (string, error) {
	plan, err := decodeArgs[MealPlan](input)
	if err != nil {
		return "", err
	}
	if len(plan.Days) == 0 && h.plans != nil {
		plan, _ = h.plans.Get(userID)
	}
	if len(plan.Days) == 0 {
		addThought(ctx, "✅ Executed: showShoppingList", "")
		return "I've opened your shopping list.", nil
	}

	items := plan.ShoppingItems()
	if err := h.replace(ctx, userID, plan.MealPlanID(), items); err != nil {
		return "", err
	}
	addThought(ctx, "✅ Executed: showShoppingList", displayJSON(items))
	return "Shopping list updated and shown!", nil
}

func (h *ShoppingList) summary(ctx context.Context, userID string, planID *string) (string, error) {
	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return "", backend("I had trouble fetching your shopping list.", err)
	}
	if len(list.Items) == 0 {
		return "Your shopping list is currently empty.", nil
	}
	var b strings.Builder
	b.WriteString("Here is your current shopping list:")
	for _, it := range list.Items {
		fmt.Fprintf(&b, "\n- %s %s of %s", formatQty(it.Quantity), it.Unit, it.Item)
	}
	return b.String(), nil
}

func (h *ShoppingList) details(ctx context.Context, userID string, planID *string) (string, error) {
	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return "", backend("I had trouble retrieving your shopping list.", err)
	}
	addThought(ctx, "✅ Retrieved shopping list items", "")
	if len(list.Items) == 0 {
		return "The shopping list is currently empty.", nil
	}
	var b strings.Builder
	b.WriteString("Current shopping list items:\n\n")
	for i, it := range list.Items {
		fmt.Fprintf(&b, "- Item %d:\n", i+1)
		fmt.Fprintf(&b, "  Name: %s\n", it.Item)
		fmt.Fprintf(&b, "  Quantity: %s %s\n\n", formatQty(it.Quantity), it.Unit)
	}
	return b.String(), nil
}

// MergeItems adds items to existing. An item whose name matches an existing
// entry with the same unit increases that entry's quantity; a matching name
// with a different unit replaces the entry.
func MergeItems(existing, items storage.ShoppingItems) storage.ShoppingItems {
	out := append(storage.ShoppingItems{}, existing...)
	for _, it := range items {
		idx := match.Index(it.Item, out, func(s storage.ShoppingItem) string { return s.Item })
		switch {
		case idx < 0:
			out = append(out, it)
		case strings.EqualFold(strings.TrimSpace(out[idx].Unit), strings.TrimSpace(it.Unit)):
			out[idx].Quantity += it.Quantity
		default:
			it.ID = out[idx].ID
			out[idx] = it
		}
	}
	return out
}

func (h *ShoppingList) add(ctx context.Context, userID string, planID *string, items storage.ShoppingItems) (storage.ShoppingItems, error) {
	const failMsg = "I had trouble adding items to your shopping list."
	if len(items) == 0 {
		return nil, invalid("Please tell me which items to add.", nil)
	}

	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	list.Items = MergeItems(list.Items, items)
	saved, err := h.store.SaveShoppingList(ctx, list)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	addThought(ctx, "✅ Updated shopping list", displayJSON(items))
	return saved.Items, nil
}

// remove drops items by name and returns the names actually removed.
func (h *ShoppingList) remove(ctx context.Context, userID string, planID *string, names []string) ([]string, error) {
	const failMsg = "I had trouble removing items from your shopping list."
	if len(names) == 0 {
		return nil, invalid("Please tell me which items to remove.", nil)
	}

	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return nil, backend(failMsg, err)
	}

	var removed []string
	kept := storage.ShoppingItems{}
	for _, it := range list.Items {
		hit := false
		for _, n := range names {
			if match.Equal(it.Item, n) {
				hit = true
				break
			}
		}
		if hit {
			removed = append(removed, it.Item)
			continue
		}
		kept = append(kept, it)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	list.Items = kept
	if _, err := h.store.SaveShoppingList(ctx, list); err != nil {
		return nil, backend(failMsg, err)
	}
	h.invalidate(ctx, userID, removed)
	addThought(ctx, "✅ Removed shopping list items", strings.Join(removed, ", "))
	return removed, nil
}

// replace overwrites the list and drops cached searches for items that are
// no longer on it.
func (h *ShoppingList) replace(ctx context.Context, userID string, planID *string, items storage.ShoppingItems) error {
	const failMsg = "I had trouble replacing your shopping list."

	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return backend(failMsg, err)
	}

	var gone []string
	for _, old := range list.Items {
		if match.Index(old.Item, items, func(s storage.ShoppingItem) string { return s.Item }) < 0 {
			gone = append(gone, old.Item)
		}
	}

	list.Items = items
	if _, err := h.store.SaveShoppingList(ctx, list); err != nil {
		return backend(failMsg, err)
	}
	h.invalidate(ctx, userID, gone)
	addThought(ctx, "✅ Replaced shopping list", displayJSON(items))
	return nil
}

func (h *ShoppingList) update(ctx context.Context, userID string, planID *string, in shoppingInput) (string, error) {
	const failMsg = "I had trouble updating your shopping list."
	if in.ItemName == "" {
		return "", invalid("Please tell me which item to update.", nil)
	}

	list, err := h.load(ctx, userID, planID)
	if err != nil {
		return "", backend(failMsg, err)
	}
	idx := match.Index(in.ItemName, list.Items, func(s storage.ShoppingItem) string { return s.Item })
	if idx < 0 {
		return "", notFound("I couldn't find %s on your shopping list.", in.ItemName)
	}
	if in.Quantity != nil {
		list.Items[idx].Quantity = float64(*in.Quantity)
	}
	if in.Unit != nil {
		list.Items[idx].Unit = *in.Unit
	}
	if _, err := h.store.SaveShoppingList(ctx, list); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Updated shopping list item", in.ItemName)
	return fmt.Sprintf("I've updated %s in your shopping list.", list.Items[idx].Item), nil
}

func (h *ShoppingList) invalidate(ctx context.Context, userID string, names []string) {
	if h.cache == nil || len(names) == 0 {
		return
	}
	n, err := h.cache.DeleteSearches(ctx, userID, names)
	if err != nil {
		slog.Warn("SHOPPING_LIST: Failed to invalidate Amazon cache", "error", err, "items", names)
		return
	}
	slog.Info("SHOPPING_LIST: Invalidated Amazon cache", "items", len(names), "rows", n)
}

func (h *ShoppingList) Tools() []Tool {
	planID := str("Optional. UUID of the meal plan this list belongs to.")
	items := func(desc string) *jsonschema.Schema { return arrayOf(desc, shoppingItemSchema()) }

	return Route(h,
		Def{
			Name:        "showShoppingList",
			Title:       "Show Shopping List",
			Description: "Shows the shopping list. When a meal plan is given or one is active, its ingredients are aggregated into the list.",
			Input: object(map[string]*jsonschema.Schema{
				"plan_id": str("Optional. ID of the meal plan to build the list from."),
				"days":    arrayOf("Optional. Days of the meal plan to build the list from.", object(nil)),
			}),
		},
		Def{
			Name:        "getShoppingList",
			Title:       "Get Shopping List",
			Description: "Get the user's current shopping list.",
			Input:       object(map[string]*jsonschema.Schema{"meal_plan_id": planID}),
		},
		Def{
			Name:        "addToShoppingList",
			Title:       "Add To Shopping List",
			Description: "Adds items to the shopping list. Items already on the list with the same unit have their quantities increased.",
			Input: object(map[string]*jsonschema.Schema{
				"items":        items("A list of items to add to the shopping list."),
				"meal_plan_id": planID,
			}, "items"),
		},
		Def{
			Name:        "removeFromShoppingList",
			Title:       "Remove From Shopping List",
			Description: "Removes items from the shopping list, for example after the user bought them.",
			Input: object(map[string]*jsonschema.Schema{
				"item_names":   strList("A list of item names to remove from the shopping list."),
				"meal_plan_id": planID,
			}, "item_names"),
		},
		Def{
			Name:        "getShoppingListItems",
			Title:       "List Shopping List Items",
			Description: "GET - Retrieves all items currently in the shopping list with their quantities and units.",
			Input:       object(map[string]*jsonschema.Schema{"meal_plan_id": planID}),
		},
		Def{
			Name:        "createShoppingListItems",
			Title:       "Create Shopping List Items",
			Description: "POST - Adds new items to the shopping list.",
			Input: object(map[string]*jsonschema.Schema{
				"items":        items("Array of new items to add to the shopping list."),
				"meal_plan_id": planID,
			}, "items"),
		},
		Def{
			Name:        "replaceShoppingList",
			Title:       "Replace Shopping List",
			Description: "PUT - Completely replaces the entire shopping list with new items. An empty list clears it.",
			Input: object(map[string]*jsonschema.Schema{
				"items":        items("Array of items that will replace the entire shopping list."),
				"meal_plan_id": planID,
			}, "items"),
		},
		Def{
			Name:        "updateShoppingListItem",
			Title:       "Update Shopping List Item",
			Description: "PATCH - Updates the quantity or unit of an item on the shopping list.",
			Input: object(map[string]*jsonschema.Schema{
				"item_name":    str("The name of the item to update."),
				"quantity":     num("Optional. New quantity for the item."),
				"unit":         str("Optional. New unit of measurement."),
				"meal_plan_id": planID,
			}, "item_name"),
		},
		Def{
			Name:        "deleteShoppingListItems",
			Title:       "Delete Shopping List Items",
			Description: "DELETE - Removes specific items from the shopping list.",
			Input: object(map[string]*jsonschema.Schema{
				"item_names":   strList("Array of item names to remove from the shopping list."),
				"meal_plan_id": planID,
			}, "item_names"),
		},
	)
}
