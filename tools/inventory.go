package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/match"
	"miseagent/tools/storage"
)

// RestockFunc is told about items removed because their quantity ran out.
type RestockFunc func(ctx context.Context, item storage.InventoryItem)

type Inventory struct {
	store   storage.InventoryStore
	restock RestockFunc
}

func NewInventory(store storage.InventoryStore, restock RestockFunc) *Inventory {
	return &Inventory{store: store, restock: restock}
}

type inventoryInput struct {
	ItemName   string `json:"item_name"`
	Category   string `json:"category"`
	Quantity   Num    `json:"quantity"`
	Unit       string `json:"unit"`
	Location   string `json:"location"`
	ExpiryDate string `json:"expiry_date"`
	Notes      string `json:"notes"`
}

type inventoryPatch struct {
	ItemName   *string `json:"item_name"`
	Quantity   *Num    `json:"quantity"`
	Unit       *string `json:"unit"`
	Category   *string `json:"category"`
	Location   *string `json:"location"`
	ExpiryDate *string `json:"expiry_date"`
	Notes      *string `json:"notes"`
}

func (h *Inventory) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Inventory")
	}

	switch call.Name {
	case "updateInventory":
		return h.upsert(ctx, userID, call.Input)
	case "getInventory":
		return h.summary(ctx, userID)
	case "getInventoryItems":
		return h.details(ctx, userID)
	case "createInventoryItems":
		return h.create(ctx, userID, call.Input)
	case "replaceInventoryItem":
		return h.replace(ctx, userID, call.Input)
	case "updateInventoryItem":
		return h.patch(ctx, userID, call.Input)
	case "deleteInventoryItem":
		return h.remove(ctx, userID, call.Input)
	}
	return NotHandled(call.Name), nil
}

// upsert matches each item by normalized name and replaces its quantity.
// Quantities at or below zero remove the item instead.
func (h *Inventory) upsert(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble updating your inventory."

	args, err := decodeArgs[struct {
		Items []inventoryInput `json:"items"`
	}](input)
	if err != nil {
		return "", err
	}

	current, err := h.store.ListInventory(ctx, userID)
	if err != nil {
		return "", backend(failMsg, err)
	}

	// Items apply one at a time so later entries see earlier ones.
	for _, in := range args.Items {
		if strings.TrimSpace(in.ItemName) == "" {
			continue
		}
		idx := match.Index(in.ItemName, current, func(it storage.InventoryItem) string { return it.ItemName })

		if in.Quantity <= 0 {
			if idx >= 0 {
				if err := h.deleteEmpty(ctx, current[idx]); err != nil {
					return "", backend(failMsg, err)
				}
				current = append(current[:idx], current[idx+1:]...)
			}
			continue
		}

		if idx < 0 {
			item, err := in.toItem(userID)
			if err != nil {
				return "", err
			}
			added, err := h.store.InsertInventory(ctx, []storage.InventoryItem{item})
			if err != nil {
				return "", backend(failMsg, err)
			}
			current = append(current, added...)
			continue
		}

		existing := current[idx]
		existing.Quantity = float64(in.Quantity)
		if in.Unit != "" {
			existing.Unit = in.Unit
		}
		if in.Category != "" {
			existing.Category = in.Category
		}
		if in.Location != "" {
			existing.Location = strPtr(in.Location)
		}
		if in.Notes != "" {
			existing.Notes = strPtr(in.Notes)
		}
		if in.ExpiryDate != "" {
			d, err := parseDate(in.ExpiryDate)
			if err != nil {
				return "", err
			}
			existing.ExpiryDate = d
		}
		updated, err := h.store.UpdateInventoryItem(ctx, existing)
		if err != nil {
			return "", backend(failMsg, err)
		}
		current[idx] = *updated
	}

	addThought(ctx, "✅ Executed: updateInventory", "")
	return "I've updated your inventory with the new items.", nil
}

func (h *Inventory) summary(ctx context.Context, userID string) (string, error) {
	items, err := h.store.ListInventory(ctx, userID)
	if err != nil {
		return "", backend("I had trouble fetching your inventory.", err)
	}
	addThought(ctx, "🔨 Preparing to call function: getInventory", displayJSON(items))

	if len(items) == 0 {
		return "Your inventory is currently empty.", nil
	}
	var b strings.Builder
	b.WriteString("Here is your current inventory:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n- %s %s of %s", formatQty(it.Quantity), it.Unit, it.ItemName)
	}
	return b.String(), nil
}

func (h *Inventory) details(ctx context.Context, userID string) (string, error) {
	items, err := h.store.ListInventory(ctx, userID)
	if err != nil {
		return "", backend("I had trouble retrieving your inventory.", err)
	}
	addThought(ctx, "✅ Retrieved inventory items", "")

	if len(items) == 0 {
		return "No inventory items found.", nil
	}
	var b strings.Builder
	b.WriteString("Current inventory items:\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- ID: %s\n", it.ID)
		fmt.Fprintf(&b, "  Item: %s\n", it.ItemName)
		fmt.Fprintf(&b, "  Quantity: %s %s\n", formatQty(it.Quantity), it.Unit)
		fmt.Fprintf(&b, "  Category: %s\n", it.Category)
		location := deref(it.Location)
		if location == "" {
			location = "Not specified"
		}
		fmt.Fprintf(&b, "  Location: %s\n", location)
		if it.ExpiryDate != nil {
			fmt.Fprintf(&b, "  Expires: %s\n", it.ExpiryDate.Format(time.DateOnly))
		}
		if it.Notes != nil && *it.Notes != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", *it.Notes)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (h *Inventory) create(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		Items []inventoryInput `json:"items"`
	}](input)
	if err != nil {
		return "", err
	}

	items := make([]storage.InventoryItem, 0, len(args.Items))
	for _, in := range args.Items {
		if in.Quantity <= 0 {
			return "", invalid(fmt.Sprintf("I can't add %s with a quantity of %s.", in.ItemName, formatQty(in.Quantity)), nil)
		}
		item, err := in.toItem(userID)
		if err != nil {
			return "", err
		}
		items = append(items, item)
	}

	if _, err := h.store.InsertInventory(ctx, items); err != nil {
		return "", backend("I had trouble creating the inventory items.", err)
	}
	addThought(ctx, "✅ Created inventory items", "")
	return fmt.Sprintf("I've created %d new inventory item(s).", len(items)), nil
}

func (h *Inventory) replace(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble replacing the inventory item."

	args, err := decodeArgs[struct {
		ItemID   string         `json:"item_id"`
		ItemName string         `json:"item_name"`
		ItemData inventoryInput `json:"item_data"`
	}](input)
	if err != nil {
		return "", err
	}

	existing, err := h.resolve(ctx, userID, args.ItemID, args.ItemName, failMsg)
	if err != nil {
		return "", err
	}

	next, err := args.ItemData.toItem(userID)
	if err != nil {
		return "", err
	}
	next.ID = existing.ID

	if next.Quantity <= 0 {
		if err := h.deleteEmpty(ctx, *existing); err != nil {
			return "", backend(failMsg, err)
		}
		return fmt.Sprintf("I've removed %s from your inventory since the quantity reached zero.", existing.ItemName), nil
	}
	if _, err := h.store.UpdateInventoryItem(ctx, next); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Replaced inventory item", "")
	return fmt.Sprintf("I've completely replaced the inventory item with ID %s.", existing.ID), nil
}

func (h *Inventory) patch(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble updating the inventory item."

	args, err := decodeArgs[struct {
		ItemID   string         `json:"item_id"`
		ItemName string         `json:"item_name"`
		Updates  inventoryPatch `json:"updates"`
	}](input)
	if err != nil {
		return "", err
	}

	item, err := h.resolve(ctx, userID, args.ItemID, args.ItemName, failMsg)
	if err != nil {
		return "", err
	}

	u := args.Updates
	var fields []string
	if u.ItemName != nil {
		item.ItemName = *u.ItemName
		fields = append(fields, "item_name")
	}
	if u.Quantity != nil {
		item.Quantity = float64(*u.Quantity)
		fields = append(fields, "quantity")
	}
	if u.Unit != nil {
		item.Unit = *u.Unit
		fields = append(fields, "unit")
	}
	if u.Category != nil {
		item.Category = *u.Category
		fields = append(fields, "category")
	}
	if u.Location != nil {
		item.Location = strPtr(*u.Location)
		fields = append(fields, "location")
	}
	if u.ExpiryDate != nil {
		d, err := parseDate(*u.ExpiryDate)
		if err != nil {
			return "", err
		}
		item.ExpiryDate = d
		fields = append(fields, "expiry_date")
	}
	if u.Notes != nil {
		item.Notes = strPtr(*u.Notes)
		fields = append(fields, "notes")
	}
	if len(fields) == 0 {
		return "", invalid("No fields to update were provided.", nil)
	}

	if item.Quantity <= 0 {
		if err := h.deleteEmpty(ctx, *item); err != nil {
			return "", backend(failMsg, err)
		}
		return fmt.Sprintf("I've removed %s from your inventory since the quantity reached zero.", item.ItemName), nil
	}

	if _, err := h.store.UpdateInventoryItem(ctx, *item); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Updated inventory item", "")
	return fmt.Sprintf("I've updated the following fields for inventory item %s: %s.", item.ID, strings.Join(fields, ", ")), nil
}

func (h *Inventory) remove(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble deleting the inventory item."

	args, err := decodeArgs[struct {
		ItemID   string `json:"item_id"`
		ItemName string `json:"item_name"`
	}](input)
	if err != nil {
		return "", err
	}

	item, err := h.resolve(ctx, userID, args.ItemID, args.ItemName, failMsg)
	if err != nil {
		return "", err
	}
	if err := h.store.DeleteInventoryItem(ctx, userID, item.ID); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Deleted inventory item", "")
	return fmt.Sprintf("I've deleted the inventory item with ID %s.", item.ID), nil
}

// resolve finds an item by ID, falling back to a normalized name match on
// either the name or the ID text.
func (h *Inventory) resolve(ctx context.Context, userID, id, name, failMsg string) (*storage.InventoryItem, error) {
	if id != "" {
		item, err := h.store.GetInventoryItem(ctx, userID, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, backend(failMsg, err)
		}
	}

	query := name
	if query == "" {
		query = id
	}
	if query == "" {
		return nil, invalid("Please tell me which inventory item you mean.", nil)
	}

	items, err := h.store.ListInventory(ctx, userID)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	item, ok := match.Find(query, items, func(it storage.InventoryItem) string { return it.ItemName })
	if !ok {
		return nil, notFound("I couldn't find %q in your inventory.", query)
	}
	return &item, nil
}

func (h *Inventory) deleteEmpty(ctx context.Context, item storage.InventoryItem) error {
	if err := h.store.DeleteInventoryItem(ctx, item.UserID, item.ID); err != nil {
		return err
	}
	addThought(ctx, "🛒 Restock suggestion", fmt.Sprintf("You're out of %s. Consider adding it to your shopping list.", item.ItemName))
	if h.restock != nil {
		h.restock(ctx, item)
	}
	return nil
}

func (in inventoryInput) toItem(userID string) (storage.InventoryItem, error) {
	item := storage.InventoryItem{
		UserID:   userID,
		ItemName: strings.TrimSpace(in.ItemName),
		Category: in.Category,
		Quantity: float64(in.Quantity),
		Unit:     in.Unit,
		Location: strPtr(in.Location),
		Notes:    strPtr(in.Notes),
	}
	if item.ItemName == "" {
		return item, invalid("Each inventory item needs a name.", nil)
	}
	if in.ExpiryDate != "" {
		d, err := parseDate(in.ExpiryDate)
		if err != nil {
			return item, err
		}
		item.ExpiryDate = d
	}
	return item, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, invalid(fmt.Sprintf("%q is not a date in YYYY-MM-DD format.", s), err)
	}
	return &d, nil
}

func inventoryItemSchema(required ...string) *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"item_name":   str("Name of the item."),
		"category":    enum("Category of the item.", storage.Categories...),
		"quantity":    num("Quantity of the item."),
		"unit":        str("Unit of measurement (e.g., cups, lbs, pieces)."),
		"location":    str("Where the item is stored (e.g., pantry, fridge, freezer)."),
		"expiry_date": str("Optional. Expiry date in YYYY-MM-DD format."),
		"notes":       str("Additional notes about the item."),
	}, required...)
}

func (h *Inventory) Tools() []Tool {
	itemRef := map[string]*jsonschema.Schema{
		"item_id":   str("The ID of the item."),
		"item_name": str("Optional. The name of the item, used when the ID is not known."),
	}
	withRef := func(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
		out := map[string]*jsonschema.Schema{}
		for k, v := range itemRef {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	return Route(h,
		Def{
			Name:        "updateInventory",
			Title:       "Update Inventory",
			Description: "Add or update items in the user's home inventory/pantry. Use this when the user mentions they have certain ingredients or items at home. Quantities replace the stored amount; a quantity of 0 removes the item.",
			Input: object(map[string]*jsonschema.Schema{
				"items": arrayOf("List of inventory items to add or update.", inventoryItemSchema("item_name", "category", "quantity", "unit")),
			}, "items"),
		},
		Def{
			Name:        "getInventory",
			Title:       "Get Inventory",
			Description: "Get the user's current home inventory.",
		},
		Def{
			Name:        "getInventoryItems",
			Title:       "List Inventory Items",
			Description: "GET - Retrieves all inventory items with their IDs, quantities, units, and other details.",
		},
		Def{
			Name:        "createInventoryItems",
			Title:       "Create Inventory Items",
			Description: "POST - Creates new inventory items in the user's pantry/inventory.",
			Input: object(map[string]*jsonschema.Schema{
				"items": arrayOf("Array of new inventory items to create.", inventoryItemSchema("item_name", "quantity", "unit", "category")),
			}, "items"),
		},
		Def{
			Name:        "replaceInventoryItem",
			Title:       "Replace Inventory Item",
			Description: "PUT - Completely replaces an entire inventory item with new data.",
			Input: object(withRef(map[string]*jsonschema.Schema{
				"item_data": inventoryItemSchema("item_name", "quantity", "unit", "category"),
			}), "item_data"),
		},
		Def{
			Name:        "updateInventoryItem",
			Title:       "Update Inventory Item",
			Description: "PATCH - Partially updates specific fields of an inventory item. Setting quantity to 0 removes the item.",
			Input: object(withRef(map[string]*jsonschema.Schema{
				"updates": inventoryItemSchema(),
			}), "updates"),
		},
		Def{
			Name:        "deleteInventoryItem",
			Title:       "Delete Inventory Item",
			Description: "DELETE - Removes an inventory item completely from the user's inventory.",
			Input:       object(withRef(nil)),
		},
	)
}
