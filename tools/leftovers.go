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

type Leftovers struct {
	store storage.LeftoverStore
	now   func() time.Time
}

func NewLeftovers(store storage.LeftoverStore) *Leftovers {
	return &Leftovers{store: store, now: time.Now}
}

type leftoverInput struct {
	MealName    string `json:"meal_name"`
	Servings    Num    `json:"servings"`
	DateCreated string `json:"date_created"`
	Notes       string `json:"notes"`
}

type leftoverPatch struct {
	MealName    *string `json:"meal_name"`
	Servings    *Num    `json:"servings"`
	DateCreated *string `json:"date_created"`
	Notes       *string `json:"notes"`
}

func (h *Leftovers) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Leftovers")
	}

	switch call.Name {
	case "getLeftovers":
		return h.summary(ctx, userID)
	case "showLeftovers":
		addThought(ctx, "✅ Executed: showLeftovers", "")
		return "I've opened your leftovers.", nil
	case "getLeftoverItems":
		return h.details(ctx, userID)
	case "addLeftover":
		return h.add(ctx, userID, call.Input)
	case "createLeftoverItems":
		return h.create(ctx, userID, call.Input)
	case "updateLeftover":
		return h.update(ctx, userID, call.Input)
	case "adjustLeftoverServings":
		return h.adjust(ctx, userID, call.Input)
	case "replaceLeftoverItem":
		return h.replace(ctx, userID, call.Input)
	case "updateLeftoverItemPartial":
		return h.patch(ctx, userID, call.Input)
	case "removeLeftover", "deleteLeftoverItem":
		return h.remove(ctx, userID, call.Input)
	}
	return NotHandled(call.Name), nil
}

func (h *Leftovers) summary(ctx context.Context, userID string) (string, error) {
	items, err := h.store.ListLeftovers(ctx, userID)
	if err != nil {
		return "", backend("I had trouble fetching your leftovers.", err)
	}
	addThought(ctx, "🔨 Preparing to call function: getLeftovers", displayJSON(items))

	if len(items) == 0 {
		return "You don't have any leftovers right now.", nil
	}
	var b strings.Builder
	b.WriteString("Here are your current leftovers:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n- %s: %s serving(s)", it.MealName, formatQty(it.Servings))
	}
	return b.String(), nil
}

func (h *Leftovers) details(ctx context.Context, userID string) (string, error) {
	items, err := h.store.ListLeftovers(ctx, userID)
	if err != nil {
		return "", backend("I had trouble retrieving your leftovers.", err)
	}
	addThought(ctx, "✅ Retrieved leftover items", "")

	if len(items) == 0 {
		return "No leftover items found.", nil
	}
	var b strings.Builder
	b.WriteString("Current leftover items:\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- ID: %s\n", it.ID)
		fmt.Fprintf(&b, "  Meal: %s\n", it.MealName)
		fmt.Fprintf(&b, "  Servings: %s\n", formatQty(it.Servings))
		fmt.Fprintf(&b, "  Created: %s\n", it.DateCreated.Format(time.DateOnly))
		if it.Notes != nil && *it.Notes != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", *it.Notes)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (h *Leftovers) add(ctx context.Context, userID string, input map[string]any) (string, error) {
	in, err := decodeArgs[leftoverInput](input)
	if err != nil {
		return "", err
	}
	item, err := h.toLeftover(userID, in)
	if err != nil {
		return "", err
	}
	if err := positiveServings(item); err != nil {
		return "", err
	}
	if _, err := h.store.InsertLeftovers(ctx, []storage.Leftover{item}); err != nil {
		return "", backend("I had trouble saving that leftover.", err)
	}
	addThought(ctx, "✅ Added leftover", item.MealName)
	return fmt.Sprintf("I've added %s servings of %s to your leftovers.", formatQty(item.Servings), item.MealName), nil
}

func (h *Leftovers) create(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		Items []leftoverInput `json:"items"`
	}](input)
	if err != nil {
		return "", err
	}
	if len(args.Items) == 0 {
		return "", invalid("Please tell me which leftovers to add.", nil)
	}

	items := make([]storage.Leftover, 0, len(args.Items))
	for _, in := range args.Items {
		item, err := h.toLeftover(userID, in)
		if err != nil {
			return "", err
		}
		if err := positiveServings(item); err != nil {
			return "", err
		}
		items = append(items, item)
	}
	if _, err := h.store.InsertLeftovers(ctx, items); err != nil {
		return "", backend("I had trouble creating the leftover items.", err)
	}
	addThought(ctx, "✅ Created leftover items", "")
	return fmt.Sprintf("I've created %d new leftover item(s).", len(items)), nil
}

// update sets servings and notes on a leftover found by ID. Servings at or
// below zero remove it.
func (h *Leftovers) update(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble updating that leftover."

	args, err := decodeArgs[struct {
		LeftoverID string  `json:"leftover_id"`
		MealName   string  `json:"meal_name"`
		Servings   *Num    `json:"servings"`
		Notes      *string `json:"notes"`
	}](input)
	if err != nil {
		return "", err
	}

	item, err := h.resolve(ctx, userID, args.LeftoverID, args.MealName, failMsg)
	if err != nil {
		return "", err
	}
	if args.Servings != nil {
		item.Servings = float64(*args.Servings)
	}
	if args.Notes != nil {
		item.Notes = strPtr(*args.Notes)
	}
	return h.save(ctx, *item, failMsg, fmt.Sprintf("I've updated your %s leftovers.", item.MealName))
}

func (h *Leftovers) adjust(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble adjusting those leftovers."

	args, err := decodeArgs[struct {
		MealName          string `json:"meal_name"`
		ServingAdjustment Num    `json:"serving_adjustment"`
	}](input)
	if err != nil {
		return "", err
	}
	if args.MealName == "" {
		return "", invalid("Please tell me which leftover to adjust.", nil)
	}

	item, err := h.resolve(ctx, userID, "", args.MealName, failMsg)
	if err != nil {
		return "", err
	}
	item.Servings += float64(args.ServingAdjustment)
	return h.save(ctx, *item, failMsg,
		fmt.Sprintf("I've adjusted your %s leftovers to %s serving(s).", item.MealName, formatQty(item.Servings)))
}

func (h *Leftovers) replace(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble replacing that leftover."

	args, err := decodeArgs[struct {
		LeftoverID   string        `json:"leftover_id"`
		MealName     string        `json:"meal_name"`
		LeftoverData leftoverInput `json:"leftover_data"`
	}](input)
	if err != nil {
		return "", err
	}

	existing, err := h.resolve(ctx, userID, args.LeftoverID, args.MealName, failMsg)
	if err != nil {
		return "", err
	}
	if args.LeftoverData.MealName == "" {
		args.LeftoverData.MealName = existing.MealName
	}
	next, err := h.toLeftover(userID, args.LeftoverData)
	if err != nil {
		return "", err
	}
	next.ID = existing.ID
	return h.save(ctx, next, failMsg, fmt.Sprintf("I've completely replaced the leftover item with ID %s.", existing.ID))
}

func (h *Leftovers) patch(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble updating that leftover."

	args, err := decodeArgs[struct {
		LeftoverID string        `json:"leftover_id"`
		MealName   string        `json:"meal_name"`
		Updates    leftoverPatch `json:"updates"`
	}](input)
	if err != nil {
		return "", err
	}

	item, err := h.resolve(ctx, userID, args.LeftoverID, args.MealName, failMsg)
	if err != nil {
		return "", err
	}

	u := args.Updates
	var fields []string
	if u.MealName != nil {
		item.MealName = *u.MealName
		fields = append(fields, "meal_name")
	}
	if u.Servings != nil {
		item.Servings = float64(*u.Servings)
		fields = append(fields, "servings")
	}
	if u.DateCreated != nil {
		d, err := parseDate(*u.DateCreated)
		if err != nil {
			return "", err
		}
		if d != nil {
			item.DateCreated = *d
		}
		fields = append(fields, "date_created")
	}
	if u.Notes != nil {
		item.Notes = strPtr(*u.Notes)
		fields = append(fields, "notes")
	}
	if len(fields) == 0 {
		return "", invalid("No fields to update were provided.", nil)
	}
	return h.save(ctx, *item, failMsg,
		fmt.Sprintf("I've updated the following fields for leftover item %s: %s.", item.ID, strings.Join(fields, ", ")))
}

func (h *Leftovers) remove(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble removing that leftover."

	args, err := decodeArgs[struct {
		LeftoverID string `json:"leftover_id"`
		MealName   string `json:"meal_name"`
	}](input)
	if err != nil {
		return "", err
	}

	item, err := h.resolve(ctx, userID, args.LeftoverID, args.MealName, failMsg)
	if err != nil {
		return "", err
	}
	if err := h.store.DeleteLeftover(ctx, userID, item.ID); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Removed leftover", item.MealName)
	return fmt.Sprintf("I've removed %s from your leftovers.", item.MealName), nil
}

// save writes item, or deletes it when no servings remain.
func (h *Leftovers) save(ctx context.Context, item storage.Leftover, failMsg, okMsg string) (string, error) {
	if item.Servings <= 0 {
		if err := h.store.DeleteLeftover(ctx, item.UserID, item.ID); err != nil {
			return "", backend(failMsg, err)
		}
		addThought(ctx, "✅ Removed leftover", item.MealName)
		return fmt.Sprintf("I've removed %s from your leftovers since no servings are left.", item.MealName), nil
	}
	if _, err := h.store.UpdateLeftover(ctx, item); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Updated leftover", item.MealName)
	return okMsg, nil
}

// resolve finds a leftover by ID, falling back to a normalized match on the
// meal name or the ID text.
func (h *Leftovers) resolve(ctx context.Context, userID, id, name, failMsg string) (*storage.Leftover, error) {
	if id != "" {
		item, err := h.store.GetLeftover(ctx, userID, id)
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
		return nil, invalid("Please tell me which leftover you mean.", nil)
	}

	items, err := h.store.ListLeftovers(ctx, userID)
	if err != nil {
		return nil, backend(failMsg, err)
	}
	item, ok := match.Find(query, items, func(l storage.Leftover) string { return l.MealName })
	if !ok {
		return nil, notFound("I couldn't find %q in your leftovers.", query)
	}
	return &item, nil
}

func positiveServings(item storage.Leftover) error {
	if item.Servings <= 0 {
		return invalid(fmt.Sprintf("I can't add %s with %s servings.", item.MealName, formatQty(item.Servings)), nil)
	}
	return nil
}

func (h *Leftovers) toLeftover(userID string, in leftoverInput) (storage.Leftover, error) {
	item := storage.Leftover{
		UserID:      userID,
		MealName:    strings.TrimSpace(in.MealName),
		Servings:    float64(in.Servings),
		DateCreated: h.now().UTC().Truncate(24 * time.Hour),
		Notes:       strPtr(in.Notes),
	}
	if item.MealName == "" {
		return item, invalid("Each leftover needs a meal name.", nil)
	}
	if in.DateCreated != "" {
		d, err := parseDate(in.DateCreated)
		if err != nil {
			return item, err
		}
		item.DateCreated = *d
	}
	return item, nil
}

func leftoverSchema(required ...string) *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"meal_name":    str("Name of the meal."),
		"servings":     num("Number of servings left."),
		"date_created": str("Optional. Date the meal was made, in YYYY-MM-DD format."),
		"notes":        str("Optional. Notes about the leftover."),
	}, required...)
}

func (h *Leftovers) Tools() []Tool {
	ref := func(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
		out := map[string]*jsonschema.Schema{
			"leftover_id": str("The ID of the leftover item."),
			"meal_name":   str("Optional. The meal name, used when the ID is not known."),
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	return Route(h,
		Def{
			Name:        "getLeftovers",
			Title:       "Get Leftovers",
			Description: "Get the user's current leftovers.",
		},
		Def{
			Name:        "showLeftovers",
			Title:       "Show Leftovers",
			Description: "Open the leftovers view for the user.",
		},
		Def{
			Name:        "addLeftover",
			Title:       "Add Leftover",
			Description: "Add a leftover meal with its remaining servings.",
			Input:       leftoverSchema("meal_name", "servings"),
		},
		Def{
			Name:        "updateLeftover",
			Title:       "Update Leftover",
			Description: "Update the servings or notes of a leftover. Servings of 0 remove it.",
			Input: object(ref(map[string]*jsonschema.Schema{
				"servings": num("Optional. New number of servings."),
				"notes":    str("Optional. New notes."),
			})),
		},
		Def{
			Name:        "adjustLeftoverServings",
			Title:       "Adjust Leftover Servings",
			Description: "Increase or decrease the servings of a leftover by name, for example -1 after the user ate one serving.",
			Input: object(map[string]*jsonschema.Schema{
				"meal_name":          str("Name of the leftover meal."),
				"serving_adjustment": num("Number of servings to add (positive) or remove (negative)."),
			}, "meal_name", "serving_adjustment"),
		},
		Def{
			Name:        "removeLeftover",
			Title:       "Remove Leftover",
			Description: "Remove a leftover by ID or meal name.",
			Input:       object(ref(nil)),
		},
		Def{
			Name:        "getLeftoverItems",
			Title:       "List Leftover Items",
			Description: "GET - Retrieves all leftover items with their IDs, servings and dates.",
		},
		Def{
			Name:        "createLeftoverItems",
			Title:       "Create Leftover Items",
			Description: "POST - Creates new leftover items.",
			Input: object(map[string]*jsonschema.Schema{
				"items": arrayOf("Array of leftover items to create.", leftoverSchema("meal_name", "servings")),
			}, "items"),
		},
		Def{
			Name:        "replaceLeftoverItem",
			Title:       "Replace Leftover Item",
			Description: "PUT - Completely replaces a leftover item with new data.",
			Input: object(ref(map[string]*jsonschema.Schema{
				"leftover_data": leftoverSchema("meal_name", "servings"),
			}), "leftover_data"),
		},
		Def{
			Name:        "updateLeftoverItemPartial",
			Title:       "Update Leftover Item",
			Description: "PATCH - Partially updates specific fields of a leftover item. Servings of 0 remove it.",
			Input: object(ref(map[string]*jsonschema.Schema{
				"updates": leftoverSchema(),
			}), "updates"),
		},
		Def{
			Name:        "deleteLeftoverItem",
			Title:       "Delete Leftover Item",
			Description: "DELETE - Removes a leftover item by ID.",
			Input:       object(ref(nil)),
		},
	)
}
