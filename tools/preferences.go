package tools

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/tools/storage"
)

var preferenceFields = []string{
	"restrictions", "goals", "habits", "swap_preferences", "meal_ratings",
	"cultural_heritage", "family_size", "notes", "key_info",
}

type Preferences struct {
	store storage.PreferencesStore
}

func NewPreferences(store storage.PreferencesStore) *Preferences {
	return &Preferences{store: store}
}

type swapInput struct {
	SwapFrequency       *string  `json:"swap_frequency"`
	PreferredCuisines   []string `json:"preferred_cuisines"`
	DislikedIngredients []string `json:"disliked_ingredients"`
}

type preferencesInput struct {
	Restrictions     []string       `json:"restrictions"`
	Goals            []string       `json:"goals"`
	Habits           []string       `json:"habits"`
	SwapPreferences  *swapInput     `json:"swap_preferences"`
	MealRatings      map[string]Num `json:"meal_ratings"`
	CulturalHeritage *string        `json:"cultural_heritage"`
	FamilySize       *Num           `json:"family_size"`
	Notes            *string        `json:"notes"`
	KeyInfo          map[string]any `json:"key_info"`
}

func (h *Preferences) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Preferences")
	}

	switch call.Name {
	case "getUserPreferences":
		return h.summary(ctx, userID)
	case "getUserPreferencesData":
		return h.details(ctx, userID)
	case "updateUserPreferences":
		in, err := decodeArgs[preferencesInput](call.Input)
		if err != nil {
			return "", err
		}
		return h.update(ctx, userID, in)
	case "updateUserPreferencesPartial":
		args, err := decodeArgs[struct {
			Updates preferencesInput `json:"updates"`
		}](call.Input)
		if err != nil {
			return "", err
		}
		return h.update(ctx, userID, args.Updates)
	case "createUserPreferences":
		return h.create(ctx, userID, call.Input)
	case "replaceUserPreferences":
		return h.replace(ctx, userID, call.Input)
	case "deleteUserPreferenceFields":
		return h.clear(ctx, userID, call.Input)
	}
	return NotHandled(call.Name), nil
}

// load returns the user's preferences, creating the default row on first access.
func (h *Preferences) load(ctx context.Context, userID string) (storage.Preferences, error) {
	prefs, err := h.store.GetPreferences(ctx, userID)
	if err != nil {
		return storage.Preferences{}, err
	}
	if prefs != nil {
		return *prefs, nil
	}
	created, err := h.store.SavePreferences(ctx, storage.DefaultPreferences(userID))
	if err != nil {
		return storage.Preferences{}, err
	}
	return *created, nil
}

func (h *Preferences) summary(ctx context.Context, userID string) (string, error) {
	p, err := h.load(ctx, userID)
	if err != nil {
		return "", backend("I had trouble fetching your preferences.", err)
	}
	addThought(ctx, "🔨 Preparing to call function: getUserPreferences", displayJSON(p))

	var b strings.Builder
	b.WriteString("Here are your current preferences:")
	fmt.Fprintf(&b, "\n- Dietary restrictions: %s", listOrNone(p.Restrictions))
	fmt.Fprintf(&b, "\n- Goals: %s", listOrNone(p.Goals))
	fmt.Fprintf(&b, "\n- Habits: %s", listOrNone(p.Habits))
	if p.FamilySize != nil {
		fmt.Fprintf(&b, "\n- Family size: %d", *p.FamilySize)
	}
	if c := deref(p.CulturalHeritage); c != "" {
		fmt.Fprintf(&b, "\n- Cultural heritage: %s", c)
	}
	return b.String(), nil
}

func (h *Preferences) details(ctx context.Context, userID string) (string, error) {
	p, err := h.load(ctx, userID)
	if err != nil {
		return "", backend("I had trouble retrieving your preferences.", err)
	}
	addThought(ctx, "✅ Retrieved user preferences", "")

	var b strings.Builder
	b.WriteString("User preferences:\n\n")
	fmt.Fprintf(&b, "Restrictions: %s\n", listOrNone(p.Restrictions))
	fmt.Fprintf(&b, "Goals: %s\n", listOrNone(p.Goals))
	fmt.Fprintf(&b, "Habits: %s\n", listOrNone(p.Habits))
	fmt.Fprintf(&b, "Swap frequency: %s\n", p.SwapPreferences.SwapFrequency)
	fmt.Fprintf(&b, "Preferred cuisines: %s\n", listOrNone(p.SwapPreferences.PreferredCuisines))
	fmt.Fprintf(&b, "Disliked ingredients: %s\n", listOrNone(p.SwapPreferences.DislikedIngredients))

	familySize := "Not specified"
	if p.FamilySize != nil {
		familySize = fmt.Sprintf("%d", *p.FamilySize)
	}
	fmt.Fprintf(&b, "Family size: %s\n", familySize)
	fmt.Fprintf(&b, "Cultural heritage: %s\n", orNotSpecified(deref(p.CulturalHeritage)))
	fmt.Fprintf(&b, "Notes: %s\n", orNotSpecified(deref(p.Notes)))

	if len(p.MealRatings) > 0 {
		b.WriteString("Meal ratings:\n")
		for _, meal := range slices.Sorted(maps.Keys(p.MealRatings)) {
			fmt.Fprintf(&b, "  - %s: %s\n", meal, formatQty(p.MealRatings[meal]))
		}
	}
	if len(p.KeyInfo) > 0 {
		b.WriteString("Key info:\n")
		for _, k := range slices.Sorted(maps.Keys(p.KeyInfo)) {
			fmt.Fprintf(&b, "  - %s: %s\n", k, p.KeyInfo[k].Text())
		}
	}
	return b.String(), nil
}

func (h *Preferences) update(ctx context.Context, userID string, in preferencesInput) (string, error) {
	const failMsg = "I had trouble updating your preferences."

	p, err := h.load(ctx, userID)
	if err != nil {
		return "", backend(failMsg, err)
	}
	fields, err := applyPreferences(&p, in)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", invalid("No preferences to update were provided.", nil)
	}
	if _, err := h.store.SavePreferences(ctx, p); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Updated user preferences", strings.Join(fields, ", "))
	return fmt.Sprintf("I've updated your preferences: %s.", strings.Join(fields, ", ")), nil
}

func (h *Preferences) create(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble creating your preferences."

	args, err := decodeArgs[struct {
		Preferences preferencesInput `json:"preferences"`
	}](input)
	if err != nil {
		return "", err
	}

	existing, err := h.store.GetPreferences(ctx, userID)
	if err != nil {
		return "", backend(failMsg, err)
	}
	if existing != nil {
		return "", invalid("You already have saved preferences. I can update them instead.", nil)
	}

	p := storage.DefaultPreferences(userID)
	if _, err := applyPreferences(&p, args.Preferences); err != nil {
		return "", err
	}
	if _, err := h.store.SavePreferences(ctx, p); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Created user preferences", "")
	return "I've created your preferences.", nil
}

// replace overwrites every field; fields left out return to their defaults.
func (h *Preferences) replace(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble replacing your preferences."

	args, err := decodeArgs[struct {
		Preferences preferencesInput `json:"preferences"`
	}](input)
	if err != nil {
		return "", err
	}

	current, err := h.load(ctx, userID)
	if err != nil {
		return "", backend(failMsg, err)
	}
	p := storage.DefaultPreferences(userID)
	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	if _, err := applyPreferences(&p, args.Preferences); err != nil {
		return "", err
	}
	if _, err := h.store.SavePreferences(ctx, p); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Replaced user preferences", "")
	return "I've completely replaced your preferences.", nil
}

// clear resets the named fields. "key_info.<key>" removes one fact.
func (h *Preferences) clear(ctx context.Context, userID string, input map[string]any) (string, error) {
	const failMsg = "I had trouble removing those preference fields."

	args, err := decodeArgs[struct {
		Fields []string `json:"fields"`
	}](input)
	if err != nil {
		return "", err
	}
	if len(args.Fields) == 0 {
		return "", invalid("Please tell me which preference fields to remove.", nil)
	}

	p, err := h.load(ctx, userID)
	if err != nil {
		return "", backend(failMsg, err)
	}

	defaults := storage.DefaultPreferences(userID)
	var cleared []string
	for _, f := range args.Fields {
		if key, ok := strings.CutPrefix(f, "key_info."); ok {
			if _, exists := p.KeyInfo[key]; exists {
				delete(p.KeyInfo, key)
				cleared = append(cleared, f)
			}
			continue
		}
		switch f {
		case "restrictions":
			p.Restrictions = defaults.Restrictions
		case "goals":
			p.Goals = defaults.Goals
		case "habits":
			p.Habits = defaults.Habits
		case "swap_preferences":
			p.SwapPreferences = defaults.SwapPreferences
		case "meal_ratings":
			p.MealRatings = defaults.MealRatings
		case "cultural_heritage":
			p.CulturalHeritage = nil
		case "family_size":
			p.FamilySize = nil
		case "notes":
			p.Notes = nil
		case "key_info":
			p.KeyInfo = defaults.KeyInfo
		default:
			return "", invalid(fmt.Sprintf("%q is not a preference field. Valid fields are: %s.", f, strings.Join(preferenceFields, ", ")), nil)
		}
		cleared = append(cleared, f)
	}
	if len(cleared) == 0 {
		return "", notFound("I couldn't find %s in your preferences.", strings.Join(args.Fields, ", "))
	}

	if _, err := h.store.SavePreferences(ctx, p); err != nil {
		return "", backend(failMsg, err)
	}
	addThought(ctx, "✅ Removed preference fields", strings.Join(cleared, ", "))
	return fmt.Sprintf("I've removed the following preference fields: %s.", strings.Join(cleared, ", ")), nil
}

// applyPreferences merges in into p and returns the fields it touched.
// Lists are replaced, ratings and key info are merged key by key.
func applyPreferences(p *storage.Preferences, in preferencesInput) ([]string, error) {
	var fields []string
	if in.Restrictions != nil {
		p.Restrictions = storage.StringList(in.Restrictions)
		fields = append(fields, "restrictions")
	}
	if in.Goals != nil {
		p.Goals = storage.StringList(in.Goals)
		fields = append(fields, "goals")
	}
	if in.Habits != nil {
		p.Habits = storage.StringList(in.Habits)
		fields = append(fields, "habits")
	}
	if s := in.SwapPreferences; s != nil {
		if s.SwapFrequency != nil {
			p.SwapPreferences.SwapFrequency = *s.SwapFrequency
		}
		if s.PreferredCuisines != nil {
			p.SwapPreferences.PreferredCuisines = storage.StringList(s.PreferredCuisines)
		}
		if s.DislikedIngredients != nil {
			p.SwapPreferences.DislikedIngredients = storage.StringList(s.DislikedIngredients)
		}
		fields = append(fields, "swap_preferences")
	}
	if len(in.MealRatings) > 0 {
		if p.MealRatings == nil {
			p.MealRatings = storage.MealRatings{}
		}
		for meal, r := range in.MealRatings {
			p.MealRatings[meal] = float64(r)
		}
		fields = append(fields, "meal_ratings")
	}
	if in.CulturalHeritage != nil {
		p.CulturalHeritage = strPtr(*in.CulturalHeritage)
		fields = append(fields, "cultural_heritage")
	}
	if in.FamilySize != nil {
		n := int(*in.FamilySize)
		if n <= 0 {
			return nil, invalid("Family size must be at least 1.", nil)
		}
		p.FamilySize = &n
		fields = append(fields, "family_size")
	}
	if in.Notes != nil {
		p.Notes = strPtr(*in.Notes)
		fields = append(fields, "notes")
	}
	if len(in.KeyInfo) > 0 {
		facts, err := storage.KeyInfoFrom(in.KeyInfo)
		if err != nil {
			return nil, invalid("Key info values must be text, numbers or true/false.", err)
		}
		if p.KeyInfo == nil {
			p.KeyInfo = storage.KeyInfo{}
		}
		maps.Copy(p.KeyInfo, facts)
		fields = append(fields, "key_info")
	}
	return fields, nil
}

func listOrNone(l []string) string {
	if len(l) == 0 {
		return "None"
	}
	return strings.Join(l, ", ")
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

func preferencesSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"restrictions": strList("Dietary restrictions (e.g., vegetarian, gluten-free)."),
		"goals":        strList("Health or nutrition goals."),
		"habits":       strList("Eating habits."),
		"swap_preferences": object(map[string]*jsonschema.Schema{
			"swap_frequency":       enum("How often to suggest ingredient swaps.", "low", "medium", "high"),
			"preferred_cuisines":   strList("Cuisines the user enjoys."),
			"disliked_ingredients": strList("Ingredients the user dislikes."),
		}),
		"meal_ratings": {
			Type:                 "object",
			Description:          "Ratings keyed by meal name.",
			AdditionalProperties: &jsonschema.Schema{Type: "number"},
		},
		"cultural_heritage": str("The user's cultural or culinary heritage."),
		"family_size":       integer("Number of people the user cooks for."),
		"notes":             str("Free-form notes about the user."),
		"key_info": {
			Type:        "object",
			Description: "Other facts about the user. Values must be strings, numbers or booleans.",
		},
	})
}

func (h *Preferences) Tools() []Tool {
	return Route(h,
		Def{
			Name:        "getUserPreferences",
			Title:       "Get User Preferences",
			Description: "Get the user's dietary restrictions, goals, habits and household details.",
		},
		Def{
			Name:        "updateUserPreferences",
			Title:       "Update User Preferences",
			Description: "Save dietary restrictions, goals, habits or other preferences the user mentions. Only the given fields change.",
			Input:       preferencesSchema(),
		},
		Def{
			Name:        "getUserPreferencesData",
			Title:       "Get User Preferences Data",
			Description: "GET - Retrieves every stored preference field, including meal ratings and key info.",
		},
		Def{
			Name:        "createUserPreferences",
			Title:       "Create User Preferences",
			Description: "POST - Creates the user's preferences when none exist yet.",
			Input:       object(map[string]*jsonschema.Schema{"preferences": preferencesSchema()}, "preferences"),
		},
		Def{
			Name:        "replaceUserPreferences",
			Title:       "Replace User Preferences",
			Description: "PUT - Completely replaces the user's preferences. Fields left out are reset.",
			Input:       object(map[string]*jsonschema.Schema{"preferences": preferencesSchema()}, "preferences"),
		},
		Def{
			Name:        "updateUserPreferencesPartial",
			Title:       "Update User Preferences Partially",
			Description: "PATCH - Updates specific preference fields.",
			Input:       object(map[string]*jsonschema.Schema{"updates": preferencesSchema()}, "updates"),
		},
		Def{
			Name:        "deleteUserPreferenceFields",
			Title:       "Delete User Preference Fields",
			Description: "DELETE - Resets the named preference fields. Use key_info.<key> to remove a single fact.",
			Input: object(map[string]*jsonschema.Schema{
				"fields": strList("Names of the fields to reset, e.g. goals or key_info.favorite_snack."),
			}, "fields"),
		},
	)
}
