package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Meals records meal suggestions and keeps the active meal plan.
type Meals struct {
	plans *Plans
}

func NewMeals(plans *Plans) *Meals {
	return &Meals{plans: plans}
}

var mealTypes = []string{"breakfast", "lunch", "dinner", "snacks"}

func (h *Meals) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Meal planning")
	}

	switch call.Name {
	case "suggestMeal":
		return h.suggest(ctx, call.Input)
	case "updateMealPlan":
		return h.update(ctx, userID, call.Input)
	}
	return NotHandled(call.Name), nil
}

func (h *Meals) suggest(ctx context.Context, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		MealType      string   `json:"meal_type"`
		Meal          Meal     `json:"meal"`
		Justification string   `json:"justification"`
		MissingItems  []string `json:"missing_items"`
	}](input)
	if err != nil {
		return "", err
	}
	if args.Meal.Name == "" {
		return "", invalid("A meal suggestion needs a meal name.", nil)
	}

	addThought(ctx, fmt.Sprintf("🍽️ Suggested %s", args.Meal.Name), args.Justification)

	msg := fmt.Sprintf("I've suggested %s", args.Meal.Name)
	if args.MealType != "" {
		msg += " for " + args.MealType
	}
	msg += "."
	if len(args.MissingItems) > 0 {
		msg += fmt.Sprintf(" You'll need to buy: %s.", strings.Join(args.MissingItems, ", "))
	}
	return msg, nil
}

func (h *Meals) update(ctx context.Context, userID string, input map[string]any) (string, error) {
	plan, err := decodeArgs[MealPlan](input)
	if err != nil {
		return "", err
	}
	if len(plan.Days) == 0 {
		return "", invalid("A meal plan needs at least one day.", nil)
	}
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}

	h.plans.Set(userID, plan)
	addThought(ctx, "📅 Updated meal plan", displayJSON(plan))
	return fmt.Sprintf("I've updated your meal plan with %d day(s).", len(plan.Days)), nil
}

func mealSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"name":     str("Name of the meal."),
		"calories": num("Estimated calories per serving."),
		"macros": object(map[string]*jsonschema.Schema{
			"protein": num("Grams of protein."),
			"carbs":   num("Grams of carbohydrates."),
			"fat":     num("Grams of fat."),
		}),
		"ingredients": arrayOf("Ingredients of the meal.", shoppingItemSchema()),
	}, "name")
}

func (h *Meals) Tools() []Tool {
	meals := map[string]*jsonschema.Schema{}
	for _, t := range mealTypes {
		meals[t] = mealSchema()
	}

	return Route(h,
		Def{
			Name:        "suggestMeal",
			Title:       "Suggest Meal",
			Description: "Suggest a single meal to the user, explaining why it fits and which ingredients are missing from their inventory.",
			Input: object(map[string]*jsonschema.Schema{
				"meal_type":     enum("Which meal of the day this is.", mealTypes...),
				"meal":          mealSchema(),
				"justification": str("Why this meal fits the user's inventory and preferences."),
				"missing_items": strList("Ingredients the user needs to buy."),
			}, "meal_type", "meal"),
		},
		Def{
			Name:        "updateMealPlan",
			Title:       "Update Meal Plan",
			Description: "Create or replace the user's meal plan for one or more days.",
			Input: object(map[string]*jsonschema.Schema{
				"plan_id": str("Optional. UUID of the plan being updated."),
				"days": arrayOf("Days of the plan.", object(map[string]*jsonschema.Schema{
					"date":  str("Date in YYYY-MM-DD format."),
					"day":   str("Day of the week."),
					"meals": object(meals),
				}, "meals")),
			}, "days"),
		},
	)
}
