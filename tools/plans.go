package tools

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"miseagent/match"
	"miseagent/tools/storage"
)

type Ingredient struct {
	Item     string `json:"item"`
	Quantity Num    `json:"quantity"`
	Unit     string `json:"unit"`
}

type Macros struct {
	Protein Num `json:"protein"`
	Carbs   Num `json:"carbs"`
	Fat     Num `json:"fat"`
}

type Meal struct {
	Name        string       `json:"name"`
	Calories    Num          `json:"calories"`
	Macros      *Macros      `json:"macros,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
}

type DayMeals struct {
	Breakfast *Meal `json:"breakfast,omitempty"`
	Lunch     *Meal `json:"lunch,omitempty"`
	Dinner    *Meal `json:"dinner,omitempty"`
	Snacks    *Meal `json:"snacks,omitempty"`
}

func (d DayMeals) all() []*Meal {
	return []*Meal{d.Breakfast, d.Lunch, d.Dinner, d.Snacks}
}

type PlanDay struct {
	Date  string   `json:"date"`
	Day   string   `json:"day"`
	Meals DayMeals `json:"meals"`
}

type MealPlan struct {
	PlanID string    `json:"plan_id"`
	Days   []PlanDay `json:"days"`
}

// MealPlanID returns the plan id when it is a UUID, the form the
// shopping_lists.meal_plan_id column accepts.
func (p MealPlan) MealPlanID() *string {
	return validPlanID(p.PlanID)
}

func validPlanID(id string) *string {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return &id
}

// ShoppingItems sums every ingredient of the plan by name and unit.
func (p MealPlan) ShoppingItems() storage.ShoppingItems {
	out := storage.ShoppingItems{}
	for _, day := range p.Days {
		for _, meal := range day.Meals.all() {
			if meal == nil {
				continue
			}
			for _, ing := range meal.Ingredients {
				if strings.TrimSpace(ing.Item) == "" {
					continue
				}
				merged := false
				for i := range out {
					if match.Equal(out[i].Item, ing.Item) && strings.EqualFold(out[i].Unit, ing.Unit) {
						out[i].Quantity += float64(ing.Quantity)
						merged = true
						break
					}
				}
				if !merged {
					out = append(out, storage.ShoppingItem{Item: ing.Item, Quantity: float64(ing.Quantity), Unit: ing.Unit})
				}
			}
		}
	}
	return out
}

// Plans holds each user's current meal plan for the running process.
type Plans struct {
	mu     sync.RWMutex
	byUser map[string]MealPlan
}

func NewPlans() *Plans {
	return &Plans{byUser: map[string]MealPlan{}}
}

func (p *Plans) Set(userID string, plan MealPlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = plan
}

func (p *Plans) Get(userID string) (MealPlan, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	plan, ok := p.byUser[userID]
	return plan, ok
}
