package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Inventory categories. Anything else is stored as CategoryOther.
const (
	CategoryProteins      = "proteins"
	CategoryVegetables    = "vegetables"
	CategoryFruits        = "fruits"
	CategoryGrains        = "grains"
	CategoryDairy         = "dairy"
	CategorySpices        = "spices"
	CategoryPantryStaples = "pantry_staples"
	CategoryBeverages     = "beverages"
	CategoryFrozen        = "frozen"
	CategoryCanned        = "canned"
	CategoryOther         = "other"
)

var Categories = []string{
	CategoryProteins, CategoryVegetables, CategoryFruits, CategoryGrains, CategoryDairy,
	CategorySpices, CategoryPantryStaples, CategoryBeverages, CategoryFrozen, CategoryCanned,
	CategoryOther,
}

// NormalizeCategory maps c onto a known category.
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

type InventoryItem struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	ItemName   string     `db:"item_name" json:"item_name"`
	Category   string     `db:"category" json:"category"`
	Quantity   float64    `db:"quantity" json:"quantity"`
	Unit       string     `db:"unit" json:"unit"`
	Location   *string    `db:"location" json:"location,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

type ShoppingItem struct {
	ID       string  `json:"id,omitempty"`
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ShoppingItems is stored as a single JSON array column.
type ShoppingItems []ShoppingItem

func (s ShoppingItems) Value() (driver.Value, error) { return jsonValue(s, "[]") }
func (s *ShoppingItems) Scan(src any) error        { return jsonScan(src, s) }

type ShoppingList struct {
	ID         string        `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	MealPlanID *string       `db:"meal_plan_id" json:"meal_plan_id,omitempty"`
	Items      ShoppingItems `db:"items" json:"items"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

type Leftover struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	MealName    string    `db:"meal_name" json:"meal_name"`
	Servings    float64   `db:"servings" json:"servings"`
	DateCreated time.Time `db:"date_created" json:"date_created"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StringList is a JSON array of strings. A nil list is stored as [].
type StringList []string

func (s StringList) Value() (driver.Value, error) { return jsonValue(s, "[]") }
func (s *StringList) Scan(src any) error        { return jsonScan(src, s) }

type SwapPreferences struct {
	SwapFrequency       string     `json:"swap_frequency"`
	PreferredCuisines   StringList `json:"preferred_cuisines"`
	DislikedIngredients StringList `json:"disliked_ingredients"`
}

func DefaultSwapPreferences() SwapPreferences {
	return SwapPreferences{SwapFrequency: "medium", PreferredCuisines: StringList{}, DislikedIngredients: StringList{}}
}

func (s SwapPreferences) Value() (driver.Value, error) { return jsonValue(s, "{}") }
func (s *SwapPreferences) Scan(src any) error        { return jsonScan(src, s) }

// MealRatings maps a meal name to a rating.
type MealRatings map[string]float64

func (m MealRatings) Value() (driver.Value, error) { return jsonValue(m, "{}") }
func (m *MealRatings) Scan(src any) error        { return jsonScan(src, m) }

type FactKind string

const (
	FactString FactKind = "string"
	FactNumber FactKind = "number"
	FactBool   FactKind = "bool"
)

// Fact is one scalar value remembered about a user.
type Fact struct {
	Kind   FactKind
	String string
	Number float64
	Bool   bool
}

func StringFact(s string) Fact  { return Fact{Kind: FactString, String: s} }
func NumberFact(n float64) Fact { return Fact{Kind: FactNumber, Number: n} }
func BoolFact(b bool) Fact      { return Fact{Kind: FactBool, Bool: b} }

func (f Fact) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FactNumber:
		return json.Marshal(f.Number)
	case FactBool:
		return json.Marshal(f.Bool)
	default:
		return json.Marshal(f.String)
	}
}

func (f *Fact) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	fact, err := FactOf(v)
	if err != nil {
		return err
	}
	*f = fact
	return nil
}

// Text renders the fact for prompts and listings.
func (f Fact) Text() string {
	switch f.Kind {
	case FactNumber:
		return fmt.Sprintf("%g", f.Number)
	case FactBool:
		return fmt.Sprintf("%t", f.Bool)
	default:
		return f.String
	}
}

var ErrUnsupportedFact = errors.New("key info values must be strings, numbers or booleans")

// FactOf converts a decoded JSON value into a Fact.
func FactOf(v any) (Fact, error) {
	switch t := v.(type) {
	case string:
		return StringFact(t), nil
	case float64:
		return NumberFact(t), nil
	case int:
		return NumberFact(float64(t)), nil
	case bool:
		return BoolFact(t), nil
	default:
		return Fact{}, fmt.Errorf("%w: got %T", ErrUnsupportedFact, v)
	}
}

// KeyInfo holds free-form facts about a user, restricted to scalar values.
type KeyInfo map[string]Fact

// KeyInfoFrom validates a decoded JSON object.
func KeyInfoFrom(m map[string]any) (KeyInfo, error) {
	out := make(KeyInfo, len(m))
	for k, v := range m {
		f, err := FactOf(v)
		if err != nil {
			return nil, fmt.Errorf("key_info.%s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func (k KeyInfo) Value() (driver.Value, error) { return jsonValue(k, "{}") }
func (k *KeyInfo) Scan(src any) error        { return jsonScan(src, k) }

type Preferences struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	Restrictions     StringList      `db:"restrictions" json:"restrictions"`
	Goals            StringList      `db:"goals" json:"goals"`
	Habits           StringList      `db:"habits" json:"habits"`
	SwapPreferences  SwapPreferences `db:"swap_preferences" json:"swap_preferences"`
	MealRatings      MealRatings     `db:"meal_ratings" json:"meal_ratings"`
	CulturalHeritage *string         `db:"cultural_heritage" json:"cultural_heritage,omitempty"`
	FamilySize       *int            `db:"family_size" json:"family_size,omitempty"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
	KeyInfo          KeyInfo         `db:"key_info" json:"key_info"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences is the row created on first access.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:          userID,
		Restrictions:    StringList{},
		Goals:           StringList{},
		Habits:          StringList{},
		SwapPreferences: DefaultSwapPreferences(),
		MealRatings:     MealRatings{},
		KeyInfo:         KeyInfo{},
	}
}

// Product is one Amazon search hit.
type Product struct {
	ASIN          string  `json:"asin"`
	Title         string  `json:"product_title"`
	Price         string  `json:"product_price,omitempty"`
	OriginalPrice string  `json:"product_original_price,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	StarRating    string  `json:"product_star_rating,omitempty"`
	NumRatings    int     `json:"product_num_ratings,omitempty"`
	URL           string  `json:"product_url"`
	Photo         string  `json:"product_photo,omitempty"`
	IsPrime       bool    `json:"is_prime"`
	Delivery      string  `json:"delivery,omitempty"`
	UnitPrice     float64 `json:"unit_price,omitempty"`
}

// SearchResults is the cached payload of one product search.
type SearchResults struct {
	Query      string    `json:"query"`
	Country    string    `json:"country"`
	Products   []Product `json:"products"`
	SearchedAt time.Time `json:"searched_at"`
}

func (s SearchResults) Value() (driver.Value, error) { return jsonValue(s, "{}") }
func (s *SearchResults) Scan(src any) error        { return jsonScan(src, s) }

type AmazonSearch struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	ProductQuery  string        `db:"product_query" json:"product_query"`
	Country       string        `db:"country" json:"country"`
	SearchResults SearchResults `db:"search_results" json:"search_results"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// CacheKey is the product_query value a search is stored under.
func CacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessages []ChatMessage

func (m ChatMessages) Value() (driver.Value, error) { return jsonValue(m, "[]") }
func (m *ChatMessages) Scan(src any) error        { return jsonScan(src, m) }

const (
	StepPending   = "pending"
	StepActive    = "active"
	StepCompleted = "completed"
)

type ThoughtStep struct {
	ID      string `json:"id"`
	Step    string `json:"step"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

type ThoughtSteps []ThoughtStep

func (t ThoughtSteps) Value() (driver.Value, error) { return jsonValue(t, "[]") }
func (t *ThoughtSteps) Scan(src any) error        { return jsonScan(src, t) }

type ChatSession struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	Messages     ChatMessages `db:"messages" json:"messages"`
	ThoughtSteps ThoughtSteps `db:"thought_steps" json:"thought_steps"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// SharedListTTL is how long a shared shopping list stays readable.
const SharedListTTL = 7 * 24 * time.Hour

const DefaultSharedListTitle = "Shared Shopping List"

type SharedList struct {
	ID             string        `db:"id" json:"id"`
	ShareToken     string        `db:"share_token" json:"share_token"`
	SharedByUserID string        `db:"shared_by_user_id" json:"shared_by_user_id"`
	Items          ShoppingItems `db:"items" json:"items"`
	Title          string        `db:"title" json:"title"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time     `db:"expires_at" json:"expires_at"`
}

func jsonValue(v any, empty string) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	return json.Unmarshal(b, dst)
}

// NewShareToken returns a random URL-safe token for a shared list.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
