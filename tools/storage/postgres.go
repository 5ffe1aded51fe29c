package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Postgres is the Store backed by the hosted Postgres database.
type Postgres struct {
	DB *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{DB: db}
}

// OpenPostgres connects through the pgx driver and applies pool limits.
func OpenPostgres(ctx context.Context, dsn string, maxOpen, maxIdle int) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewPostgres(db), nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.DB.Close() }

func (p *Postgres) ListInventory(ctx context.Context, userID string) ([]InventoryItem, error) {
	items := []InventoryItem{}
	query := `SELECT * FROM user_inventory WHERE user_id = $1 ORDER BY category ASC, item_name ASC`
	if err := p.DB.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (p *Postgres) GetInventoryItem(ctx context.Context, userID, id string) (*InventoryItem, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var item InventoryItem
	query := `SELECT * FROM user_inventory WHERE user_id = $1 AND id = $2 LIMIT 1`
	if err := p.DB.GetContext(ctx, &item, query, userID, id); err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (p *Postgres) InsertInventory(ctx context.Context, items []InventoryItem) ([]InventoryItem, error) {
	query := `
        INSERT INTO user_inventory (id, user_id, item_name, category, quantity, unit, location, expiry_date, notes, created_at, updated_at)
        VALUES (:id, :user_id, :item_name, :category, :quantity, :unit, :location, :expiry_date, :notes, now(), now())
        RETURNING *
    `
	out := make([]InventoryItem, 0, len(items))
	err := p.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if it.ID == "" {
				it.ID = uuid.NewString()
			}
			it.Category = NormalizeCategory(it.Category)
			var saved InventoryItem
			if err := namedGet(ctx, tx, &saved, query, it); err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert inventory: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpdateInventoryItem(ctx context.Context, item InventoryItem) (*InventoryItem, error) {
	if !validID(item.ID) {
		return nil, ErrNotFound
	}
	item.Category = NormalizeCategory(item.Category)
	query := `
        UPDATE user_inventory
        SET item_name = :item_name,
            category = :category,
            quantity = :quantity,
            unit = :unit,
            location = :location,
            expiry_date = :expiry_date,
            notes = :notes,
            updated_at = now()
        WHERE id = :id AND user_id = :user_id
        RETURNING *
    `
	var saved InventoryItem
	if err := namedGet(ctx, p.DB, &saved, query, item); err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

func (p *Postgres) DeleteInventoryItem(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return p.deleteOne(ctx, `DELETE FROM user_inventory WHERE user_id = $1 AND id = $2`, userID, id)
}

func (p *Postgres) GetShoppingList(ctx context.Context, userID string, mealPlanID *string) (*ShoppingList, error) {
	var list ShoppingList
	query := `SELECT * FROM shopping_lists WHERE user_id = $1 AND meal_plan_id IS NOT DISTINCT FROM $2 LIMIT 1`
	if err := p.DB.GetContext(ctx, &list, query, userID, mealPlanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	return &list, nil
}

func (p *Postgres) SaveShoppingList(ctx context.Context, list ShoppingList) (*ShoppingList, error) {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.Items == nil {
		list.Items = ShoppingItems{}
	}
	query := `
        INSERT INTO shopping_lists (id, user_id, meal_plan_id, items, created_at, updated_at)
        VALUES (:id, :user_id, :meal_plan_id, :items, now(), now())
        ON CONFLICT (user_id, meal_plan_id) DO UPDATE
        SET items = EXCLUDED.items, updated_at = now()
        RETURNING *
    `
	var saved ShoppingList
	if err := namedGet(ctx, p.DB, &saved, query, list); err != nil {
		return nil, fmt.Errorf("save shopping list: %w", err)
	}
	return &saved, nil
}

func (p *Postgres) ListLeftovers(ctx context.Context, userID string) ([]Leftover, error) {
	items := []Leftover{}
	query := `SELECT * FROM user_leftovers WHERE user_id = $1 ORDER BY date_created DESC, meal_name ASC`
	if err := p.DB.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list leftovers: %w", err)
	}
	return items, nil
}

func (p *Postgres) GetLeftover(ctx context.Context, userID, id string) (*Leftover, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var item Leftover
	query := `SELECT * FROM user_leftovers WHERE user_id = $1 AND id = $2 LIMIT 1`
	if err := p.DB.GetContext(ctx, &item, query, userID, id); err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (p *Postgres) InsertLeftovers(ctx context.Context, items []Leftover) ([]Leftover, error) {
	query := `
        INSERT INTO user_leftovers (id, user_id, meal_name, servings, date_created, notes, created_at, updated_at)
        VALUES (:id, :user_id, :meal_name, :servings, COALESCE(:date_created, now()), :notes, now(), now())
        RETURNING *
    `
	out := make([]Leftover, 0, len(items))
	err := p.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if it.ID == "" {
				it.ID = uuid.NewString()
			}
			arg := leftoverArgs(it)
			var saved Leftover
			if err := namedGet(ctx, tx, &saved, query, arg); err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert leftovers: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpdateLeftover(ctx context.Context, item Leftover) (*Leftover, error) {
	if !validID(item.ID) {
		return nil, ErrNotFound
	}
	query := `
        UPDATE user_leftovers
        SET meal_name = :meal_name,
            servings = :servings,
            date_created = COALESCE(:date_created, date_created),
            notes = :notes,
            updated_at = now()
        WHERE id = :id AND user_id = :user_id
        RETURNING *
    `
	var saved Leftover
	if err := namedGet(ctx, p.DB, &saved, query, leftoverArgs(item)); err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

// leftoverArgs maps a zero date_created to NULL so the column default applies.
func leftoverArgs(l Leftover) map[string]any {
	var created *time.Time
	if !l.DateCreated.IsZero() {
		created = &l.DateCreated
	}
	return map[string]any{
		"id":           l.ID,
		"user_id":      l.UserID,
		"meal_name":    l.MealName,
		"servings":     l.Servings,
		"date_created": created,
		"notes":        l.Notes,
	}
}

func (p *Postgres) DeleteLeftover(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return p.deleteOne(ctx, `DELETE FROM user_leftovers WHERE user_id = $1 AND id = $2`, userID, id)
}

func (p *Postgres) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var prefs Preferences
	query := `SELECT * FROM user_preferences WHERE user_id = $1 LIMIT 1`
	if err := p.DB.GetContext(ctx, &prefs, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

func (p *Postgres) SavePreferences(ctx context.Context, prefs Preferences) (*Preferences, error) {
	if prefs.ID == "" {
		prefs.ID = uuid.NewString()
	}
	query := `
        INSERT INTO user_preferences (id, user_id, restrictions, goals, habits, swap_preferences, meal_ratings,
            cultural_heritage, family_size, notes, key_info, created_at, updated_at)
        VALUES (:id, :user_id, :restrictions, :goals, :habits, :swap_preferences, :meal_ratings,
            :cultural_heritage, :family_size, :notes, :key_info, now(), now())
        ON CONFLICT (user_id) DO UPDATE
        SET restrictions = EXCLUDED.restrictions,
            goals = EXCLUDED.goals,
            habits = EXCLUDED.habits,
            swap_preferences = EXCLUDED.swap_preferences,
            meal_ratings = EXCLUDED.meal_ratings,
            cultural_heritage = EXCLUDED.cultural_heritage,
            family_size = EXCLUDED.family_size,
            notes = EXCLUDED.notes,
            key_info = EXCLUDED.key_info,
            updated_at = now()
        RETURNING *
    `
	var saved Preferences
	if err := namedGet(ctx, p.DB, &saved, query, prefs); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return &saved, nil
}

func (p *Postgres) GetSearch(ctx context.Context, userID, query, country string) (*AmazonSearch, error) {
	var s AmazonSearch
	q := `SELECT * FROM amazon_search_cache WHERE user_id = $1 AND product_query = $2 AND country = $3 LIMIT 1`
	if err := p.DB.GetContext(ctx, &s, q, userID, CacheKey(query), country); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached search: %w", err)
	}
	return &s, nil
}

func (p *Postgres) SaveSearch(ctx context.Context, search AmazonSearch) (*AmazonSearch, error) {
	if search.ID == "" {
		search.ID = uuid.NewString()
	}
	search.ProductQuery = CacheKey(search.ProductQuery)
	query := `
        INSERT INTO amazon_search_cache (id, user_id, product_query, country, search_results, created_at, updated_at)
        VALUES (:id, :user_id, :product_query, :country, :search_results, now(), now())
        ON CONFLICT (user_id, product_query, country) DO UPDATE
        SET search_results = EXCLUDED.search_results, updated_at = now()
        RETURNING *
    `
	var saved AmazonSearch
	if err := namedGet(ctx, p.DB, &saved, query, search); err != nil {
		return nil, fmt.Errorf("save cached search: %w", err)
	}
	return &saved, nil
}

func (p *Postgres) ListSearches(ctx context.Context, userID string) ([]AmazonSearch, error) {
	out := []AmazonSearch{}
	query := `SELECT * FROM amazon_search_cache WHERE user_id = $1 ORDER BY updated_at DESC, product_query ASC`
	if err := p.DB.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list cached searches: %w", err)
	}
	return out, nil
}

func (p *Postgres) DeleteSearches(ctx context.Context, userID string, queries []string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(queries) == 0 {
		res, err = p.DB.ExecContext(ctx, `DELETE FROM amazon_search_cache WHERE user_id = $1`, userID)
	} else {
		keys := make([]string, 0, len(queries))
		for _, q := range queries {
			keys = append(keys, CacheKey(q))
		}
		var (
			query string
			args  []any
		)
		query, args, err = sqlx.In(`DELETE FROM amazon_search_cache WHERE user_id = ? AND product_query IN (?)`, userID, keys)
		if err != nil {
			return 0, fmt.Errorf("build cache delete: %w", err)
		}
		res, err = p.DB.ExecContext(ctx, p.DB.Rebind(query), args...)
	}
	if err != nil {
		return 0, fmt.Errorf("delete cached searches: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) GetSession(ctx context.Context, userID string) (*ChatSession, error) {
	var s ChatSession
	query := `SELECT * FROM chat_sessions WHERE user_id = $1 LIMIT 1`
	if err := p.DB.GetContext(ctx, &s, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) SaveSession(ctx context.Context, session ChatSession) (*ChatSession, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	query := `
        INSERT INTO chat_sessions (id, user_id, messages, thought_steps, created_at, updated_at)
        VALUES (:id, :user_id, :messages, :thought_steps, now(), now())
        ON CONFLICT (user_id) DO UPDATE
        SET messages = EXCLUDED.messages, thought_steps = EXCLUDED.thought_steps, updated_at = now()
        RETURNING *
    `
	var saved ChatSession
	if err := namedGet(ctx, p.DB, &saved, query, session); err != nil {
		return nil, fmt.Errorf("save chat session: %w", err)
	}
	return &saved, nil
}

func (p *Postgres) DeleteSession(ctx context.Context, userID string) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

func (p *Postgres) CreateSharedList(ctx context.Context, list SharedList) (*SharedList, error) {
	list.ID = uuid.NewString()
	if list.ShareToken == "" {
		list.ShareToken = NewShareToken()
	}
	if list.Title == "" {
		list.Title = DefaultSharedListTitle
	}
	list.ExpiresAt = time.Now().Add(SharedListTTL)
	query := `
        INSERT INTO shared_shopping_lists (id, share_token, shared_by_user_id, items, title, created_at, expires_at)
        VALUES (:id, :share_token, :shared_by_user_id, :items, :title, now(), :expires_at)
        RETURNING *
    `
	var saved SharedList
	if err := namedGet(ctx, p.DB, &saved, query, list); err != nil {
		return nil, fmt.Errorf("create shared list: %w", err)
	}
	return &saved, nil
}

func (p *Postgres) GetSharedList(ctx context.Context, token string) (*SharedList, error) {
	var l SharedList
	query := `SELECT * FROM shared_shopping_lists WHERE share_token = $1 AND expires_at > now() LIMIT 1`
	if err := p.DB.GetContext(ctx, &l, query, token); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (p *Postgres) deleteOne(ctx context.Context, query string, args ...any) error {
	res, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

type namedQueryer interface {
	BindNamed(query string, arg any) (string, []any, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// namedGet runs a named query and scans the single returned row into dest.
func namedGet(ctx context.Context, q namedQueryer, dest any, query string, arg any) error {
	bound, args, err := q.BindNamed(query, arg)
	if err != nil {
		return err
	}
	return q.QueryRowxContext(ctx, bound, args...).StructScan(dest)
}

// validID reports whether id can address a row. Names passed where an id is
// expected would otherwise fail the uuid cast instead of missing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
