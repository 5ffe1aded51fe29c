package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/tools/storage"
)

const DefaultCountry = "US"

// ProductSearcher runs a live product search.
type ProductSearcher interface {
	Search(ctx context.Context, query, country string) ([]storage.Product, error)
}

// Amazon answers product searches from the per-user cache, falling back to a
// live search whose result is then cached.
type Amazon struct {
	cache    storage.AmazonCache
	searcher ProductSearcher
	country  string
	delay    time.Duration
	now      func() time.Time
}

// NewAmazon waits delay between live searches of a batch. A nil searcher
// serves cached results only.
func NewAmazon(cache storage.AmazonCache, searcher ProductSearcher, country string, delay time.Duration) *Amazon {
	if country == "" {
		country = DefaultCountry
	}
	return &Amazon{cache: cache, searcher: searcher, country: country, delay: delay, now: time.Now}
}

type searchOutcome int

const (
	searchLive searchOutcome = iota
	searchCached
)

func (h *Amazon) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Amazon search")
	}

	switch call.Name {
	case "searchAmazonProduct":
		return h.searchOne(ctx, userID, call.Input)
	case "searchMultipleAmazonProducts":
		return h.searchMany(ctx, userID, call.Input)
	case "getAmazonSearchResults":
		return h.results(ctx, userID, call.Input)
	case "clearAmazonSearchCache":
		return h.clear(ctx, userID, call.Input)
	}
	return NotHandled(call.Name), nil
}

func (h *Amazon) countryOr(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return h.country
	}
	return c
}

// lookup returns the cached search for query or runs and caches a live one.
func (h *Amazon) lookup(ctx context.Context, userID, query, country string) (storage.SearchResults, searchOutcome, error) {
	cached, err := h.cache.GetSearch(ctx, userID, query, country)
	if err != nil {
		return storage.SearchResults{}, 0, backend("I had trouble reading your saved Amazon searches.", err)
	}
	if cached != nil {
		slog.Info("AMAZON: Cache hit", "query", query, "country", country)
		return cached.SearchResults, searchCached, nil
	}

	if h.searcher == nil {
		return storage.SearchResults{}, 0, unavailable("Amazon search isn't available right now.", nil)
	}
	products, err := h.searcher.Search(ctx, query, country)
	if err != nil {
		return storage.SearchResults{}, 0, unavailable(fmt.Sprintf("I couldn't search Amazon for %s right now.", query), err)
	}

	results := storage.SearchResults{Query: query, Country: country, Products: products, SearchedAt: h.now().UTC()}
	if _, err := h.cache.SaveSearch(ctx, storage.AmazonSearch{
		UserID:        userID,
		ProductQuery:  query,
		Country:       country,
		SearchResults: results,
	}); err != nil {
		// The live result is still usable.
		slog.Warn("AMAZON: Failed to cache search", "query", query, "error", err)
	}
	return results, searchLive, nil
}

func (h *Amazon) searchOne(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		ProductName string `json:"product_name"`
		Quantity    Num    `json:"quantity"`
		Unit        string `json:"unit"`
		Country     string `json:"country"`
	}](input)
	if err != nil {
		return "", err
	}
	query := strings.TrimSpace(args.ProductName)
	if query == "" {
		return "", invalid("Please tell me which product to search for.", nil)
	}

	results, outcome, err := h.lookup(ctx, userID, query, h.countryOr(args.Country))
	if err != nil {
		return "", err
	}
	addThought(ctx, "🛒 Searched Amazon", query)

	if len(results.Products) == 0 {
		return fmt.Sprintf("I couldn't find any Amazon products for %s.", query), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d Amazon product(s) for %s", len(results.Products), query)
	if args.Quantity > 0 {
		fmt.Fprintf(&b, " (you need %s %s)", formatQty(args.Quantity), args.Unit)
	}
	if outcome == searchCached {
		b.WriteString(" from your saved searches")
	}
	b.WriteString(":")
	writeProducts(&b, results.Products)
	return b.String(), nil
}

func (h *Amazon) searchMany(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		Items []struct {
			Item     string `json:"item"`
			Quantity Num    `json:"quantity"`
			Unit     string `json:"unit"`
		} `json:"shopping_list_items"`
		Country string `json:"country"`
	}](input)
	if err != nil {
		return "", err
	}
	if len(args.Items) == 0 {
		return "", invalid("Please give me the shopping list items to search for.", nil)
	}
	country := h.countryOr(args.Country)

	var searched, cached int
	var failed []string
	for i, it := range args.Items {
		query := strings.TrimSpace(it.Item)
		if query == "" {
			continue
		}
		_, outcome, err := h.lookup(ctx, userID, query, country)
		switch {
		case err != nil:
			slog.Warn("AMAZON: Batch search failed", "query", query, "error", err)
			failed = append(failed, query)
		case outcome == searchCached:
			cached++
			continue
		default:
			searched++
		}
		if i < len(args.Items)-1 {
			if err := h.pause(ctx); err != nil {
				return "", unavailable("The Amazon search was interrupted.", err)
			}
		}
	}
	addThought(ctx, "🛒 Searched Amazon for shopping list", fmt.Sprintf("%d searched, %d cached, %d failed", searched, cached, len(failed)))

	msg := fmt.Sprintf("I searched Amazon for %d item(s): %d new search(es), %d from your saved searches, %d failed.",
		searched+cached+len(failed), searched, cached, len(failed))
	if len(failed) > 0 {
		msg += fmt.Sprintf(" I couldn't search for: %s.", strings.Join(failed, ", "))
	}
	return msg, nil
}

// pause spaces out live requests in a batch.
func (h *Amazon) pause(ctx context.Context) error {
	if h.delay <= 0 {
		return nil
	}
	t := time.NewTimer(h.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (h *Amazon) results(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		ProductNames []string `json:"product_names"`
	}](input)
	if err != nil {
		return "", err
	}

	searches, err := h.cache.ListSearches(ctx, userID)
	if err != nil {
		return "", backend("I had trouble reading your saved Amazon searches.", err)
	}
	if len(args.ProductNames) > 0 {
		want := map[string]bool{}
		for _, n := range args.ProductNames {
			want[storage.CacheKey(n)] = true
		}
		kept := searches[:0]
		for _, s := range searches {
			if want[s.ProductQuery] {
				kept = append(kept, s)
			}
		}
		searches = kept
	}
	addThought(ctx, "✅ Retrieved saved Amazon searches", "")

	if len(searches) == 0 {
		return "You don't have any saved Amazon searches yet.", nil
	}
	var b strings.Builder
	b.WriteString("Here are your saved Amazon searches:")
	for _, s := range searches {
		fmt.Fprintf(&b, "\n\n%s (%s):", s.ProductQuery, s.Country)
		writeProducts(&b, s.SearchResults.Products)
	}
	return b.String(), nil
}

func (h *Amazon) clear(ctx context.Context, userID string, input map[string]any) (string, error) {
	args, err := decodeArgs[struct {
		ProductNames []string `json:"product_names"`
	}](input)
	if err != nil {
		return "", err
	}

	n, err := h.cache.DeleteSearches(ctx, userID, args.ProductNames)
	if err != nil {
		return "", backend("I had trouble clearing your saved Amazon searches.", err)
	}
	addThought(ctx, "✅ Cleared Amazon search cache", "")
	return fmt.Sprintf("I've cleared %d saved Amazon search(es).", n), nil
}

func writeProducts(b *strings.Builder, products []storage.Product) {
	if len(products) == 0 {
		b.WriteString("\n  No products found.")
		return
	}
	for i, p := range products {
		fmt.Fprintf(b, "\n%d. %s", i+1, p.Title)
		if p.Price != "" {
			fmt.Fprintf(b, " - %s", p.Price)
		}
		if p.IsPrime {
			b.WriteString(" (Prime)")
		}
		if p.StarRating != "" {
			fmt.Fprintf(b, ", %s stars", p.StarRating)
		}
		if p.URL != "" {
			fmt.Fprintf(b, "\n   %s", p.URL)
		}
	}
}

func (h *Amazon) Tools() []Tool {
	country := str("Optional. Two-letter Amazon marketplace country code, e.g. US or GB.")
	productNames := strList("Optional. Product names to limit the operation to.")

	return Route(h,
		Def{
			Name:        "searchAmazonProduct",
			Title:       "Search Amazon Product",
			Description: "Search Amazon for a product the user needs. Saved results are reused.",
			Input: object(map[string]*jsonschema.Schema{
				"product_name": str("The product to search for."),
				"quantity":     num("Optional. Quantity needed."),
				"unit":         str("Optional. Unit for the quantity."),
				"country":      country,
			}, "product_name"),
		},
		Def{
			Name:        "searchMultipleAmazonProducts",
			Title:       "Search Multiple Amazon Products",
			Description: "Search Amazon for every item of a shopping list. Saved results are reused.",
			Input: object(map[string]*jsonschema.Schema{
				"shopping_list_items": arrayOf("Shopping list items to search for.", shoppingItemSchema()),
				"country":             country,
			}, "shopping_list_items"),
		},
		Def{
			Name:        "getAmazonSearchResults",
			Title:       "Get Amazon Search Results",
			Description: "List the user's saved Amazon search results.",
			Input:       object(map[string]*jsonschema.Schema{"product_names": productNames}),
		},
		Def{
			Name:        "clearAmazonSearchCache",
			Title:       "Clear Amazon Search Cache",
			Description: "Delete saved Amazon search results, either all of them or only for the given products.",
			Input:       object(map[string]*jsonschema.Schema{"product_names": productNames}),
		},
	)
}
