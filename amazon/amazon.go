// Package amazon searches Amazon products through the RapidAPI
// real-time-amazon-data service.
package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"miseagent/tools/storage"
)

const (
	DefaultHost = "real-time-amazon-data.p.rapidapi.com"

	// MaxResults is the number of products kept per search.
	MaxResults = 3
)

var ErrNoAPIKey = errors.New("amazon search API key is not configured")

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	apiKey     string
	host       string
	baseURL    string
	httpClient doer
}

// NewClient builds a client for host. baseURL overrides https://<host> and is
// meant for tests.
func NewClient(apiKey, host, baseURL string, httpClient doer) *Client {
	if host == "" {
		host = DefaultHost
	}
	if baseURL == "" {
		baseURL = "https://" + host
	}
	return &Client{
		apiKey:     apiKey,
		host:       host,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type searchResponse struct {
	Status string `json:"status"`
	Data   struct {
		TotalProducts int               `json:"total_products"`
		Country       string            `json:"country"`
		Products      []storage.Product `json:"products"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search returns the top products for query in country.
func (c *Client) Search(ctx context.Context, query, country string) ([]storage.Product, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("country", country)
	params.Set("sort_by", "RELEVANCE")
	params.Set("product_condition", "ALL")
	params.Set("is_prime", "false")
	params.Set("deals_and_discounts", "NONE")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amazon search failed: %s", resp.Status)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode amazon search response: %w", err)
	}
	if out.Status != "OK" {
		msg := out.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("amazon search returned %s", msg)
	}

	products := out.Data.Products
	if len(products) > MaxResults {
		products = products[:MaxResults]
	}

	slog.Info("AMAZON: Search completed", "query", query, "country", country, "total", out.Data.TotalProducts, "kept", len(products))
	return products, nil
}
