// Package slack posts restock alerts to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"miseagent/tools"
	"miseagent/tools/storage"
)

var ErrNoWebhook = errors.New("slack webhook URL is not configured")

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	if c.webhookURL == "" {
		return ErrNoWebhook
	}

	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}
	return nil
}

// RestockMessage is the alert text for an item that ran out.
func RestockMessage(item storage.InventoryItem) string {
	return fmt.Sprintf(":shopping_trolley: %s (%s) ran out. Add it to the shopping list?", item.ItemName, item.Category)
}

// Restock returns a callback that posts a RestockMessage to channel. Failures
// are logged; the inventory change has already happened.
func (c *Client) Restock(channel string) tools.RestockFunc {
	return func(ctx context.Context, item storage.InventoryItem) {
		if err := c.PostMessage(ctx, channel, RestockMessage(item)); err != nil {
			slog.Warn("SLACK: Failed to post restock alert", "item", item.ItemName, "error", err)
		}
	}
}
