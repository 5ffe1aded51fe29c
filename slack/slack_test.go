package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"miseagent/slack"
	"miseagent/tools/storage"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.doFunc(req)
}

func ok(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		webhook string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr string
	}{
		{name: "success", webhook: "http://example.com/webhook", doFunc: ok},
		{
			name:    "failure status",
			webhook: "http://example.com/webhook",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: "failed to post message: 400 Bad Request",
		},
		{
			name:    "do error",
			webhook: "http://example.com/webhook",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: "network error",
		},
		{name: "no webhook", doFunc: ok, wantErr: slack.ErrNoWebhook.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient(tt.webhook, &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#groceries", "Hello")
			if tt.wantErr == "" {
				should.NoError(t, err)
				return
			}
			should.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRestock(t *testing.T) {
	var body map[string]string
	d := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return ok(req)
	}}

	restock := slack.NewClient("http://example.com/webhook", d).Restock("#groceries")
	restock(context.Background(), storage.InventoryItem{ItemName: "Milk", Category: "dairy"})

	should.Equal(t, 1, d.calls)
	should.Equal(t, "#groceries", body["channel"])
	should.Equal(t, ":shopping_trolley: Milk (dairy) ran out. Add it to the shopping list?", body["text"])
}

func TestRestock_FailureIsSwallowed(t *testing.T) {
	d := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) { return nil, errors.New("down") }}
	restock := slack.NewClient("http://example.com/webhook", d).Restock("#groceries")

	should.NotPanics(t, func() {
		restock(context.Background(), storage.InventoryItem{ItemName: "Eggs", Category: "dairy"})
	})
	should.Equal(t, 1, d.calls)
}
