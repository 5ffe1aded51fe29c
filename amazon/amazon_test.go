package amazon_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"miseagent/amazon"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: status, Status: http.StatusText(status), Body: io.NopCloser(bytes.NewBufferString(body))}, nil
	}
}

const fourProducts = `{"status":"OK","data":{"total_products":4,"products":[
	{"asin":"A1","product_title":"Milk 1","product_price":"$3.99","product_url":"https://amazon.com/dp/A1","is_prime":true},
	{"asin":"A2","product_title":"Milk 2","product_price":"$4.99","product_url":"https://amazon.com/dp/A2"},
	{"asin":"A3","product_title":"Milk 3","product_url":"https://amazon.com/dp/A3"},
	{"asin":"A4","product_title":"Milk 4","product_url":"https://amazon.com/dp/A4"}]}}`

func TestSearchRequest(t *testing.T) {
	var got *http.Request
	client := amazon.NewClient("key-123", "", "", &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		got = req
		return respond(http.StatusOK, fourProducts)(req)
	}})

	products, err := client.Search(context.Background(), "organic milk", "US")
	must.NoError(t, err)
	must.NotNil(t, got)

	should.Equal(t, "real-time-amazon-data.p.rapidapi.com", got.URL.Host)
	should.Equal(t, "/search", got.URL.Path)
	q := got.URL.Query()
	should.Equal(t, "organic milk", q.Get("query"))
	should.Equal(t, "US", q.Get("country"))
	should.Equal(t, "RELEVANCE", q.Get("sort_by"))
	should.Equal(t, "false", q.Get("is_prime"))
	should.Equal(t, "1", q.Get("page"))
	should.Equal(t, "key-123", got.Header.Get("x-rapidapi-key"))
	should.Equal(t, amazon.DefaultHost, got.Header.Get("x-rapidapi-host"))

	must.Len(t, products, amazon.MaxResults)
	should.Equal(t, "Milk 1", products[0].Title)
	should.True(t, products[0].IsPrime)
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		doFunc  func(*http.Request) (*http.Response, error)
		wantErr string
	}{
		{name: "missing key", apiKey: "", wantErr: amazon.ErrNoAPIKey.Error()},
		{name: "bad status", apiKey: "k", doFunc: respond(http.StatusTooManyRequests, ``), wantErr: "amazon search failed"},
		{name: "error envelope", apiKey: "k", doFunc: respond(http.StatusOK, `{"status":"ERROR","error":{"message":"quota exceeded"}}`), wantErr: "quota exceeded"},
		{name: "bad json", apiKey: "k", doFunc: respond(http.StatusOK, `{`), wantErr: "decode amazon search response"},
		{
			name:   "transport error",
			apiKey: "k",
			doFunc: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("network down")
			},
			wantErr: "network down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := amazon.NewClient(tt.apiKey, "", "http://example.test", &mockDoer{doFunc: tt.doFunc})
			_, err := client.Search(context.Background(), "eggs", "US")
			must.Error(t, err)
			should.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
