package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/5900820000011.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":1,"product":{"product_name":" Mleko 3,2% ","brands":"Łaciate"}}`))
	}))
	defer server.Close()

	p, err := NewClient(server.URL).Lookup(context.Background(), "5900820000011")
	require.NoError(t, err)
	assert.Equal(t, "5900820000011", p.Barcode)
	assert.Equal(t, "Mleko 3,2%", p.Name)
	assert.Equal(t, "Łaciate", p.Brand)
}

func TestLookupUnknownBarcode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Lookup(context.Background(), "12345678")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupHTTPNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Lookup(context.Background(), "12345678")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Lookup(context.Background(), "12345678")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Lookup(context.Background(), "12345678")
	assert.Error(t, err)
}

func TestLookupInvalidBarcode(t *testing.T) {
	c := NewClient("http://localhost:1")
	for _, code := range []string{"", "1234", "12345678abc", "../../etc", "123456789012345"} {
		_, err := c.Lookup(context.Background(), code)
		assert.ErrorIs(t, err, ErrInvalidBarcode, code)
	}
}

func TestLookupNetworkError(t *testing.T) {
	_, err := NewClient("http://localhost:99999").Lookup(context.Background(), "12345678")
	assert.Error(t, err)
}

func TestNewClientDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").baseURL)
	assert.Equal(t, "http://x", NewClient("http://x/").baseURL)
}
