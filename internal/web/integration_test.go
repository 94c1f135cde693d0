package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/foodwatch/internal/alert"
	"github.com/vbonduro/foodwatch/internal/backupstore"
	"github.com/vbonduro/foodwatch/internal/backupstore/local"
	"github.com/vbonduro/foodwatch/internal/category"
	"github.com/vbonduro/foodwatch/internal/db"
	"github.com/vbonduro/foodwatch/internal/lookup"
	"github.com/vbonduro/foodwatch/internal/metrics"
	"github.com/vbonduro/foodwatch/internal/notify"
	"github.com/vbonduro/foodwatch/internal/service"
	"github.com/vbonduro/foodwatch/internal/store"
	"github.com/vbonduro/foodwatch/internal/web"
)

// stubLookup answers from a fixed table and validates barcodes like the real
// client.
type stubLookup map[string]lookup.Product

func (s stubLookup) Lookup(_ context.Context, barcode string) (*lookup.Product, error) {
	if len(barcode) < 8 || len(barcode) > 14 {
		return nil, lookup.ErrInvalidBarcode
	}
	p, ok := s[barcode]
	if !ok {
		return nil, lookup.ErrNotFound
	}
	return &p, nil
}

// newTestServer sets up a real web.Server backed by in-memory SQLite. A nil
// backups disables the backup endpoint.
func newTestServer(t *testing.T, backups backupstore.Store) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	products := store.NewProductStore(database)
	alerts := store.NewAlertStore(database)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	engine := alert.NewEngine(products, alerts, notify.NewLogNotifier(logger), m, alert.Settings{
		NotifyExpired: true,
		NotifySoon:    true,
		SoonDays:      3,
		HistoryLimit:  20,
	}, logger)
	svc := service.NewPantryService(
		products,
		store.NewShoppingStore(database),
		store.NewHistoryStore(database),
		alerts,
		category.Default(),
		backups,
		3,
		logger,
	)
	lk := stubLookup{"5900820000011": {Barcode: "5900820000011", Name: "Mleko UHT", Brand: "Łaciate"}}

	srv := httptest.NewServer(web.NewServer(svc, engine, lk, m, logger))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func day(offset int) string {
	return time.Now().AddDate(0, 0, offset).Format("2006-01-02")
}

type productJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

type shoppingJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Status string `json:"status"`
}

func createProduct(t *testing.T, srv *httptest.Server, name, expiry string, qty int) productJSON {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/api/products", map[string]any{
		"name": name, "expiry": expiry, "quantity": qty, "location": "Lodówka",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[productJSON](t, body)
}

func TestIntegration_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	resp, body := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestIntegration_ProductLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	p := createProduct(t, srv, "Mleko 3,2%", day(1), 2)
	assert.Equal(t, "soon", p.Status)
	assert.Equal(t, "Nabiał", p.Category)

	resp, body := do(t, srv, http.MethodGet, "/api/products?location=Lodówka", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]productJSON](t, body), 1)

	resp, body = do(t, srv, http.MethodPut, "/api/products/1", map[string]any{
		"name": "Mleko 2%", "expiry": day(10), "quantity": 3, "location": "Spiżarnia",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decode[productJSON](t, body)
	assert.Equal(t, "Mleko 2%", updated.Name)
	assert.Equal(t, "ok", updated.Status)

	resp, _ = do(t, srv, http.MethodDelete, "/api/products/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "not found")
}

func TestIntegration_ProductBadRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"missing name", http.MethodPost, "/api/products", map[string]any{"location": "Lodówka"}},
		{"bad expiry", http.MethodPost, "/api/products", map[string]any{"name": "Ser", "location": "Lodówka", "expiry": "15.10.2026"}},
		{"unknown field", http.MethodPost, "/api/products", map[string]any{"name": "Ser", "location": "Lodówka", "colour": "yellow"}},
		{"bad id", http.MethodGet, "/api/products/abc", nil},
		{"negative amount", http.MethodPost, "/api/products/1/use", map[string]any{"amount": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		})
	}
}

func TestIntegration_UseProductUntilEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	createProduct(t, srv, "Jogurt naturalny", day(5), 2)

	// No body uses a single unit.
	resp, body := do(t, srv, http.MethodPost, "/api/products/1/use", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	first := decode[struct {
		Product productJSON `json:"product"`
		UsedUp  bool        `json:"usedUp"`
	}](t, body)
	assert.False(t, first.UsedUp)
	assert.Equal(t, 1, first.Product.Quantity)

	resp, body = do(t, srv, http.MethodPost, "/api/products/1/use", map[string]any{"amount": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	second := decode[struct {
		UsedUp       bool         `json:"usedUp"`
		ShoppingItem shoppingJSON `json:"shoppingItem"`
	}](t, body)
	assert.True(t, second.UsedUp)
	assert.Equal(t, "used", second.ShoppingItem.Source)

	resp, _ = do(t, srv, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = do(t, srv, http.MethodGet, "/api/stats", nil)
	stats := decode[service.Stats](t, body)
	assert.Equal(t, 1, stats.UsedUp)
	assert.Equal(t, 100, stats.ZeroWasteScore)
}

func TestIntegration_ShoppingList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	resp, body := do(t, srv, http.MethodPost, "/api/shopping", map[string]any{"name": "Chleb", "quantity": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	item := decode[shoppingJSON](t, body)
	assert.Equal(t, "manual", item.Source)
	assert.Equal(t, "pending", item.Status)

	resp, body = do(t, srv, http.MethodGet, "/api/shopping/estimate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	est := decode[struct {
		Count int `json:"count"`
	}](t, body)
	assert.Equal(t, 2, est.Count)

	resp, _ = do(t, srv, http.MethodPut, "/api/shopping/1/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPut, "/api/shopping/1/status", map[string]any{"done": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "done", decode[shoppingJSON](t, body).Status)

	resp, _ = do(t, srv, http.MethodPut, "/api/shopping/99/status", map[string]any{"done": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/shopping/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = do(t, srv, http.MethodGet, "/api/shopping", nil)
	assert.Empty(t, decode[[]shoppingJSON](t, body))
}

func TestIntegration_AlertPass(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	createProduct(t, srv, "Kefir", day(-2), 1)
	createProduct(t, srv, "Masło", day(1), 1)
	createProduct(t, srv, "Ryż", day(200), 1)

	resp, body := do(t, srv, http.MethodPost, "/api/alerts/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[alert.PassResult](t, body)
	assert.Equal(t, alert.PassResult{Expired: 1, Soon: 1, Migrated: 1, Notified: true}, res)

	// A second pass does not migrate the same product again.
	_, body = do(t, srv, http.MethodPost, "/api/alerts/run", nil)
	assert.Equal(t, 0, decode[alert.PassResult](t, body).Migrated)

	_, body = do(t, srv, http.MethodGet, "/api/shopping", nil)
	items := decode[[]shoppingJSON](t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "Kefir", items[0].Name)
	assert.Equal(t, "expired_auto", items[0].Source)

	_, body = do(t, srv, http.MethodGet, "/api/alerts", nil)
	assert.Len(t, decode[[]json.RawMessage](t, body), 2)

	_, body = do(t, srv, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, service.Dashboard{Total: 3, Soon: 1, Expired: 1, SoonDays: 3}, decode[service.Dashboard](t, body))
}

func TestIntegration_ExportAndBackup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	backups, err := local.New(t.TempDir())
	require.NoError(t, err)
	srv := newTestServer(t, backups)
	createProduct(t, srv, "Ser żółty", day(4), 1)

	resp, body := do(t, srv, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	exp := decode[struct {
		Version  int               `json:"version"`
		Products []json.RawMessage `json:"products"`
		Shopping []json.RawMessage `json:"shopping"`
	}](t, body)
	assert.Equal(t, service.ExportVersion, exp.Version)
	assert.Len(t, exp.Products, 1)
	assert.NotNil(t, exp.Shopping)

	resp, body = do(t, srv, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	key := decode[map[string]string](t, body)["key"]
	assert.True(t, strings.HasPrefix(key, "foodwatch-export_"), key)

	rc, contentType, err := backups.Get(context.Background(), key)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	assert.Equal(t, "application/json", contentType)

	resp, body = do(t, srv, http.MethodGet, "/api/backups/"+key, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), key)
	downloaded := decode[struct {
		Version  int               `json:"version"`
		Products []json.RawMessage `json:"products"`
	}](t, body)
	assert.Equal(t, service.ExportVersion, downloaded.Version)
	assert.Len(t, downloaded.Products, 1)

	resp, _ = do(t, srv, http.MethodDelete, "/api/backups/"+key, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/backups/"+key, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodDelete, "/api/backups/"+key, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_BackupDisabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	resp, _ := do(t, srv, http.MethodPost, "/api/backup", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/backups/foodwatch-export.json", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestIntegration_LookupAndClassify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	resp, body := do(t, srv, http.MethodGet, "/api/lookup/5900820000011", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	found := decode[struct {
		Name     string        `json:"name"`
		Brand    string        `json:"brand"`
		Category category.Rule `json:"category"`
	}](t, body)
	assert.Equal(t, "Mleko UHT", found.Name)
	assert.Equal(t, "Nabiał", found.Category.Category)

	resp, _ = do(t, srv, http.MethodGet, "/api/lookup/5900820000028", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/lookup/123", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/classify?name=kefir", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Nabiał", decode[category.Rule](t, body).Category)

	resp, _ = do(t, srv, http.MethodGet, "/api/classify", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, srv, http.MethodGet, "/api/categories", nil)
	rules := decode[[]category.Rule](t, body)
	require.NotEmpty(t, rules)
	assert.True(t, rules[len(rules)-1].IsFallback())
}

func TestIntegration_History(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	createProduct(t, srv, "Kefir", day(3), 1)
	createProduct(t, srv, "Masło", day(3), 1)

	resp, body := do(t, srv, http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]struct {
		Type        string `json:"type"`
		ProductName string `json:"productName"`
	}](t, body)
	require.Len(t, entries, 1)
	assert.Equal(t, "Masło", entries[0].ProductName)

	resp, _ = do(t, srv, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_Metrics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodGet, "/api/products", nil)
	do(t, srv, http.MethodGet, "/nope", nil)

	resp, body := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `foodwatch_http_requests_total{method="GET",path="GET /api/products",status="200"} 1`)
	assert.Contains(t, text, `path="unmatched",status="404"`)
}
