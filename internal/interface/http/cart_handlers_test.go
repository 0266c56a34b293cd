package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	domproduct "example.com/shoecart/internal/domain/product"
	"example.com/shoecart/internal/infra/metrics"
	"example.com/shoecart/internal/infra/notify"
	"example.com/shoecart/internal/infra/persistence/memory"
	"example.com/shoecart/internal/infra/security"
	cartuc "example.com/shoecart/internal/usecase/cart"
	productuc "example.com/shoecart/internal/usecase/product"
	sessionuc "example.com/shoecart/internal/usecase/session"
)

type fakeInventory struct {
	products map[int64]domproduct.Product
	stock    map[int64]int64
	err      error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		products: map[int64]domproduct.Product{
			1: {ID: 1, Title: "Tênis de Caminhada Leve Confortável", Price: 179.9, Image: "https://img/1.jpg"},
			2: {ID: 2, Title: "Tênis VR Caminhada Confortável", Price: 139.9, Image: "https://img/2.jpg"},
		},
		stock: map[int64]int64{1: 2, 2: 5},
	}
}

func (f *fakeInventory) GetStock(ctx context.Context, id int64) (domproduct.Stock, error) {
	if f.err != nil {
		return domproduct.Stock{}, f.err
	}
	amount, ok := f.stock[id]
	if !ok {
		return domproduct.Stock{}, domproduct.ErrProductNotFound
	}
	return domproduct.Stock{ID: id, Amount: amount}, nil
}

func (f *fakeInventory) GetProduct(ctx context.Context, id int64) (domproduct.Product, error) {
	if f.err != nil {
		return domproduct.Product{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return domproduct.Product{}, domproduct.ErrProductNotFound
	}
	return p, nil
}

type flakyStorage struct {
	*memory.SnapshotRepository
	loadErr error
}

func (f *flakyStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.SnapshotRepository.Load(ctx, key)
}

type testEnv struct {
	router    http.Handler
	inventory *fakeInventory
	storage   *flakyStorage
	token     string
}

func setupCartAPI(t *testing.T) *testEnv {
	t.Helper()
	inventory := newFakeInventory()
	storage := &flakyStorage{SnapshotRepository: memory.NewSnapshotRepository()}
	feed := notify.NewFeed(0)
	m := metrics.New()

	registry := cartuc.NewRegistry("", cartuc.Dependencies{
		Inventory: inventory,
		Storage:   storage,
		Notifier:  feed,
		Metrics:   m,
		Logger:    zerolog.Nop(),
	})
	sessionSvc := sessionuc.NewService(security.NewJWTService("test-secret", time.Hour))

	api := NewAPI(Dependencies{
		SessionService: sessionSvc,
		Carts:          registry,
		ProductService: productuc.NewService(inventory),
		Feed:           feed,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		Logger:         zerolog.Nop(),
	})

	env := &testEnv{
		router:    api.Router(),
		inventory: inventory,
		storage:   storage,
	}
	env.token = env.startSession(t)
	return env
}

func (e *testEnv) startSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.SessionID)
	return resp.Token
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type cartResponse struct {
	Items []struct {
		ID     int64   `json:"id"`
		Title  string  `json:"title"`
		Price  float64 `json:"price"`
		Image  string  `json:"image"`
		Amount int64   `json:"amount"`
	} `json:"items"`
	Totals struct {
		Lines    int     `json:"lines"`
		Units    int64   `json:"units"`
		Subtotal float64 `json:"subtotal"`
	} `json:"totals"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func (e *testEnv) notifications(t *testing.T) []string {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/v1/notifications", nil, e.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []notify.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	out := make([]string, 0, len(resp.Data))
	for _, n := range resp.Data {
		out = append(out, n.Message)
	}
	return out
}

func TestCart_RequiresSession(t *testing.T) {
	env := setupCartAPI(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_EmptyCart(t *testing.T) {
	env := setupCartAPI(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil, env.token)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 0)
	require.Equal(t, 0, resp.Totals.Lines)
}

func TestCart_AddItemSuccess(t *testing.T) {
	env := setupCartAPI(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(1), resp.Items[0].ID)
	require.Equal(t, "Tênis de Caminhada Leve Confortável", resp.Items[0].Title)
	require.Equal(t, int64(1), resp.Items[0].Amount)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeCart(t, rec).Items, 1)
}

func TestCart_AddItemBeyondStock(t *testing.T) {
	env := setupCartAPI(t)
	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, []string{cartuc.MsgOutOfStock}, env.notifications(t))
	require.Empty(t, env.notifications(t), "notifications are drained")

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil, env.token)
	require.Equal(t, int64(2), decodeCart(t, rec).Items[0].Amount)
}

func TestCart_AddItemValidation(t *testing.T) {
	env := setupCartAPI(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing product", body: map[string]any{}},
		{name: "negative product", body: map[string]any{"product_id": -1}},
		{name: "wrong type", body: map[string]any{"product_id": "one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/cart/items", tt.body, env.token)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCart_InventoryDown(t *testing.T) {
	env := setupCartAPI(t)
	env.inventory.err = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, []string{cartuc.MsgAddFailed}, env.notifications(t))
}

func TestCart_UpdateAmount(t *testing.T) {
	env := setupCartAPI(t)
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 2}, env.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/cart/items/2", map[string]any{"amount": 4}, env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, int64(4), decodeCart(t, rec).Items[0].Amount)

	rec = env.do(t, http.MethodPatch, "/api/v1/cart/items/2", map[string]any{"amount": 0}, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(4), decodeCart(t, rec).Items[0].Amount)
	require.Empty(t, env.notifications(t), "non-positive amount is a silent no-op")

	rec = env.do(t, http.MethodPatch, "/api/v1/cart/items/2", map[string]any{"amount": 6}, env.token)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, []string{cartuc.MsgOutOfStock}, env.notifications(t))

	rec = env.do(t, http.MethodPatch, "/api/v1/cart/items/1", map[string]any{"amount": 1}, env.token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, []string{cartuc.MsgUpdateFailed}, env.notifications(t))

	rec = env.do(t, http.MethodPatch, "/api/v1/cart/items/2", map[string]any{}, env.token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_RemoveItem(t *testing.T) {
	env := setupCartAPI(t)
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/1", nil, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeCart(t, rec).Items, 0)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/1", nil, env.token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, []string{cartuc.MsgRemoveFailed}, env.notifications(t))

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/abc", nil, env.token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	env := setupCartAPI(t)
	other := env.startSession(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1}, env.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil, other)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeCart(t, rec).Items, 0)
}

func TestCart_PersistsSnapshot(t *testing.T) {
	env := setupCartAPI(t)
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 2}, env.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	claims, err := security.NewJWTService("test-secret", time.Hour).ParseToken(env.token)
	require.NoError(t, err)

	data, err := env.storage.Load(context.Background(), cartuc.DefaultKeyPrefix+":"+claims.SessionID)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":2,"title":"Tênis VR Caminhada Confortável","price":139.9,"image":"https://img/2.jpg","amount":1}]`, string(data))
}

func TestCart_StorageReadFailureIsRetried(t *testing.T) {
	env := setupCartAPI(t)
	env.storage.loadErr = errors.New("i/o timeout")

	rec := env.do(t, http.MethodGet, "/api/v1/cart", nil, env.token)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env.storage.loadErr = nil
	rec = env.do(t, http.MethodGet, "/api/v1/cart", nil, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
}
