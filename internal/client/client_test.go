package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/client"
	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

type capturedRequest struct {
	Method  string
	Path    string
	Query   string
	Auth    string
	IdemKey string
	Body    []byte
}

type apiStub struct {
	mu       sync.Mutex
	requests []capturedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, capturedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Auth:    r.Header.Get("Authorization"),
		IdemKey: r.Header.Get(client.IdempotencyKeyHeader),
		Body:    body,
	})
	handler := s.handler
	s.mu.Unlock()
	handler(w, r)
}

func (s *apiStub) setHandler(h func(http.ResponseWriter, *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *apiStub) last() capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newClient(t *testing.T, stub *apiStub, kv domain.KVStore) *client.Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return client.New(client.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, client.NewTokenStore(kv, nil), nil)
}

func TestCategoriesEnvelope(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusOK, `{
		"success": true,
		"message": "ok",
		"data": {"categories": [
			{"id": 1, "name": "Pizza", "position": 1, "is_active": true, "items": [
				{"id": 10, "category_id": 1, "name": "Margherita", "price": 12.99,
				 "is_available": true, "is_on_stop_list": false, "preparation_time": 15,
				 "variations": [{"id": 5, "name": "Large", "price_difference": "3.00", "is_available": true}]}
			]}
		]}
	}`)}
	c := newClient(t, stub, memory.NewKVStore())

	categories, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, "Pizza", categories[0].Name)
	require.Len(t, categories[0].Items, 1)

	item := categories[0].Items[0]
	require.Equal(t, domain.Money(1299), item.Price)
	price, variation, err := item.UnitPrice("Large")
	require.NoError(t, err)
	require.Equal(t, domain.Money(1599), price)
	require.Equal(t, int64(5), variation.ID)

	require.Equal(t, "/menu/categories", stub.last().Path)
}

func TestMenuItemsPlainListAndFilter(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusOK, `[
		{"id": 11, "category_id": 2, "name": "Cola", "price": 1.99, "is_available": true, "variations": []}
	]`)}
	c := newClient(t, stub, memory.NewKVStore())

	items, err := c.MenuItems(context.Background(), domain.MenuFilter{CategoryID: 2, OnlyInStock: true, Search: " cola "})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, domain.Money(199), items[0].Price)

	req := stub.last()
	require.Equal(t, "/menu/", req.Path)
	require.Contains(t, req.Query, "category_id=2")
	require.Contains(t, req.Query, "is_available=true")
	require.Contains(t, req.Query, "search=cola")
}

func TestMenuItemValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "zero id", body: `{"id": 0, "name": "X", "price": 1}`},
		{name: "empty name", body: `{"id": 1, "name": " ", "price": 1}`},
		{name: "negative price", body: `{"id": 1, "name": "X", "price": -1}`},
		{name: "bad variation", body: `{"id": 1, "name": "X", "price": 1, "variations": [{"id": 0, "name": "L"}]}`},
		{name: "duplicate variation", body: `{"id": 1, "name": "X", "price": 1, "variations": [{"id": 1, "name": "L"}, {"id": 2, "name": "L"}]}`},
		{name: "price not a number", body: `{"id": 1, "name": "X", "price": "abc"}`},
		{name: "not json", body: `<html>bad gateway</html>`},
		{name: "unsuccessful envelope", body: `{"success": false, "data": null, "message": "nope"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &apiStub{handler: respond(http.StatusOK, tc.body)}
			c := newClient(t, stub, memory.NewKVStore())

			_, err := c.MenuItem(context.Background(), 1)
			require.ErrorIs(t, err, domain.ErrInvalidPayload)
			require.Equal(t, "/menu/items/1", stub.last().Path)
		})
	}
}

func TestCalculateDelivery(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusOK, `{
		"success": true,
		"data": {"delivery_cost": 4.5, "distance_km": 3.2, "estimated_time": 45, "is_deliverable": true, "free_delivery": false},
		"message": ""
	}`)}
	c := newClient(t, stub, memory.NewKVStore())

	quote, err := c.CalculateDelivery(context.Background(), domain.DeliveryQuoteRequest{
		Coordinates: domain.Coordinates{Lat: 55.77, Lon: 37.64},
		OrderValue:  3897,
	})
	require.NoError(t, err)
	require.Equal(t, domain.Money(450), quote.Fee)
	require.Equal(t, 45, quote.ETAMinutes)
	require.Equal(t, domain.QuoteSourceServer, quote.Source)

	req := stub.last()
	require.Equal(t, http.MethodPost, req.Method)
	require.JSONEq(t, `{"coordinates": {"lat": 55.77, "lon": 37.64}, "order_value": 38.97}`, string(req.Body))
}

func TestCalculateDeliveryFreeDeliveryZeroesFee(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusOK, `{"success": true, "data": {"delivery_cost": 3.0, "distance_km": 1, "estimated_time": 30, "is_deliverable": true, "free_delivery": true}}`)}
	c := newClient(t, stub, memory.NewKVStore())

	quote, err := c.CalculateDelivery(context.Background(), domain.DeliveryQuoteRequest{Coordinates: domain.Coordinates{Lat: 1, Lon: 1}})
	require.NoError(t, err)
	require.Zero(t, quote.Fee)
	require.True(t, quote.FreeDelivery)
}

func TestBonuses(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusOK, `{"total_bonus_points": 120, "available_bonus_points": 100, "pending_bonus_points": 20}`)}
	c := newClient(t, stub, memory.NewKVStore())

	balance, err := c.Bonuses(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.Money(10000), balance.Available)
	require.Equal(t, domain.Money(12000), balance.Total)

	stub.setHandler(respond(http.StatusOK, `{"total_bonus_points": 1, "available_bonus_points": -5, "pending_bonus_points": 0}`))
	_, err = c.Bonuses(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestCreateOrder(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusCreated, `{
		"success": true,
		"message": "Order created",
		"data": {"id": 42, "order_number": "ORD-42", "status": "pending", "order_type": "pickup",
		         "payment_method": "cash", "payment_status": "pending",
		         "subtotal": 27.97, "delivery_cost": 0, "bonus_used": 0, "total_amount": 27.97}
	}`)}
	c := newClient(t, stub, memory.NewKVStore())

	created, err := c.CreateOrder(context.Background(), domain.OrderRequest{
		OrderType:     domain.OrderTypePickup,
		Items:         []domain.OrderItem{{MenuItemID: 10, Quantity: 1}},
		PaymentMethod: domain.PaymentMethodCash,
	}, "idem-1")
	require.NoError(t, err)
	require.Equal(t, int64(42), created.ID)
	require.Equal(t, domain.Money(2797), created.TotalAmount)

	req := stub.last()
	require.Equal(t, "/orders/", req.Path)
	require.Equal(t, "idem-1", req.IdemKey)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	require.Equal(t, "pickup", sent["order_type"])
	require.NotContains(t, sent, "delivery_address")
	require.NotContains(t, sent, "bonus_to_use")
}

func TestCreateOrderRejectionCarriesServerMessage(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{name: "envelope message", body: `{"success": false, "message": "Restaurant is closed"}`, message: "Restaurant is closed"},
		{name: "fastapi detail", body: `{"detail": "Minimum order is 10.00"}`, message: "Minimum order is 10.00"},
		{name: "no message", body: `{}`, message: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &apiStub{handler: respond(http.StatusBadRequest, tc.body)}
			c := newClient(t, stub, memory.NewKVStore())

			_, err := c.CreateOrder(context.Background(), domain.OrderRequest{OrderType: domain.OrderTypePickup}, "")
			var subErr *domain.SubmissionError
			require.ErrorAs(t, err, &subErr)
			require.Equal(t, http.StatusBadRequest, subErr.StatusCode)
			require.Equal(t, tc.message, subErr.Message)
		})
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestBearerTokenIsSentAndClearedOn401(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, kv.Set(ctx, client.TokenStorageKey, []byte(token)))

	stub := &apiStub{handler: respond(http.StatusOK, `{"total_bonus_points": 0, "available_bonus_points": 0, "pending_bonus_points": 0}`)}
	c := newClient(t, stub, kv)

	_, err := c.Bonuses(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bearer "+token, stub.last().Auth)

	stub.setHandler(respond(http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`))
	_, err = c.Bonuses(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, ok, err := kv.Get(ctx, client.TokenStorageKey)
	require.NoError(t, err)
	require.False(t, ok)

	stub.setHandler(respond(http.StatusOK, `{"total_bonus_points": 0, "available_bonus_points": 0, "pending_bonus_points": 0}`))
	_, err = c.Bonuses(ctx)
	require.NoError(t, err)
	require.Empty(t, stub.last().Auth)
}

func TestExpiredTokenIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	require.NoError(t, kv.Set(ctx, client.TokenStorageKey, []byte(signedToken(t, time.Now().Add(-time.Minute)))))

	tokens := client.NewTokenStore(kv, nil)
	_, ok := tokens.Token(ctx)
	require.False(t, ok)

	_, stored, err := kv.Get(ctx, client.TokenStorageKey)
	require.NoError(t, err)
	require.False(t, stored)

	// Непрозрачный токен не JWT: используется как есть.
	require.NoError(t, tokens.Save(ctx, "opaque-token"))
	got, ok := tokens.Token(ctx)
	require.True(t, ok)
	require.Equal(t, "opaque-token", got)
}

func TestServerErrorIsNotInvalidPayload(t *testing.T) {
	stub := &apiStub{handler: respond(http.StatusServiceUnavailable, `{"message": "maintenance"}`)}
	c := newClient(t, stub, memory.NewKVStore())

	_, err := c.Categories(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrInvalidPayload)
	require.Contains(t, err.Error(), "maintenance")
}
