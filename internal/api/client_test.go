package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/internal/session"
)

type staticTokens struct {
	token string
	ok    bool
}

func (s staticTokens) Token() (string, bool) { return s.token, s.ok }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:       srv.URL,
		PublicBaseURL: "https://menu.example.com",
		Tokens:        staticTokens{token: "tok-1", ok: true},
	})
}

func strptr(s string) *string { return &s }

func TestCreateOrder_RequestShape(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/public/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"orderId":"o-1","totalAmount":300,"paymentRequired":true}`))
	})

	resp, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Slug:    "spice-villa",
		TableID: "t-1",
		Items: []CreateOrderItem{
			{MenuItemID: "m1", VariantID: strptr("v1"), Quantity: 2, Instruction: strptr("less spicy")},
			{MenuItemID: "m2", VariantID: nil, Quantity: 1, Instruction: nil},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "o-1", resp.OrderID)
	assert.True(t, resp.PaymentRequired)
	assert.Equal(t, "spice-villa", got["slug"])
	assert.Equal(t, "t-1", got["tableId"])

	items := got["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "v1", first["variantId"])
	second := items[1].(map[string]any)
	// Base item and empty instruction are explicit nulls on the wire.
	assert.Nil(t, second["variantId"])
	assert.Nil(t, second["instruction"])
}

func TestGuestOrder_DecodesSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/public/orders/o-9", r.URL.Path)
		assert.Equal(t, "spice-villa", r.URL.Query().Get("slug"))
		assert.Equal(t, "t-1", r.URL.Query().Get("tableId"))
		_, _ = w.Write([]byte(`{
			"orderId": "o-9",
			"restaurantName": "Spice Villa",
			"tableNumber": "5",
			"status": "COOKING",
			"paymentStatus": "UNPAID",
			"totalAmount": 262.50,
			"estimatedMinutes": 20,
			"items": [
				{"menuItemId":"m1","menuItemName":"Margherita","variantName":"Full","quantity":2,"price":150,"instruction":"less spicy"}
			],
			"statusHistory": [
				{"status":"PENDING","updatedAt":"2025-06-01T12:00:00Z"},
				{"status":"ACCEPTED","updatedAt":"2025-06-01T12:02:00Z"},
				{"status":"COOKING","updatedAt":"2025-06-01T12:05:00Z"}
			]
		}`))
	})

	o, err := c.GuestOrder(context.Background(), "o-9", GuestOrderQuery{Slug: "spice-villa", TableID: "t-1"})
	require.NoError(t, err)

	assert.Equal(t, order.StatusCooking, o.Status)
	assert.Equal(t, order.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, 20, o.EstimatedMinutes)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Margherita", o.Items[0].Name)
	require.Len(t, o.StatusHistory, 3)
	require.NoError(t, o.ValidateHistory())
}

func TestGuestOrder_RejectsUnknownPaymentStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"o-1","status":"PENDING","paymentStatus":"VOIDED","items":[],"statusHistory":[]}`))
	})

	_, err := c.GuestOrder(context.Background(), "o-1", GuestOrderQuery{Slug: "s"})
	require.ErrorIs(t, err, order.ErrUnknownPaymentStatus)
}

func TestGuestOrder_RejectsUnknownStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"o-1","status":"TELEPORTED","items":[],"statusHistory":[]}`))
	})

	_, err := c.GuestOrder(context.Background(), "o-1", GuestOrderQuery{Slug: "s"})
	require.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestAdminOrders_BearerAttached(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"o-1","status":"PENDING","items":[],"statusHistory":[{"status":"PENDING","updatedAt":"2025-06-01T12:00:00Z"}]}]`))
	})

	orders, err := c.AdminOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	// Admin list uses "id"; the client normalizes it.
	assert.Equal(t, "o-1", orders[0].ID)
}

func TestAdminOrders_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("request must not reach the server without credentials")
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: staticTokens{ok: false}})
	_, err := c.AdminOrders(context.Background())
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAdminOrders_RejectedCredentialIsCleared(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token revoked"}`))
	}))
	defer srv.Close()

	// A locally unexpired token the server no longer accepts.
	creds := session.NewCredentials(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, creds.Save("revoked-token", time.Now().Add(24*time.Hour)))

	c := NewClient(Config{BaseURL: srv.URL, Tokens: creds})
	_, err := c.AdminOrders(context.Background())
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, ok := creds.Token()
	assert.False(t, ok, "rejected credential must not survive the call")
}

func TestGuestCall_LeavesCredentialIntact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := session.NewCredentials(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, creds.Save("tok-1", time.Now().Add(24*time.Hour)))

	// A guest-side 401 says nothing about the staff token.
	c := NewClient(Config{BaseURL: srv.URL, Tokens: creds})
	_, err := c.GuestOrder(context.Background(), "o-1", GuestOrderQuery{Slug: "s"})
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, ok := creds.Token()
	assert.True(t, ok)
}

func TestUpdateOrderStatus_SendsLiteralNextValue(t *testing.T) {
	var got updateStatusRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/admin/orders/o-1/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"o-1","status":"ACCEPTED","items":[],"statusHistory":[{"status":"PENDING","updatedAt":"2025-06-01T12:00:00Z"},{"status":"ACCEPTED","updatedAt":"2025-06-01T12:01:00Z"}]}`))
	})

	o, err := c.UpdateOrderStatus(context.Background(), "o-1", order.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, got.Status)
	assert.Equal(t, order.StatusAccepted, o.Status)
}

func TestErrorMapping(t *testing.T) {
	t.Run("forbidden", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"module not in plan"}`))
		})
		_, err := c.AdminOrders(context.Background())
		require.ErrorIs(t, err, ErrNotAuthorized)
		assert.ErrorContains(t, err, "module not in plan")
	})

	t.Run("duplicate number", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"table number already exists"}`))
		})
		_, err := c.CreateVenue(context.Background(), "spice-villa", venue.ContextTable, "5")

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "table number already exists", vErr.Message)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.AdminOrders(context.Background())

		var sErr *StatusError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, http.StatusInternalServerError, sErr.Code)
	})
}

func TestVenues_QRDerivation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/tables", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"t-1","tableNumber":"5","isActive":true},
			{"id":"t-2","tableNumber":"6","isActive":false,"qrCodeUrl":"https://hosted.example/qr-t2.png"}
		]`))
	})

	got, err := c.Venues(context.Background(), "spice-villa", venue.ContextTable)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Missing QR payload is derived from the public base URL.
	assert.Equal(t, "https://menu.example.com/spice-villa/menu/table/t-1", got[0].QRURL)
	assert.Contains(t, got[0].QRImageURL, "api.qrserver.com")

	// A hosted image from the server is kept as-is.
	assert.Equal(t, "https://hosted.example/qr-t2.png", got[1].QRImageURL)
}

func TestUpdateVenue_PartialBody(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/admin/rooms/r-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"r-1","roomNumber":"101","isActive":false}`))
	})

	active := false
	e, err := c.UpdateVenue(context.Background(), "spice-villa", venue.ContextRoom, "r-1", UpdateVenue{Active: &active})
	require.NoError(t, err)

	// Only the toggled flag is on the wire.
	assert.Equal(t, map[string]any{"isActive": false}, got)
	assert.False(t, e.Active)
	assert.Equal(t, "101", e.Number)
}

func TestDeleteVenue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/admin/tables/t-9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteVenue(context.Background(), venue.ContextTable, "t-9"))
}
