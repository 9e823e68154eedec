// Package api is the typed client for the MenuX platform REST boundary:
// guest order creation and tracking, demo payment confirmation, the staff
// order queue, and table/room management.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
)

// ErrNotAuthorized covers 401/403 responses and staff calls made without
// credentials. When the server rejects a staff call, the stored credential is
// cleared so the next call reports "not authenticated" instead of re-sending
// a dead bearer; callers surface a re-login prompt.
var ErrNotAuthorized = errors.New("not authorized")

// ValidationError is a 4xx rejection of the request content, e.g. a duplicate
// table number. Surfaced inline at the offending field; the mutation was not
// applied.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StatusError is any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.Code) + ": " + e.Message
}

// TokenSource provides the staff bearer credential. ok=false means there is
// no usable (present, unexpired) credential.
type TokenSource interface {
	Token() (token string, ok bool)
}

// TokenClearer is implemented by token sources that persist credentials and
// can drop one the server has rejected. Local expiry checks cannot catch
// server-side revocation, so the client clears on 401/403 itself.
type TokenClearer interface {
	Clear() error
}

// Config configures the client.
type Config struct {
	// BaseURL of the platform API, e.g. https://api.menux.example.
	BaseURL string
	// PublicBaseURL of the guest-facing menu site, used to derive QR targets.
	PublicBaseURL string
	// Tokens supplies staff credentials for admin calls. Optional for
	// guest-only use.
	Tokens TokenSource
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Client talks to the platform. Safe for concurrent use.
type Client struct {
	base       string
	publicBase string
	tokens     TokenSource
	http       *http.Client
}

// NewClient builds a Client. Requests carry no explicit timeout: a call
// resolves, fails on transport error, or is cut by the caller's context.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		tokens:     cfg.Tokens,
		http:       hc,
	}
}

// errorBody is the platform's error envelope; either field may carry the
// message.
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, authed bool) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, ok := "", false
		if c.tokens != nil {
			token, ok = c.tokens.Token()
		}
		if !ok {
			return errors.Wrap(ErrNotAuthorized, "no staff credentials")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	zctx.From(ctx).Debug("API request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "transport")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeError(resp)
		if authed && errors.Is(err, ErrNotAuthorized) {
			c.clearTokens(ctx)
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// clearTokens drops a persisted credential the server has refused.
func (c *Client) clearTokens(ctx context.Context) {
	tc, ok := c.tokens.(TokenClearer)
	if !ok {
		return
	}
	if err := tc.Clear(); err != nil {
		zctx.From(ctx).Warn("Failed to clear rejected credential", zap.Error(err))
		return
	}
	zctx.From(ctx).Info("Staff credential rejected by server, cleared")
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	msg := strings.TrimSpace(string(raw))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			msg = eb.Message
		} else if eb.Err != "" {
			msg = eb.Err
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrap(ErrNotAuthorized, msg)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return &ValidationError{Message: msg}
	default:
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
}

// CreateOrder places a guest order. Failure here creates no partial state on
// the client.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/public/orders", nil, req, &out, false); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return &out, nil
}

// PayOrder confirms a (simulated) gateway payment for a freshly created
// order. The payment protocol is opaque here: success or failure only.
func (c *Client) PayOrder(ctx context.Context, orderID string, req PayOrderRequest) (*PayOrderResponse, error) {
	var out PayOrderResponse
	path := "/api/public/orders/" + url.PathEscape(orderID) + "/pay"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out, false); err != nil {
		return nil, errors.Wrap(err, "pay order")
	}
	return &out, nil
}

// GuestOrder reads the tracker snapshot for one order, scoped by tenant and
// location for authorization.
func (c *Client) GuestOrder(ctx context.Context, orderID string, q GuestOrderQuery) (*order.Order, error) {
	query := url.Values{"slug": {q.Slug}}
	if q.TableID != "" {
		query.Set("tableId", q.TableID)
	}
	if q.RoomID != "" {
		query.Set("roomId", q.RoomID)
	}

	var snap orderSnapshot
	path := "/api/public/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &snap, false); err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return snap.toDomain()
}

// AdminOrders lists the tenant's orders with embedded items, payment state,
// and status history.
func (c *Client) AdminOrders(ctx context.Context) ([]*order.Order, error) {
	var snaps []orderSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/admin/orders", nil, nil, &snaps, true); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	out := make([]*order.Order, len(snaps))
	for i := range snaps {
		o, err := snaps[i].toDomain()
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// UpdateOrderStatus requests a transition to the given status (the literal
// next step on the forward path, or CANCELLED) and returns the server's
// authoritative snapshot.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) (*order.Order, error) {
	var snap orderSnapshot
	path := "/api/admin/orders/" + url.PathEscape(orderID) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, nil, updateStatusRequest{Status: status}, &snap, true); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	return snap.toDomain()
}

// MarkOrderPaid settles an order at the counter via CASH or UPI.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID string, gateway order.Gateway) (*order.Order, error) {
	var snap orderSnapshot
	path := "/api/admin/orders/" + url.PathEscape(orderID) + "/mark-paid"
	if err := c.do(ctx, http.MethodPost, path, nil, markPaidRequest{Gateway: gateway}, &snap, true); err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	return snap.toDomain()
}

func venuePath(vctx venue.Context) string {
	if vctx == venue.ContextRoom {
		return "/api/admin/rooms"
	}
	return "/api/admin/tables"
}

// Venues lists the tenant's tables or rooms with derived QR payloads.
func (c *Client) Venues(ctx context.Context, slug string, vctx venue.Context) ([]venue.Entity, error) {
	var recs []venueRecord
	if err := c.do(ctx, http.MethodGet, venuePath(vctx), nil, nil, &recs, true); err != nil {
		return nil, errors.Wrap(err, "list venues")
	}

	out := make([]venue.Entity, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain(c.publicBase, slug, vctx)
	}
	return out, nil
}

// CreateVenue adds a table or room with the given display number.
func (c *Client) CreateVenue(ctx context.Context, slug string, vctx venue.Context, number string) (venue.Entity, error) {
	req := createVenueRequest{}
	if vctx == venue.ContextRoom {
		req.RoomNumber = number
	} else {
		req.TableNumber = number
	}

	var rec venueRecord
	if err := c.do(ctx, http.MethodPost, venuePath(vctx), nil, req, &rec, true); err != nil {
		return venue.Entity{}, errors.Wrap(err, "create venue")
	}
	return rec.toDomain(c.publicBase, slug, vctx), nil
}

// UpdateVenue renames and/or toggles a table or room; nil fields stay
// untouched.
func (c *Client) UpdateVenue(ctx context.Context, slug string, vctx venue.Context, id string, upd UpdateVenue) (venue.Entity, error) {
	req := updateVenueRequest{IsActive: upd.Active}
	if vctx == venue.ContextRoom {
		req.RoomNumber = upd.Number
	} else {
		req.TableNumber = upd.Number
	}

	var rec venueRecord
	path := venuePath(vctx) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, nil, req, &rec, true); err != nil {
		return venue.Entity{}, errors.Wrap(err, "update venue")
	}
	return rec.toDomain(c.publicBase, slug, vctx), nil
}

// DeleteVenue removes a table or room.
func (c *Client) DeleteVenue(ctx context.Context, vctx venue.Context, id string) error {
	path := venuePath(vctx) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil, true); err != nil {
		return errors.Wrap(err, "delete venue")
	}
	return nil
}
