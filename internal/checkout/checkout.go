// Package checkout turns a guest's cart into a placed order: build the
// creation request, submit it, optionally confirm a simulated payment, then
// persist the guest session and clear the cart so the tracking surface can
// take over.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hussainwajda/menux-go/internal/api"
	"github.com/hussainwajda/menux-go/internal/domain/cart"
	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/internal/session"
)

// Mode is the guest's settlement choice.
type Mode string

const (
	// ModePayAtCounter leaves the order UNPAID; staff settle it later.
	ModePayAtCounter Mode = "CASH"
	// ModePayNow runs the demo gateway confirmation right after creation.
	ModePayNow Mode = "RAZORPAY"
)

// ErrEmptyCart rejects checkout with nothing selected.
var ErrEmptyCart = errors.New("cart is empty")

// API is the slice of the platform client the flow needs.
type API interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.CreateOrderResponse, error)
	PayOrder(ctx context.Context, orderID string, req api.PayOrderRequest) (*api.PayOrderResponse, error)
}

// Request is the ordering context for one checkout.
type Request struct {
	Slug     string
	Context  venue.Context
	TargetID string
	Mode     Mode
}

// Result reports a completed checkout.
type Result struct {
	OrderID         string
	Total           decimal.Decimal
	PaymentRequired bool
	Paid            bool
}

// Flow composes the checkout steps.
type Flow struct {
	api      API
	registry *session.Registry
	now      func() time.Time
}

// New builds a Flow.
func New(client API, registry *session.Registry) *Flow {
	return &Flow{api: client, registry: registry, now: time.Now}
}

// buildItems converts cart lines into the wire form, splitting each composite
// identity back into (menuItemId, variantId|null) and trimming or nulling
// empty instructions.
func buildItems(lines []cart.Line) []api.CreateOrderItem {
	items := make([]api.CreateOrderItem, len(lines))
	for i, l := range lines {
		item := api.CreateOrderItem{
			MenuItemID: l.ID.MenuItemID,
			Quantity:   l.Quantity,
		}
		if l.ID.VariantID != "" {
			v := l.ID.VariantID
			item.VariantID = &v
		}
		if instr := strings.TrimSpace(l.Instruction); instr != "" {
			item.Instruction = &instr
		}
		items[i] = item
	}
	return items
}

// Submit runs the flow. On any failure the cart is left intact so the guest
// can retry without re-entering items. A payment failure after creation
// leaves the order in existence as UNPAID; no cleanup is attempted.
func (f *Flow) Submit(ctx context.Context, store *cart.Store, req Request) (*Result, error) {
	lines := store.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	createReq := api.CreateOrderRequest{
		Slug:  req.Slug,
		Items: buildItems(lines),
	}
	if req.Context == venue.ContextRoom {
		createReq.RoomID = req.TargetID
	} else {
		createReq.TableID = req.TargetID
	}

	created, err := f.api.CreateOrder(ctx, createReq)
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	result := &Result{
		OrderID:         created.OrderID,
		Total:           created.TotalAmount,
		PaymentRequired: created.PaymentRequired,
	}

	if req.Mode == ModePayNow {
		payReq := api.PayOrderRequest{
			Slug:            req.Slug,
			Gateway:         order.GatewayRazorpay,
			SimulateSuccess: true,
			TransactionID:   "razorpay_demo_" + created.OrderID + "_" + uuid.NewString(),
		}
		if req.Context == venue.ContextRoom {
			payReq.RoomID = req.TargetID
		} else {
			payReq.TableID = req.TargetID
		}
		if _, err := f.api.PayOrder(ctx, created.OrderID, payReq); err != nil {
			return nil, errors.Wrap(err, "confirm payment")
		}
		result.Paid = true
	}

	err = f.registry.Put(session.Session{
		OrderID:   created.OrderID,
		CreatedAt: f.now(),
		Context:   req.Context,
		TargetID:  req.TargetID,
		Slug:      req.Slug,
	})
	if err != nil {
		return nil, errors.Wrap(err, "save guest session")
	}

	store.Clear()
	return result, nil
}
