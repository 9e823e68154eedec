// Package order models the lifecycle of a placed order as mirrored on the
// client. The server owns the state machine; this package only describes it,
// validates what the server reports, and computes the optimistic next step a
// staff action may display for at most one round trip.
package order

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the kitchen lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusCooking   Status = "COOKING"
	StatusReady     Status = "READY"
	StatusServed    Status = "SERVED"
	StatusCancelled Status = "CANCELLED"
)

// forwardPath is the strict service sequence. CANCELLED sits outside it and is
// reachable from any non-terminal status.
var forwardPath = []Status{StatusPending, StatusAccepted, StatusCooking, StatusReady, StatusServed}

// Sentinel errors for status parsing and history validation.
var (
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrHistoryEmpty       = errors.New("status history is empty")
	ErrHistoryOutOfOrder  = errors.New("status history timestamps decrease")
	ErrHistoryTransition  = errors.New("status history contains a forbidden transition")
	ErrHistoryStatusDrift = errors.New("last history entry does not match current status")
)

// ParseStatus validates a wire status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusCooking, StatusReady, StatusServed, StatusCancelled:
		return Status(s), nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// Next returns the following status on the forward path. It is a pure lookup
// used only as an optimistic placeholder; the authoritative value always comes
// back from the server. Terminal and unknown statuses return themselves with
// ok=false.
func Next(s Status) (Status, bool) {
	for i, step := range forwardPath {
		if step == s && i < len(forwardPath)-1 {
			return forwardPath[i+1], true
		}
	}
	return s, false
}

// CanTransition reports whether the server may legally move an order from one
// status to another: one step forward on the path, or a cancellation of any
// non-terminal status.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	next, ok := Next(from)
	return ok && next == to
}

// PaymentStatus is the settlement state, independent of the kitchen lifecycle.
// An order may be SERVED and still UNPAID (pay-at-counter).
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// ErrUnknownPaymentStatus is returned for settlement values outside the
// supported set.
var ErrUnknownPaymentStatus = errors.New("unknown payment status")

// ParsePaymentStatus validates a wire payment status value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded, PaymentFailed:
		return PaymentStatus(s), nil
	}
	return "", errors.Wrapf(ErrUnknownPaymentStatus, "%q", s)
}

// Gateway identifies how a payment was (or will be) settled.
type Gateway string

const (
	GatewayCash     Gateway = "CASH"
	GatewayUPI      Gateway = "UPI"
	GatewayRazorpay Gateway = "RAZORPAY"
)

// ErrUnknownGateway is returned for gateway values outside the supported set.
var ErrUnknownGateway = errors.New("unknown payment gateway")

// ParseGateway validates a gateway value, case-insensitively.
func ParseGateway(s string) (Gateway, error) {
	switch g := Gateway(strings.ToUpper(s)); g {
	case GatewayCash, GatewayUPI, GatewayRazorpay:
		return g, nil
	}
	return "", errors.Wrapf(ErrUnknownGateway, "%q", s)
}

// Item is a line captured at order time. It snapshots the menu item, not a
// live reference: name, variant and price stay as they were when the guest
// placed the order.
type Item struct {
	MenuItemID  string
	Name        string
	VariantID   string
	Variant     string
	Quantity    int
	UnitPrice   decimal.Decimal
	Instruction string
}

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status    Status
	UpdatedAt time.Time
}

// Order is the client-side snapshot of a server-owned order.
type Order struct {
	ID               string
	RestaurantName   string
	TableID          string
	TableNumber      string
	RoomID           string
	RoomNumber       string
	Status           Status
	PaymentStatus    PaymentStatus
	Total            decimal.Decimal
	CreatedAt        time.Time
	EstimatedMinutes int
	Items            []Item
	StatusHistory    []StatusChange
}

// Location renders the dining location of the order for display.
func (o *Order) Location() string {
	if o.RoomNumber != "" {
		return "Room " + o.RoomNumber
	}
	if o.TableNumber != "" {
		return "Table " + o.TableNumber
	}
	return "-"
}

// ValidateHistory checks the invariants a well-formed server snapshot must
// satisfy: timestamps never decrease, every step follows the transition table,
// and the last entry matches the order's current status.
func (o *Order) ValidateHistory() error {
	if len(o.StatusHistory) == 0 {
		return ErrHistoryEmpty
	}
	for i := 1; i < len(o.StatusHistory); i++ {
		prev, cur := o.StatusHistory[i-1], o.StatusHistory[i]
		if cur.UpdatedAt.Before(prev.UpdatedAt) {
			return errors.Wrapf(ErrHistoryOutOfOrder, "entry %d", i)
		}
		if !CanTransition(prev.Status, cur.Status) {
			return errors.Wrapf(ErrHistoryTransition, "%s -> %s", prev.Status, cur.Status)
		}
	}
	if last := o.StatusHistory[len(o.StatusHistory)-1].Status; last != o.Status {
		return errors.Wrapf(ErrHistoryStatusDrift, "history ends at %s, order is %s", last, o.Status)
	}
	return nil
}
