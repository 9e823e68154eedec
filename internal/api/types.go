package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
)

// CreateOrderRequest is the guest order-creation payload. Exactly one of
// TableID/RoomID is set, depending on the dining context.
type CreateOrderRequest struct {
	Slug    string            `json:"slug"`
	TableID string            `json:"tableId,omitempty"`
	RoomID  string            `json:"roomId,omitempty"`
	Items   []CreateOrderItem `json:"items"`
}

// CreateOrderItem is one requested line. VariantID is null when the guest
// took the base item; Instruction is null when empty.
type CreateOrderItem struct {
	MenuItemID  string  `json:"menuItemId"`
	VariantID   *string `json:"variantId"`
	Quantity    int     `json:"quantity"`
	Instruction *string `json:"instruction"`
}

// CreateOrderResponse acknowledges a placed order.
type CreateOrderResponse struct {
	OrderID         string          `json:"orderId"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaymentRequired bool            `json:"paymentRequired"`
}

// PayOrderRequest confirms a simulated gateway payment for a fresh order.
type PayOrderRequest struct {
	Slug            string        `json:"slug"`
	TableID         string        `json:"tableId,omitempty"`
	RoomID          string        `json:"roomId,omitempty"`
	Gateway         order.Gateway `json:"gateway"`
	SimulateSuccess bool          `json:"simulateSuccess"`
	TransactionID   string        `json:"transactionId"`
}

// PayOrderResponse reports the settlement outcome.
type PayOrderResponse struct {
	OrderID             string              `json:"orderId"`
	PaymentID           string              `json:"paymentId"`
	PaymentRecordStatus string              `json:"paymentRecordStatus"`
	OrderPaymentStatus  order.PaymentStatus `json:"orderPaymentStatus"`
	OrderStatus         order.Status        `json:"orderStatus"`
	TransactionID       string              `json:"transactionId"`
}

// GuestOrderQuery scopes a guest tracker read to the tenant and location the
// session was created for.
type GuestOrderQuery struct {
	Slug    string
	TableID string
	RoomID  string
}

// orderSnapshot is the wire form of an order, shared by the guest tracker and
// the admin list (the admin form carries a few extra fields the client
// ignores).
type orderSnapshot struct {
	OrderID          string               `json:"orderId"`
	ID               string               `json:"id"`
	RestaurantName   string               `json:"restaurantName"`
	TableID          string               `json:"tableId"`
	TableNumber      string               `json:"tableNumber"`
	RoomID           string               `json:"roomId"`
	RoomNumber       string               `json:"roomNumber"`
	Status           string               `json:"status"`
	PaymentStatus    string               `json:"paymentStatus"`
	TotalAmount      decimal.Decimal      `json:"totalAmount"`
	CreatedAt        time.Time            `json:"createdAt"`
	EstimatedMinutes int                  `json:"estimatedMinutes"`
	Items            []orderItemSnapshot  `json:"items"`
	StatusHistory    []statusChangeRecord `json:"statusHistory"`
}

type orderItemSnapshot struct {
	MenuItemID   string          `json:"menuItemId"`
	MenuItemName string          `json:"menuItemName"`
	VariantID    string          `json:"variantId"`
	VariantName  string          `json:"variantName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Instruction  string          `json:"instruction"`
}

type statusChangeRecord struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// toDomain converts a wire snapshot into the domain model, validating the
// status values the server reports.
func (s *orderSnapshot) toDomain() (*order.Order, error) {
	id := s.OrderID
	if id == "" {
		id = s.ID
	}
	status, err := order.ParseStatus(s.Status)
	if err != nil {
		return nil, err
	}
	// The admin list may omit paymentStatus; absent means not yet settled.
	paymentStatus := order.PaymentUnpaid
	if s.PaymentStatus != "" {
		paymentStatus, err = order.ParsePaymentStatus(s.PaymentStatus)
		if err != nil {
			return nil, err
		}
	}

	o := &order.Order{
		ID:               id,
		RestaurantName:   s.RestaurantName,
		TableID:          s.TableID,
		TableNumber:      s.TableNumber,
		RoomID:           s.RoomID,
		RoomNumber:       s.RoomNumber,
		Status:           status,
		PaymentStatus:    paymentStatus,
		Total:            s.TotalAmount,
		CreatedAt:        s.CreatedAt,
		EstimatedMinutes: s.EstimatedMinutes,
	}

	o.Items = make([]order.Item, len(s.Items))
	for i, it := range s.Items {
		o.Items[i] = order.Item{
			MenuItemID:  it.MenuItemID,
			Name:        it.MenuItemName,
			VariantID:   it.VariantID,
			Variant:     it.VariantName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Instruction: it.Instruction,
		}
	}

	o.StatusHistory = make([]order.StatusChange, len(s.StatusHistory))
	for i, h := range s.StatusHistory {
		hs, err := order.ParseStatus(h.Status)
		if err != nil {
			return nil, err
		}
		o.StatusHistory[i] = order.StatusChange{Status: hs, UpdatedAt: h.UpdatedAt}
	}
	return o, nil
}

// updateStatusRequest carries the literal next status chosen client-side from
// the fixed forward sequence; the server still validates the transition.
type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

type markPaidRequest struct {
	Gateway order.Gateway `json:"gateway"`
}

// venueRecord is the wire form of a table or room.
type venueRecord struct {
	ID          string `json:"id"`
	TableNumber string `json:"tableNumber"`
	RoomNumber  string `json:"roomNumber"`
	QRCodeURL   string `json:"qrCodeUrl"`
	IsActive    bool   `json:"isActive"`
}

// createVenueRequest creates a table/room; only the display number is needed.
type createVenueRequest struct {
	TableNumber string `json:"tableNumber,omitempty"`
	RoomNumber  string `json:"roomNumber,omitempty"`
}

// UpdateVenue carries a partial update: nil fields are left untouched.
type UpdateVenue struct {
	Number *string `json:"-"`
	Active *bool   `json:"-"`
}

// updateVenueRequest is the wire form of UpdateVenue for one entity kind.
type updateVenueRequest struct {
	TableNumber *string `json:"tableNumber,omitempty"`
	RoomNumber  *string `json:"roomNumber,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// likelyImage reports whether a QR payload URL already points at a rendered
// image rather than the scan target.
func likelyImage(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".svg", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "create-qr-code")
}

// toDomain converts a wire venue into the domain entity, deriving whichever
// QR field the server left implicit.
func (r *venueRecord) toDomain(publicBase, slug string, ctx venue.Context) venue.Entity {
	number := r.TableNumber
	if ctx == venue.ContextRoom {
		number = r.RoomNumber
	}
	e := venue.Entity{ID: r.ID, Number: number, Active: r.IsActive}
	if r.QRCodeURL != "" {
		if likelyImage(r.QRCodeURL) {
			e.QRImageURL = r.QRCodeURL
		} else {
			e.QRURL = r.QRCodeURL
		}
	}
	e.Normalize(publicBase, slug, ctx)
	return e
}
