// Package staff implements the operator-facing surfaces: the live order
// board (queue + history) and table/room management. Mutations here are
// local-first with rollback; the order state machine itself stays
// server-owned.
package staff

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/pkg/optimistic"
	"github.com/hussainwajda/menux-go/pkg/poll"
)

// Sentinel errors for board actions.
var (
	ErrOrderNotFound = errors.New("order not on the board")
	ErrOrderTerminal = errors.New("order already terminal")
)

// BoardAPI is the slice of the platform client the board needs.
type BoardAPI interface {
	AdminOrders(ctx context.Context) ([]*order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) (*order.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string, gateway order.Gateway) (*order.Order, error)
}

// Board is the staff order queue: a polled list of order snapshots plus the
// actions that advance them.
type Board struct {
	api      BoardAPI
	interval time.Duration
	list     *optimistic.List[*order.Order]
}

// NewBoard builds a Board. A non-positive interval falls back to the
// standard refresh cadence.
func NewBoard(client BoardAPI, interval time.Duration) *Board {
	if interval <= 0 {
		interval = poll.DefaultInterval
	}
	return &Board{
		api:      client,
		interval: interval,
		list:     optimistic.NewList[*order.Order](nil),
	}
}

// Orders returns the current board contents.
func (b *Board) Orders() []*order.Order {
	return b.list.Snapshot()
}

// Watch keeps the board fresh until ctx is cancelled. There is no terminal
// condition for a list view: it polls for as long as the view is up. Each
// refreshed list is stored and handed to onUpdate; transient failures go to
// onError and the next tick retries.
func (b *Board) Watch(ctx context.Context, onUpdate func([]*order.Order), onError func(error)) error {
	r, err := poll.New(poll.Config[[]*order.Order]{
		Fetch:    b.api.AdminOrders,
		Interval: b.interval,
		OnUpdate: func(orders []*order.Order) {
			b.list.Replace(orders)
			if onUpdate != nil {
				onUpdate(orders)
			}
		},
		OnError: onError,
	})
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// Refresh fetches the board once, for one-shot actions that do not keep a
// watch running.
func (b *Board) Refresh(ctx context.Context) error {
	orders, err := b.api.AdminOrders(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch orders")
	}
	b.list.Replace(orders)
	return nil
}

// find locates an order in the current snapshot.
func (b *Board) find(orderID string) (*order.Order, error) {
	for _, o := range b.list.Snapshot() {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, errors.Wrapf(ErrOrderNotFound, "%s", orderID)
}

// replaceByID swaps one row for the server's authoritative snapshot.
func replaceByID(items []*order.Order, updated *order.Order) []*order.Order {
	for i := range items {
		if items[i].ID == updated.ID {
			items[i] = updated
		}
	}
	return items
}

// Advance requests the next status on the forward path for one order and
// returns the server's snapshot. The transition table is server-owned, so no
// optimistic guess is shown: the board changes only when the authoritative
// row arrives. The requested value is the literal next status, never an
// arbitrary target.
func (b *Board) Advance(ctx context.Context, orderID string) (*order.Order, error) {
	current, err := b.find(orderID)
	if err != nil {
		return nil, err
	}
	next, ok := order.Next(current.Status)
	if !ok {
		return nil, errors.Wrapf(ErrOrderTerminal, "%s is %s", orderID, current.Status)
	}

	return optimistic.Run(ctx, b.list, optimistic.Command[*order.Order, *order.Order]{
		Commit: func(ctx context.Context) (*order.Order, error) {
			return b.api.UpdateOrderStatus(ctx, orderID, next)
		},
		Reconcile: replaceByID,
	})
}

// Cancel requests cancellation, which is legal from any non-terminal status.
func (b *Board) Cancel(ctx context.Context, orderID string) (*order.Order, error) {
	current, err := b.find(orderID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, errors.Wrapf(ErrOrderTerminal, "%s is %s", orderID, current.Status)
	}

	return optimistic.Run(ctx, b.list, optimistic.Command[*order.Order, *order.Order]{
		Commit: func(ctx context.Context) (*order.Order, error) {
			return b.api.UpdateOrderStatus(ctx, orderID, order.StatusCancelled)
		},
		Reconcile: replaceByID,
	})
}

// MarkPaid settles an order at the counter.
func (b *Board) MarkPaid(ctx context.Context, orderID string, gateway order.Gateway) (*order.Order, error) {
	if _, err := b.find(orderID); err != nil {
		return nil, err
	}

	return optimistic.Run(ctx, b.list, optimistic.Command[*order.Order, *order.Order]{
		Commit: func(ctx context.Context) (*order.Order, error) {
			return b.api.MarkOrderPaid(ctx, orderID, gateway)
		},
		Reconcile: replaceByID,
	})
}
