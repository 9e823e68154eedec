// Package guest is the anonymous diner's tracking surface: it resolves which
// order this device is following from the session registry and keeps the
// order snapshot fresh until the kitchen is done with it.
package guest

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/hussainwajda/menux-go/internal/api"
	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/internal/session"
	"github.com/hussainwajda/menux-go/pkg/poll"
)

// ErrNoSession means this device has no record of the order: first visit or a
// different device. Callers degrade to "no active order", not to a failure.
var ErrNoSession = errors.New("no order session on this device")

// API is the slice of the platform client the tracker needs.
type API interface {
	GuestOrder(ctx context.Context, orderID string, q api.GuestOrderQuery) (*order.Order, error)
}

// Tracker follows one guest order.
type Tracker struct {
	api      API
	registry *session.Registry
	interval time.Duration
}

// NewTracker builds a Tracker. A non-positive interval falls back to the
// standard refresh cadence.
func NewTracker(client API, registry *session.Registry, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = poll.DefaultInterval
	}
	return &Tracker{api: client, registry: registry, interval: interval}
}

// Resolve finds the session for a specific order, for resuming after
// following a link.
func (t *Tracker) Resolve(orderID string) (session.Session, error) {
	sess, ok, err := t.registry.GetByOrderID(orderID)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "lookup session")
	}
	if !ok {
		return session.Session{}, ErrNoSession
	}
	return sess, nil
}

// ActiveOrder finds the current order placed from a given table or room, if
// this device placed one.
func (t *Tracker) ActiveOrder(key session.Key) (session.Session, bool, error) {
	return t.registry.Get(key)
}

// query scopes the read to the tenant and location the session was created
// for.
func query(sess session.Session) api.GuestOrderQuery {
	q := api.GuestOrderQuery{Slug: sess.Slug}
	if sess.Context == venue.ContextRoom {
		q.RoomID = sess.TargetID
	} else {
		q.TableID = sess.TargetID
	}
	return q
}

// Track polls the order every interval and delivers each snapshot to
// onUpdate, stopping once a terminal status (SERVED or CANCELLED) is
// observed. Transient refresh failures go to onError and the loop self-heals;
// only the first fetch failing is returned as a load failure. Cancelling ctx
// tears the loop down and discards any in-flight result.
func (t *Tracker) Track(ctx context.Context, orderID string, onUpdate func(*order.Order), onError func(error)) error {
	sess, err := t.Resolve(orderID)
	if err != nil {
		return err
	}

	lg := zctx.From(ctx)
	q := query(sess)

	r, err := poll.New(poll.Config[*order.Order]{
		Fetch: func(ctx context.Context) (*order.Order, error) {
			return t.api.GuestOrder(ctx, orderID, q)
		},
		Interval: t.interval,
		Terminal: func(o *order.Order) bool { return o.Status.Terminal() },
		OnUpdate: func(o *order.Order) {
			if err := o.ValidateHistory(); err != nil {
				// The server is the sole writer; a malformed history is
				// worth flagging but not worth breaking the tracker over.
				lg.Warn("Inconsistent status history",
					zap.String("order_id", o.ID),
					zap.Error(err),
				)
			}
			onUpdate(o)
		},
		OnError: onError,
	})
	if err != nil {
		return err
	}
	return r.Run(ctx)
}
