// Command guest-order places an order from a table or room and follows it
// until the kitchen is done with it.
//
// Items are given as positional arguments in the form
// menuItemID[::variantID]=quantity[@unitPrice]; the unit price is only used
// for the local pre-checkout total, the server always computes the
// authoritative amount.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appkg "github.com/hussainwajda/menux-go/internal/app"
	"github.com/hussainwajda/menux-go/internal/checkout"
	"github.com/hussainwajda/menux-go/internal/domain/cart"
	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/internal/guest"
	"github.com/hussainwajda/menux-go/internal/session"
)

type notesFlag map[string]string

func (n notesFlag) String() string { return "" }

func (n notesFlag) Set(v string) error {
	id, text, ok := strings.Cut(v, "=")
	if !ok {
		return errors.New("expected lineID=text")
	}
	n[id] = text
	return nil
}

func main() {
	var (
		table  = flag.String("table", "", "table ID to order from")
		room   = flag.String("room", "", "room ID to order from")
		payNow = flag.Bool("pay-now", false, "confirm payment via the demo gateway instead of paying at the counter")
		resume = flag.String("resume", "", "skip ordering and track an existing order ID")
		notes  = notesFlag{}
	)
	flag.Var(notes, "note", "kitchen instruction for one line, lineID=text (repeatable)")
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		rt, err := appkg.Setup(cfg)
		if err != nil {
			return err
		}
		return run(ctx, lg, rt, runOpts{
			table:  *table,
			room:   *room,
			payNow: *payNow,
			resume: *resume,
			notes:  notes,
			items:  flag.Args(),
		})
	})
}

type runOpts struct {
	table  string
	room   string
	payNow bool
	resume string
	notes  map[string]string
	items  []string
}

func run(ctx context.Context, lg *zap.Logger, rt *appkg.Runtime, opts runOpts) error {
	tracker := guest.NewTracker(rt.Client, rt.Registry, rt.Config.PollInterval)

	if opts.resume != "" {
		return track(ctx, tracker, opts.resume)
	}

	vctx, targetID, err := location(opts)
	if err != nil {
		return err
	}

	// No items means "show me the order this device already placed here".
	if len(opts.items) == 0 {
		sess, ok, err := tracker.ActiveOrder(session.Key{
			Slug:     rt.Config.Slug,
			Context:  vctx,
			TargetID: targetID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("no items given and no active order at this location")
		}
		lg.Info("Resuming active order", zap.String("order_id", sess.OrderID))
		return track(ctx, tracker, sess.OrderID)
	}

	store, err := buildCart(opts.items, opts.notes)
	if err != nil {
		return err
	}
	totals := store.Totals(cart.DefaultTaxRate)
	lg.Info("Cart ready",
		zap.Int("items", store.Count()),
		zap.String("subtotal", totals.Subtotal.String()),
		zap.String("total", totals.GrandTotal.String()),
	)

	mode := checkout.ModePayAtCounter
	if opts.payNow {
		mode = checkout.ModePayNow
	}

	flow := checkout.New(rt.Client, rt.Registry)
	result, err := flow.Submit(ctx, store, checkout.Request{
		Slug:     rt.Config.Slug,
		Context:  vctx,
		TargetID: targetID,
		Mode:     mode,
	})
	if err != nil {
		return errors.Wrap(err, "checkout")
	}

	lg.Info("Order placed",
		zap.String("order_id", result.OrderID),
		zap.String("total", result.Total.String()),
		zap.Bool("paid", result.Paid),
	)

	return track(ctx, tracker, result.OrderID)
}

// location picks exactly one of table or room.
func location(opts runOpts) (venue.Context, string, error) {
	switch {
	case opts.table != "" && opts.room != "":
		return "", "", errors.New("pass either -table or -room, not both")
	case opts.table != "":
		return venue.ContextTable, opts.table, nil
	case opts.room != "":
		return venue.ContextRoom, opts.room, nil
	default:
		return "", "", errors.New("a -table or -room is required")
	}
}

// buildCart parses the positional item arguments into a cart.
func buildCart(args []string, notes map[string]string) (*cart.Store, error) {
	store := cart.New()
	for _, arg := range args {
		line, err := parseItem(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q", arg)
		}
		store.Add(line)
	}
	for id, text := range notes {
		store.SetInstruction(cart.ParseLineID(id), text)
	}
	return store, nil
}

func parseItem(arg string) (cart.Line, error) {
	id, rest, ok := strings.Cut(arg, "=")
	if !ok || id == "" {
		return cart.Line{}, errors.New("expected menuItemID[::variantID]=quantity")
	}

	qtyPart, pricePart, hasPrice := strings.Cut(rest, "@")
	qty, err := strconv.Atoi(qtyPart)
	if err != nil || qty <= 0 {
		return cart.Line{}, errors.New("quantity must be a positive integer")
	}

	line := cart.Line{ID: cart.ParseLineID(id), Quantity: qty}
	if hasPrice {
		price, err := decimal.NewFromString(pricePart)
		if err != nil {
			return cart.Line{}, errors.Wrap(err, "unit price")
		}
		line.UnitPrice = price
	}
	return line, nil
}

// track follows the order until SERVED or CANCELLED, printing every change.
func track(ctx context.Context, tracker *guest.Tracker, orderID string) error {
	var last order.Status
	err := tracker.Track(ctx, orderID,
		func(o *order.Order) {
			if o.Status == last {
				return
			}
			last = o.Status
			if o.EstimatedMinutes > 0 && !o.Status.Terminal() {
				fmt.Printf("%s  ~%d min\n", o.Status, o.EstimatedMinutes)
				return
			}
			fmt.Println(o.Status)
		},
		func(err error) {
			fmt.Printf("refresh failed, retrying: %v\n", err)
		},
	)
	if errors.Is(err, guest.ErrNoSession) {
		return errors.New("this device has no record of that order")
	}
	return err
}
