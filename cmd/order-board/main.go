// Command order-board is the staff view of the live order queue. Without
// flags it watches the queue and prints every refresh; with an action flag it
// performs one mutation and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/hussainwajda/menux-go/internal/api"
	appkg "github.com/hussainwajda/menux-go/internal/app"
	"github.com/hussainwajda/menux-go/internal/domain/order"
	"github.com/hussainwajda/menux-go/internal/staff"
)

func main() {
	var (
		login    = flag.String("login", "", "store a staff token for admin calls and exit")
		logout   = flag.Bool("logout", false, "forget the stored staff token and exit")
		advance  = flag.String("advance", "", "move an order ID one step forward")
		cancel   = flag.String("cancel", "", "cancel an order ID")
		markPaid = flag.String("mark-paid", "", "settle an order ID at the counter")
		gateway  = flag.String("gateway", string(order.GatewayCash), "payment gateway for -mark-paid (CASH, UPI, RAZORPAY)")
		history  = flag.Bool("history", false, "include terminal orders in the watch output")
	)
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

		switch {
		case *login != "":
			return rt.Credentials.Save(*login, time.Time{})
		case *logout:
			return rt.Credentials.Clear()
		}

		board := staff.NewBoard(rt.Client, cfg.PollInterval)

		switch {
		case *advance != "":
			return act(ctx, lg, board, *advance, func(ctx context.Context) (*order.Order, error) {
				return board.Advance(ctx, *advance)
			})
		case *cancel != "":
			return act(ctx, lg, board, *cancel, func(ctx context.Context) (*order.Order, error) {
				return board.Cancel(ctx, *cancel)
			})
		case *markPaid != "":
			gw, err := order.ParseGateway(*gateway)
			if err != nil {
				return err
			}
			return act(ctx, lg, board, *markPaid, func(ctx context.Context) (*order.Order, error) {
				return board.MarkPaid(ctx, *markPaid, gw)
			})
		}

		return watch(ctx, board, *history)
	})
}

// loginHint points the operator at -login when the server rejected the
// stored credential (the client already dropped it).
func loginHint(err error) error {
	if errors.Is(err, api.ErrNotAuthorized) {
		return errors.Wrap(err, "not authenticated, run -login <token> again")
	}
	return err
}

// act performs a single board mutation against a fresh snapshot.
func act(ctx context.Context, lg *zap.Logger, board *staff.Board, orderID string, do func(context.Context) (*order.Order, error)) error {
	if err := board.Refresh(ctx); err != nil {
		return loginHint(err)
	}
	o, err := do(ctx)
	if err != nil {
		return loginHint(err)
	}
	lg.Info("Order updated",
		zap.String("order_id", orderID),
		zap.String("status", string(o.Status)),
		zap.String("payment", string(o.PaymentStatus)),
	)
	return nil
}

// watch keeps printing the queue until interrupted.
func watch(ctx context.Context, board *staff.Board, history bool) error {
	err := board.Watch(ctx,
		func(orders []*order.Order) {
			render(orders, history)
		},
		func(err error) {
			fmt.Printf("refresh failed, retrying: %v\n", err)
		},
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return loginHint(err)
}

func render(orders []*order.Order, history bool) {
	queue := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if history || !o.Status.Terminal() {
			queue = append(queue, o)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})

	fmt.Printf("\n%-12s %-12s %-10s %-9s %8s  %s\n", "ORDER", "LOCATION", "STATUS", "PAYMENT", "TOTAL", "ITEMS")
	for _, o := range queue {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		}
		fmt.Printf("%-12s %-12s %-10s %-9s %8s  %s\n",
			o.ID, o.Location(), o.Status, o.PaymentStatus, o.Total.StringFixed(2), strings.Join(items, ", "))
	}
}
