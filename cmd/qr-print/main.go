// Command qr-print manages a restaurant's tables and rooms and exports their
// menu QR codes as printable PNG files.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/hussainwajda/menux-go/internal/api"
	appkg "github.com/hussainwajda/menux-go/internal/app"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/internal/staff"
)

func main() {
	var (
		kind    string
		outDir  string
		size    int
		create  string
		rename  string
		toggle  string
		remove  string
		skipPNG bool
	)

	flag.StringVar(&kind, "context", "table", "entity kind to manage: table or room")
	flag.StringVar(&outDir, "out", "qr", "directory for exported PNG files")
	flag.IntVar(&size, "size", 600, "PNG edge length in pixels")
	flag.StringVar(&create, "create", "", "add an entity with this display number")
	flag.StringVar(&rename, "rename", "", "change a display number, id=number")
	flag.StringVar(&toggle, "toggle", "", "flip an entity's active flag by ID")
	flag.StringVar(&remove, "delete", "", "remove an entity by ID")
	flag.BoolVar(&skipPNG, "no-export", false, "skip PNG export, only apply mutations and list")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, kind, outDir, size, create, rename, toggle, remove, skipPNG); err != nil {
		slog.Error("qr-print failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, kind, outDir string, size int, create, rename, toggle, remove string, skipPNG bool) error {
	vctx, err := venue.ParseContext(kind)
	if err != nil {
		return err
	}

	cfg, err := appkg.LoadConfig()
	if err != nil {
		return err
	}
	rt, err := appkg.Setup(cfg)
	if err != nil {
		return err
	}

	mgr := staff.NewVenueManager(rt.Client, cfg.Slug, vctx)
	if err := mgr.Load(ctx); err != nil {
		return loginHint(errors.Wrap(err, "load entities"))
	}

	switch {
	case create != "":
		e, err := mgr.Create(ctx, create)
		if err != nil {
			return loginHint(err)
		}
		slog.Info("created", slog.String("id", e.ID), slog.String("number", e.Number))
	case rename != "":
		id, number, ok := strings.Cut(rename, "=")
		if !ok {
			return errors.New("expected -rename id=number")
		}
		e, err := mgr.Rename(ctx, id, number)
		if err != nil {
			return loginHint(err)
		}
		slog.Info("renamed", slog.String("id", e.ID), slog.String("number", e.Number))
	case toggle != "":
		e, err := mgr.Toggle(ctx, toggle)
		if err != nil {
			return loginHint(err)
		}
		slog.Info("toggled", slog.String("id", e.ID), slog.Bool("active", e.Active))
	case remove != "":
		if err := mgr.Delete(ctx, remove); err != nil {
			return loginHint(err)
		}
		slog.Info("deleted", slog.String("id", remove))
	}

	entities := mgr.Entities()
	for _, e := range entities {
		slog.Info("entity",
			slog.String("id", e.ID),
			slog.String("number", e.Number),
			slog.Bool("active", e.Active),
			slog.String("url", e.QRURL),
		)
	}

	if skipPNG {
		return nil
	}
	return exportPNGs(ctx, entities, string(vctx), outDir, size)
}

// loginHint points the operator at order-board -login when the server
// rejected the stored credential (the client already dropped it).
func loginHint(err error) error {
	if errors.Is(err, api.ErrNotAuthorized) {
		return errors.Wrap(err, "not authenticated, log in with order-board -login")
	}
	return err
}

// fileSafe maps a display number onto a filename fragment that cannot escape
// the output directory or break on the filesystem.
func fileSafe(number string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, number)
}

// exportPNGs writes one QR code per active entity, concurrently. Inactive
// entities are skipped so stale codes do not end up on tables.
func exportPNGs(ctx context.Context, entities []venue.Entity, kind, outDir string, size int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range entities {
		if !e.Active {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(outDir, kind+"-"+fileSafe(e.Number)+".png")
			if err := qrcode.WriteFile(e.QRURL, qrcode.Medium, size, path); err != nil {
				return errors.Wrapf(err, "write %s", path)
			}
			slog.Info("exported", slog.String("path", path))
			return nil
		})
	}
	return g.Wait()
}
