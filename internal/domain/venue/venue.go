// Package venue models the physical ordering targets of a restaurant: tables
// and rooms. Each carries a QR payload pointing guests at the public menu for
// that exact spot.
package venue

import (
	"net/url"

	"github.com/go-faster/errors"
)

// Context says whether an ordering target is a table or a room.
type Context string

const (
	ContextTable Context = "table"
	ContextRoom  Context = "room"
)

// ErrUnknownContext is returned for context values other than table/room.
var ErrUnknownContext = errors.New("unknown dining context")

// ParseContext validates a wire context value.
func ParseContext(s string) (Context, error) {
	switch Context(s) {
	case ContextTable, ContextRoom:
		return Context(s), nil
	}
	return "", errors.Wrapf(ErrUnknownContext, "%q", s)
}

// Entity is a managed table or room. Mutations operate on whole list
// snapshots so a rejected change can restore the exact previous state.
type Entity struct {
	ID         string
	Number     string
	Active     bool
	QRURL      string
	QRImageURL string
}

// QRTargetURL builds the public menu URL a guest lands on after scanning:
// <base>/<slug>/menu/<context>/<id>.
func QRTargetURL(base, slug string, ctx Context, id string) string {
	return base + "/" + url.PathEscape(slug) + "/menu/" + string(ctx) + "/" + url.PathEscape(id)
}

// QRImageURL returns the hosted rendering of the QR payload. The image itself
// is produced by an external renderer keyed by the target URL.
func QRImageURL(target string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=600x600&data=" + url.QueryEscape(target)
}

// Normalize fills derived QR fields the server response may have omitted.
func (e *Entity) Normalize(base, slug string, ctx Context) {
	if e.QRURL == "" {
		e.QRURL = QRTargetURL(base, slug, ctx, e.ID)
	}
	if e.QRImageURL == "" {
		e.QRImageURL = QRImageURL(e.QRURL)
	}
}
