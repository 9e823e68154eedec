package staff

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/hussainwajda/menux-go/internal/api"
	"github.com/hussainwajda/menux-go/internal/domain/venue"
	"github.com/hussainwajda/menux-go/pkg/optimistic"
)

// ErrVenueNotFound is returned for actions on unknown entity IDs.
var ErrVenueNotFound = errors.New("table/room not found")

// VenueAPI is the slice of the platform client venue management needs.
type VenueAPI interface {
	Venues(ctx context.Context, slug string, vctx venue.Context) ([]venue.Entity, error)
	CreateVenue(ctx context.Context, slug string, vctx venue.Context, number string) (venue.Entity, error)
	UpdateVenue(ctx context.Context, slug string, vctx venue.Context, id string, upd api.UpdateVenue) (venue.Entity, error)
	DeleteVenue(ctx context.Context, vctx venue.Context, id string) error
}

// VenueManager maintains one tenant's tables or rooms. Every mutation applies
// locally first, then commits remotely; a rejected commit snaps the list back
// to the exact pre-mutation state. Successful commits adopt the server's
// returned entity, which carries fields the client could not have predicted
// (regenerated QR payloads).
type VenueManager struct {
	api  VenueAPI
	slug string
	vctx venue.Context
	list *optimistic.List[venue.Entity]
}

// NewVenueManager builds a manager for one entity kind of one tenant.
func NewVenueManager(client VenueAPI, slug string, vctx venue.Context) *VenueManager {
	return &VenueManager{
		api:  client,
		slug: slug,
		vctx: vctx,
		list: optimistic.NewList[venue.Entity](nil),
	}
}

// Load fetches the current list from the server.
func (m *VenueManager) Load(ctx context.Context) error {
	entities, err := m.api.Venues(ctx, m.slug, m.vctx)
	if err != nil {
		return err
	}
	m.list.Replace(entities)
	return nil
}

// Entities returns the current list snapshot.
func (m *VenueManager) Entities() []venue.Entity {
	return m.list.Snapshot()
}

// find locates an entity in the current snapshot.
func (m *VenueManager) find(id string) (venue.Entity, error) {
	for _, e := range m.list.Snapshot() {
		if e.ID == id {
			return e, nil
		}
	}
	return venue.Entity{}, errors.Wrapf(ErrVenueNotFound, "%s", id)
}

// duplicateNumber mirrors the server's uniqueness rule so obvious duplicates
// fail inline before a round trip. The server still has the final say.
func (m *VenueManager) duplicateNumber(number, excludeID string) bool {
	for _, e := range m.list.Snapshot() {
		if e.ID != excludeID && strings.EqualFold(e.Number, number) {
			return true
		}
	}
	return false
}

// Create adds an entity with the given display number: an optimistic
// placeholder row appears immediately and is swapped for the server's entity
// (with its real ID and QR payload) on success, or removed on failure.
func (m *VenueManager) Create(ctx context.Context, number string) (venue.Entity, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return venue.Entity{}, &api.ValidationError{Message: "number is required"}
	}
	if m.duplicateNumber(number, "") {
		return venue.Entity{}, &api.ValidationError{Message: "number already exists"}
	}

	placeholderID := "pending-" + uuid.NewString()
	return optimistic.Run(ctx, m.list, optimistic.Command[venue.Entity, venue.Entity]{
		Apply: func(items []venue.Entity) []venue.Entity {
			return append(items, venue.Entity{ID: placeholderID, Number: number, Active: true})
		},
		Commit: func(ctx context.Context) (venue.Entity, error) {
			return m.api.CreateVenue(ctx, m.slug, m.vctx, number)
		},
		Reconcile: func(items []venue.Entity, created venue.Entity) []venue.Entity {
			for i := range items {
				if items[i].ID == placeholderID {
					items[i] = created
				}
			}
			return items
		},
	})
}

// Rename changes an entity's display number.
func (m *VenueManager) Rename(ctx context.Context, id, number string) (venue.Entity, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return venue.Entity{}, &api.ValidationError{Message: "number is required"}
	}
	if m.duplicateNumber(number, id) {
		return venue.Entity{}, &api.ValidationError{Message: "number already exists"}
	}
	if _, err := m.find(id); err != nil {
		return venue.Entity{}, err
	}

	return optimistic.Run(ctx, m.list, optimistic.Command[venue.Entity, venue.Entity]{
		Apply: func(items []venue.Entity) []venue.Entity {
			for i := range items {
				if items[i].ID == id {
					items[i].Number = number
				}
			}
			return items
		},
		Commit: func(ctx context.Context) (venue.Entity, error) {
			return m.api.UpdateVenue(ctx, m.slug, m.vctx, id, api.UpdateVenue{Number: &number})
		},
		Reconcile: reconcileByID(id),
	})
}

// Toggle flips an entity's active flag. The flip is purely client-toggled, so
// it is shown optimistically and either confirmed by the server's entity or
// snapped back.
func (m *VenueManager) Toggle(ctx context.Context, id string) (venue.Entity, error) {
	current, err := m.find(id)
	if err != nil {
		return venue.Entity{}, err
	}
	next := !current.Active

	return optimistic.Run(ctx, m.list, optimistic.Command[venue.Entity, venue.Entity]{
		Apply: func(items []venue.Entity) []venue.Entity {
			for i := range items {
				if items[i].ID == id {
					items[i].Active = next
				}
			}
			return items
		},
		Commit: func(ctx context.Context) (venue.Entity, error) {
			return m.api.UpdateVenue(ctx, m.slug, m.vctx, id, api.UpdateVenue{Active: &next})
		},
		Reconcile: reconcileByID(id),
	})
}

// Delete removes an entity: it disappears immediately and reappears if the
// server rejects the removal.
func (m *VenueManager) Delete(ctx context.Context, id string) error {
	if _, err := m.find(id); err != nil {
		return err
	}

	_, err := optimistic.Run(ctx, m.list, optimistic.Command[venue.Entity, struct{}]{
		Apply: func(items []venue.Entity) []venue.Entity {
			out := items[:0]
			for _, e := range items {
				if e.ID != id {
					out = append(out, e)
				}
			}
			return out
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.api.DeleteVenue(ctx, m.vctx, id)
		},
	})
	return err
}

// reconcileByID swaps one row for the server's authoritative entity.
func reconcileByID(id string) func([]venue.Entity, venue.Entity) []venue.Entity {
	return func(items []venue.Entity, updated venue.Entity) []venue.Entity {
		for i := range items {
			if items[i].ID == id {
				items[i] = updated
			}
		}
		return items
	}
}
