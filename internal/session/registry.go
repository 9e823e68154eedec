// Package session holds the durable local state that survives process
// restarts: guest ordering sessions (so an anonymous diner can resume
// tracking an order without an account) and the staff bearer credential.
//
// Both are read from the backing store on every access rather than cached,
// trading redundant reads for never acting on stale state.
package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/hussainwajda/menux-go/internal/domain/venue"
)

// Session maps "who is ordering, where" to an order identifier.
type Session struct {
	OrderID   string
	CreatedAt time.Time
	Context   venue.Context
	TargetID  string
	Slug      string
}

// Key addresses the current session at one table or room of one tenant.
type Key struct {
	Slug     string
	Context  venue.Context
	TargetID string
}

// Key derives the lookup key of a session.
func (s Session) Key() Key {
	return Key{Slug: s.Slug, Context: s.Context, TargetID: s.TargetID}
}

// Store persists the full session set. Implementations: Memory for tests,
// File for real use.
type Store interface {
	Load() ([]Session, error)
	Save(sessions []Session) error
}

// Registry resolves guest sessions by location key or order ID. A missing
// entry is a normal condition (first visit, different device), reported via
// ok=false, never as an error.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// NewRegistry builds a Registry over the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Put records a session, replacing any previous session for the same location
// and any previous record of the same order.
func (r *Registry) Put(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.store.Load()
	if err != nil {
		return errors.Wrap(err, "load sessions")
	}

	kept := sessions[:0]
	for _, existing := range sessions {
		if existing.Key() == s.Key() || existing.OrderID == s.OrderID {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, s)

	if err := r.store.Save(kept); err != nil {
		return errors.Wrap(err, "save sessions")
	}
	return nil
}

// Get resolves the current session at a location.
func (r *Registry) Get(key Key) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.store.Load()
	if err != nil {
		return Session{}, false, errors.Wrap(err, "load sessions")
	}
	for _, s := range sessions {
		if s.Key() == key {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

// GetByOrderID resolves a session for resuming a specific order after
// following a link.
func (r *Registry) GetByOrderID(orderID string) (Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.store.Load()
	if err != nil {
		return Session{}, false, errors.Wrap(err, "load sessions")
	}
	for _, s := range sessions {
		if s.OrderID == orderID {
			return s, true, nil
		}
	}
	return Session{}, false, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu       sync.Mutex
	sessions []Session
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

func (m *Memory) Save(sessions []Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make([]Session, len(sessions))
	copy(m.sessions, sessions)
	return nil
}

// File persists sessions to one file. Writes go through a temp file plus
// rename so a crash never leaves a torn registry. No expiry is applied: a
// stale session for a long-served order still resolves and simply shows a
// terminal tracker view.
type File struct {
	path string
}

// NewFile builds a file-backed store at the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load() ([]Session, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read registry")
	}
	return decodeSessions(raw)
}

func (f *File) Save(sessions []Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create registry dir")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encodeSessions(sessions), 0o600); err != nil {
		return errors.Wrap(err, "write registry")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "replace registry")
	}
	return nil
}

func encodeSessions(sessions []Session) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("sessions")
	e.ArrStart()
	for _, s := range sessions {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(s.OrderID)
		e.FieldStart("createdAt")
		e.Str(s.CreatedAt.UTC().Format(time.RFC3339Nano))
		e.FieldStart("context")
		e.Str(string(s.Context))
		e.FieldStart("targetId")
		e.Str(s.TargetID)
		e.FieldStart("slug")
		e.Str(s.Slug)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func decodeSessions(raw []byte) ([]Session, error) {
	var sessions []Session

	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "sessions" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var s Session
			if err := d.Obj(func(d *jx.Decoder, field string) error {
				switch field {
				case "orderId":
					v, err := d.Str()
					s.OrderID = v
					return err
				case "createdAt":
					v, err := d.Str()
					if err != nil {
						return err
					}
					t, err := time.Parse(time.RFC3339Nano, v)
					s.CreatedAt = t
					return err
				case "context":
					v, err := d.Str()
					if err != nil {
						return err
					}
					c, err := venue.ParseContext(v)
					s.Context = c
					return err
				case "targetId":
					v, err := d.Str()
					s.TargetID = v
					return err
				case "slug":
					v, err := d.Str()
					s.Slug = v
					return err
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			sessions = append(sessions, s)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode registry")
	}
	return sessions, nil
}
