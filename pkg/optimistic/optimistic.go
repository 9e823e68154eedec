// Package optimistic runs local-first mutations against a list of entities:
// apply the intended change to local state immediately, issue the remote call,
// reconcile with the server's authoritative result on success, and restore the
// exact pre-mutation snapshot on failure.
//
// Every mutation site goes through the one Run path instead of bespoke
// try/rollback blocks.
package optimistic

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNoCommit is returned when a command has no remote call to issue.
var ErrNoCommit = errors.New("optimistic: commit function is required")

// List is a mutex-guarded collection under optimistic mutation. E must be a
// plain value type: snapshots are element copies, and rollback restores them
// verbatim.
type List[E any] struct {
	mu    sync.Mutex
	items []E
}

// NewList builds a List from the given items.
func NewList[E any](items []E) *List[E] {
	l := &List[E]{}
	l.Replace(items)
	return l
}

// Snapshot returns a copy of the current items.
func (l *List[E]) Snapshot() []E {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]E, len(l.items))
	copy(out, l.items)
	return out
}

// Replace swaps in a new set of items, copying the input.
func (l *List[E]) Replace(items []E) {
	next := make([]E, len(items))
	copy(next, items)

	l.mu.Lock()
	l.items = next
	l.mu.Unlock()
}

// Command describes one mutation over a List of E whose remote call returns
// the authoritative representation A.
type Command[E, A any] struct {
	// Apply performs the optimistic local change. Nil means no local guess:
	// the list only changes once the server answers (used where the
	// transition table is server-owned).
	Apply func(items []E) []E
	// Commit issues the remote mutation. Required.
	Commit func(ctx context.Context) (A, error)
	// Reconcile folds the server's authoritative result into the list,
	// overwriting whatever Apply guessed. Nil leaves the optimistic state.
	Reconcile func(items []E, result A) []E
}

// Run executes the command. On commit failure the list is restored to the
// exact snapshot taken before Apply, never a partial undo, and the commit
// error is returned for the caller to surface.
func Run[E, A any](ctx context.Context, list *List[E], cmd Command[E, A]) (A, error) {
	var zero A
	if cmd.Commit == nil {
		return zero, ErrNoCommit
	}

	snapshot := list.Snapshot()
	if cmd.Apply != nil {
		list.Replace(cmd.Apply(list.Snapshot()))
	}

	result, err := cmd.Commit(ctx)
	if err != nil {
		list.Replace(snapshot)
		return zero, err
	}

	if cmd.Reconcile != nil {
		list.Replace(cmd.Reconcile(list.Snapshot(), result))
	}
	return result, nil
}
