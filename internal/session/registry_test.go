package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussainwajda/menux-go/internal/domain/venue"
)

func sampleSession() Session {
	return Session{
		OrderID:   "o-1",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Context:   venue.ContextTable,
		TargetID:  "t-1",
		Slug:      "spice-villa",
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := NewRegistry(NewMemory())
	require.NoError(t, r.Put(sampleSession()))

	byKey, ok, err := r.Get(Key{Slug: "spice-villa", Context: venue.ContextTable, TargetID: "t-1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o-1", byKey.OrderID)

	// The same session resolves through the order-ID index with the same
	// location data.
	byOrder, ok, err := r.GetByOrderID("o-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byKey, byOrder)
	assert.Equal(t, "t-1", byOrder.TargetID)
	assert.Equal(t, venue.ContextTable, byOrder.Context)
}

func TestRegistry_MissingIsNotAnError(t *testing.T) {
	r := NewRegistry(NewMemory())

	_, ok, err := r.Get(Key{Slug: "spice-villa", Context: venue.ContextTable, TargetID: "t-404"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.GetByOrderID("o-404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_PutReplacesSameLocation(t *testing.T) {
	r := NewRegistry(NewMemory())
	require.NoError(t, r.Put(sampleSession()))

	next := sampleSession()
	next.OrderID = "o-2"
	require.NoError(t, r.Put(next))

	got, ok, err := r.Get(next.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o-2", got.OrderID)

	// The superseded order no longer resolves.
	_, ok, err = r.GetByOrderID("o-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_IndependentLocations(t *testing.T) {
	r := NewRegistry(NewMemory())
	require.NoError(t, r.Put(sampleSession()))

	room := Session{OrderID: "o-7", Context: venue.ContextRoom, TargetID: "r-1", Slug: "spice-villa"}
	require.NoError(t, r.Put(room))

	_, ok, err := r.Get(Key{Slug: "spice-villa", Context: venue.ContextTable, TargetID: "t-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok, err := r.Get(Key{Slug: "spice-villa", Context: venue.ContextRoom, TargetID: "r-1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o-7", got.OrderID)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menux", "sessions.json")

	r := NewRegistry(NewFile(path))
	require.NoError(t, r.Put(sampleSession()))

	// A fresh registry over the same file sees the session.
	reopened := NewRegistry(NewFile(path))
	got, ok, err := reopened.GetByOrderID("o-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSession(), got)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	r := NewRegistry(NewFile(filepath.Join(t.TempDir(), "nope.json")))

	_, ok, err := r.Get(Key{Slug: "s", Context: venue.ContextTable, TargetID: "t"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionCodec(t *testing.T) {
	in := []Session{
		sampleSession(),
		{OrderID: "o-2", CreatedAt: time.Now().UTC().Truncate(time.Second), Context: venue.ContextRoom, TargetID: "r-9", Slug: "cafe-blue"},
	}

	out, err := decodeSessions(encodeSessions(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSessionCodec_RejectsUnknownContext(t *testing.T) {
	_, err := decodeSessions([]byte(`{"sessions":[{"orderId":"o","context":"bar","targetId":"t","slug":"s","createdAt":"2025-06-01T12:00:00Z"}]}`))
	require.Error(t, err)
}

func TestFileStore_TempFileNotLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")
	require.NoError(t, NewFile(path).Save([]Session{sampleSession()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sessions.json", entries[0].Name())
}
