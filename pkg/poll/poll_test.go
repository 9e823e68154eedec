package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config[int]{Interval: time.Second, OnUpdate: func(int) {}})
	require.ErrorIs(t, err, ErrNoFetch)

	_, err = New(Config[int]{Fetch: func(context.Context) (int, error) { return 0, nil }, Interval: time.Second})
	require.ErrorIs(t, err, ErrNoSink)

	_, err = New(Config[int]{Fetch: func(context.Context) (int, error) { return 0, nil }, OnUpdate: func(int) {}})
	require.ErrorIs(t, err, ErrNoInterval)
}

func TestRun_StopsAtTerminalValue(t *testing.T) {
	var fetches atomic.Int32
	var seen []int

	r, err := New(Config[int]{
		Fetch: func(context.Context) (int, error) {
			return int(fetches.Add(1)), nil
		},
		Interval: 5 * time.Millisecond,
		Terminal: func(v int) bool { return v >= 3 },
		OnUpdate: func(v int) { seen = append(seen, v) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, []int{1, 2, 3}, seen)

	// No further fetch is scheduled after the one that observed the
	// terminal value.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), fetches.Load())
}

func TestRun_ImmediateFirstFetch(t *testing.T) {
	got := make(chan int, 1)
	r, err := New(Config[int]{
		Fetch:    func(context.Context) (int, error) { return 42, nil },
		Interval: time.Hour, // only the immediate fetch should happen
		Terminal: func(int) bool { return true },
		OnUpdate: func(v int) { got <- v },
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("first fetch did not happen immediately")
	}
	require.NoError(t, <-done)
}

func TestRun_FirstFetchFailureAborts(t *testing.T) {
	fetchErr := errors.New("boom")
	r, err := New(Config[int]{
		Fetch:    func(context.Context) (int, error) { return 0, fetchErr },
		Interval: time.Millisecond,
		OnUpdate: func(int) { t.Error("no update expected") },
	})
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.ErrorIs(t, err, fetchErr)
}

func TestRun_TransientFailureKeepsPolling(t *testing.T) {
	var fetches atomic.Int32
	var transient []error
	var seen []int

	r, err := New(Config[int]{
		Fetch: func(context.Context) (int, error) {
			n := int(fetches.Add(1))
			if n == 2 {
				return 0, errors.New("network blip")
			}
			return n, nil
		},
		Interval: 5 * time.Millisecond,
		Terminal: func(v int) bool { return v >= 3 },
		OnUpdate: func(v int) { seen = append(seen, v) },
		OnError:  func(err error) { transient = append(transient, err) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	// The blip on tick 2 is surfaced but the loop self-heals on tick 3.
	assert.Equal(t, []int{1, 3}, seen)
	require.Len(t, transient, 1)
	assert.ErrorContains(t, transient[0], "network blip")
}

func TestRun_CancellationDiscardsInFlightResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	r, err := New(Config[int]{
		Fetch: func(context.Context) (int, error) {
			<-release
			return 1, nil
		},
		Interval: time.Millisecond,
		OnUpdate: func(int) { t.Error("late result must not be delivered") },
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Tear down while the fetch is in flight, then let it complete.
	cancel()
	close(release)

	err = <-done
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancellationStopsLoop(t *testing.T) {
	var fetches atomic.Int32
	r, err := New(Config[int]{
		Fetch:    func(context.Context) (int, error) { return int(fetches.Add(1)), nil },
		Interval: 5 * time.Millisecond,
		OnUpdate: func(int) {},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// No list terminal condition: the loop only ever stops via cancellation.
	n := fetches.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, fetches.Load())
}
