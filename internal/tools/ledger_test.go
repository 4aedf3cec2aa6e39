package tools

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/clock"
	"github.com/agentfs/agentfs/internal/record"
)

const testEpoch = 1_700_000_000_000

func newTestLedger(t *testing.T) (*Ledger, *clock.Manual) {
	t.Helper()
	st, err := record.Open(filepath.Join(t.TempDir(), "tools.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := clock.NewManual(testEpoch)
	return New(st, clk), clk
}

func TestStart_AllocatesIncreasingIDs(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id1, err := l.Start(ctx, "web_search", map[string]any{"q": "go"})
	require.NoError(t, err)
	id2, err := l.Start(ctx, "file_read", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestStart_EmptyNameRejected(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Start(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStart_RecordIsPending(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "web_search", map[string]any{"simulated": true})
	require.NoError(t, err)

	call, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, call.Status)
	assert.Equal(t, "web_search", call.Name)
	assert.Equal(t, int64(testEpoch), call.StartedAt)
	assert.Zero(t, call.CompletedAt)
}

func TestSuccess_TerminalTransition(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "web_search", nil)
	require.NoError(t, err)

	clk.Advance(500)
	require.NoError(t, l.Success(ctx, id, map[string]any{"completed": true}))

	call, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, call.Status)
	assert.Equal(t, int64(500), call.DurationMS)
	assert.Equal(t, call.StartedAt+500, call.CompletedAt)
	assert.Equal(t, map[string]any{"completed": true}, call.Output)
}

func TestError_TerminalTransition(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "web_search", nil)
	require.NoError(t, err)

	clk.Advance(400)
	require.NoError(t, l.Error(ctx, id, "Simulated failure"))

	call, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, call.Status)
	assert.Equal(t, "Simulated failure", call.Message)

	stats, err := l.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "web_search", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].TotalCalls)
	assert.Equal(t, int64(1), stats[0].Failed)
	assert.Equal(t, int64(0), stats[0].Successful)
}

func TestComplete_UnknownIDFails(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	assert.ErrorIs(t, l.Success(ctx, 99, nil), ErrNotFound)
	assert.ErrorIs(t, l.Error(ctx, 99, "x"), ErrNotFound)
}

func TestComplete_TwiceFails(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "tool", nil)
	require.NoError(t, err)
	require.NoError(t, l.Success(ctx, id, nil))

	assert.ErrorIs(t, l.Success(ctx, id, nil), ErrAlreadyTerminal)
	assert.ErrorIs(t, l.Error(ctx, id, "late"), ErrAlreadyTerminal)

	// The double completion must not have touched the stats.
	stats, err := l.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].TotalCalls)
}

func TestGetStats_MeanOverCompletedCalls(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	run := func(name string, dur int64, ok bool) {
		id, err := l.Start(ctx, name, nil)
		require.NoError(t, err)
		clk.Advance(dur)
		if ok {
			require.NoError(t, l.Success(ctx, id, nil))
		} else {
			require.NoError(t, l.Error(ctx, id, "fail"))
		}
	}

	run("web_search", 500, true)
	run("web_search", 300, true)
	run("file_read", 100, true)
	run("web_search", 400, false)

	// A pending call must not appear in stats.
	_, err := l.Start(ctx, "web_search", nil)
	require.NoError(t, err)

	stats, err := l.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Sorted by name ascending.
	assert.Equal(t, "file_read", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].TotalCalls)
	assert.InDelta(t, 100, stats[0].AvgDurationMS, 0.001)

	assert.Equal(t, "web_search", stats[1].Name)
	assert.Equal(t, int64(3), stats[1].TotalCalls)
	assert.Equal(t, int64(2), stats[1].Successful)
	assert.Equal(t, int64(1), stats[1].Failed)
	assert.InDelta(t, 400, stats[1].AvgDurationMS, 0.001) // (500+300+400)/3
}

func TestGetStats_EmptyLedger(t *testing.T) {
	l, _ := newTestLedger(t)

	stats, err := l.GetStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.NotNil(t, stats)
}

func TestGetRecent_TimeFilterAndOrder(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	// Three calls at 1s intervals.
	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		id, err := l.Start(ctx, name, nil)
		require.NoError(t, err)
		ids = append(ids, id)
		clk.Advance(1000)
	}

	// Everything from the second call's start onward.
	recent, err := l.GetRecent(ctx, testEpoch+1000)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[1], recent[0].ID)
	assert.Equal(t, ids[2], recent[1].ID)

	// A cutoff after every start excludes everything.
	recent, err = l.GetRecent(ctx, testEpoch+10_000)
	require.NoError(t, err)
	assert.Empty(t, recent)

	// The boundary is inclusive.
	recent, err = l.GetRecent(ctx, testEpoch)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestGetRecent_SameMillisecondOrderedByID(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// Clock does not move: same start timestamp for all three.
	for i := 0; i < 3; i++ {
		_, err := l.Start(ctx, "burst", nil)
		require.NoError(t, err)
	}

	recent, err := l.GetRecent(ctx, testEpoch)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for i, call := range recent {
		assert.Equal(t, int64(i+1), call.ID)
	}
}

func TestGetByName(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Start(ctx, "web_search", nil)
		require.NoError(t, err)
	}
	_, err := l.Start(ctx, "file_read", nil)
	require.NoError(t, err)

	calls, err := l.GetByName(ctx, "web_search", 0)
	require.NoError(t, err)
	assert.Len(t, calls, 3)

	calls, err = l.GetByName(ctx, "web_search", 2)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	// The two most recent, still ascending.
	assert.Equal(t, int64(2), calls[0].ID)
	assert.Equal(t, int64(3), calls[1].ID)
}

func TestStart_ConcurrentIDsUniqueAndIncreasing(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	const n = 32
	ids := make(chan int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := l.Start(ctx, "concurrent", nil)
			if err != nil {
				t.Errorf("Start() failed: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
