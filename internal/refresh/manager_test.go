package refresh_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odclab/dcmon/internal/refresh"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestViewSnapshotBeforeFirstFetch(t *testing.T) {
	view := refresh.NewView("power", time.Minute, func(ctx context.Context) ([]int, error) {
		return nil, nil
	})

	_, _, err := view.Snapshot()
	require.ErrorIs(t, err, refresh.ErrNotFetched)
}

func TestViewRefreshSuccess(t *testing.T) {
	view := refresh.NewView("power", time.Minute, func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})

	view.Refresh(context.Background(), discardLogger(), nil)

	data, fetchedAt, err := view.Snapshot()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, data)
	require.WithinDuration(t, time.Now().UTC(), fetchedAt, 5*time.Second)
}

func TestViewRefreshFailureSurfacesFetchError(t *testing.T) {
	fetchErr := errors.New("backend unreachable")
	view := refresh.NewView("power", time.Minute, func(ctx context.Context) ([]int, error) {
		return nil, fetchErr
	})

	view.Refresh(context.Background(), discardLogger(), nil)

	_, _, err := view.Snapshot()
	require.ErrorIs(t, err, fetchErr)
}

func TestViewRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	var fail atomic.Bool
	view := refresh.NewView("power", time.Minute, func(ctx context.Context) ([]int, error) {
		if fail.Load() {
			return nil, errors.New("backend unreachable")
		}
		return []int{42}, nil
	})

	view.Refresh(context.Background(), discardLogger(), nil)
	fail.Store(true)
	view.Refresh(context.Background(), discardLogger(), nil)

	data, _, err := view.Snapshot()
	require.NoError(t, err)
	require.Equal(t, []int{42}, data)
}

func TestViewRefreshRecordsOutcome(t *testing.T) {
	fetchErr := errors.New("backend unreachable")
	view := refresh.NewView("scan", time.Minute, func(ctx context.Context) (string, error) {
		return "", fetchErr
	})

	var gotView string
	var gotErr error
	view.Refresh(context.Background(), discardLogger(), func(name string, err error) {
		gotView = name
		gotErr = err
	})

	require.Equal(t, "scan", gotView)
	require.ErrorIs(t, gotErr, fetchErr)
}

func TestViewRefreshDiscardsSupersededResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	view := refresh.NewView("power", time.Minute, func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return 1, nil
		}
		return 2, nil
	})

	log := discardLogger()

	firstDone := make(chan struct{})
	go func() {
		view.Refresh(context.Background(), log, nil)
		close(firstDone)
	}()

	// The second refresh resolves while the first is still in flight, so the
	// first result is stale by the time it lands.
	<-started
	view.Refresh(context.Background(), log, nil)
	close(release)
	<-firstDone

	data, _, err := view.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 2, data)
}

func TestManagerRefreshesImmediatelyOnStart(t *testing.T) {
	fetched := make(chan struct{})
	var once atomic.Bool
	view := refresh.NewView("power", time.Hour, func(ctx context.Context) (int, error) {
		if once.CompareAndSwap(false, true) {
			close(fetched)
		}
		return 7, nil
	})

	manager := refresh.NewManager(discardLogger(), nil, view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)
	defer manager.Stop()

	select {
	case <-fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("view was not refreshed on start")
	}

	require.Eventually(t, func() bool {
		data, _, err := view.Snapshot()
		return err == nil && data == 7
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManagerTicksUntilStopped(t *testing.T) {
	var calls atomic.Int32
	view := refresh.NewView("power", 20*time.Millisecond, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	manager := refresh.NewManager(discardLogger(), nil, view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, 5*time.Second, 10*time.Millisecond)

	manager.Stop()
	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, calls.Load(), "no refreshes after Stop")
}
