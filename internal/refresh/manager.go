package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odclab/dcmon/internal/lib/logger/sl"
)

const fetchTimeout = 30 * time.Second

// ErrNotFetched is returned by Snapshot before the first successful fetch.
var ErrNotFetched = errors.New("view not fetched yet")

// RecordFunc observes the outcome of each refresh run.
type RecordFunc func(view string, err error)

// Runner is one periodically refreshed view; implemented by View.
type Runner interface {
	Name() string
	Interval() time.Duration
	Refresh(ctx context.Context, log *slog.Logger, record RecordFunc)
}

// View owns one fetched-and-derived snapshot, replaced atomically when a
// fetch resolves. Each fetch is tagged with a generation; a result whose
// generation is no longer the latest started is discarded, so a slow
// superseded response cannot overwrite newer data.
type View[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)

	mu        sync.RWMutex
	data      T
	fetchedAt time.Time
	lastErr   error
	hasData   bool
	gen       uuid.UUID
}

func NewView[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error)) *View[T] {
	return &View[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
	}
}

func (v *View[T]) Name() string { return v.name }

func (v *View[T]) Interval() time.Duration { return v.interval }

// Snapshot returns the latest data and its fetch time. Before the first
// successful fetch it returns the last fetch error, or ErrNotFetched. A
// failed refresh leaves the previous snapshot in place, so displayed data
// simply waits for the next tick.
func (v *View[T]) Snapshot() (T, time.Time, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.hasData {
		var zero T
		if v.lastErr != nil {
			return zero, time.Time{}, v.lastErr
		}
		return zero, time.Time{}, ErrNotFetched
	}
	return v.data, v.fetchedAt, nil
}

func (v *View[T]) Refresh(ctx context.Context, log *slog.Logger, record RecordFunc) {
	gen := uuid.New()
	v.mu.Lock()
	v.gen = gen
	v.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	data, err := v.fetch(fetchCtx)

	if record != nil {
		record(v.name, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.gen != gen {
		log.Debug("discarding superseded fetch result", slog.String("view", v.name))
		return
	}

	if err != nil {
		v.lastErr = err
		log.Error("failed to refresh view",
			slog.String("view", v.name),
			sl.Err(err),
		)
		return
	}

	v.data = data
	v.fetchedAt = time.Now().UTC()
	v.lastErr = nil
	v.hasData = true
}

// Manager drives one ticker loop per view. Views share no mutable state;
// concurrent fetches for different views are independent.
type Manager struct {
	log    *slog.Logger
	views  []Runner
	record RecordFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewManager(log *slog.Logger, record RecordFunc, views ...Runner) *Manager {
	return &Manager{
		log:    log,
		views:  views,
		record: record,
		stopCh: make(chan struct{}),
	}
}

func (m *Manager) Start(ctx context.Context) {
	for _, view := range m.views {
		m.wg.Add(1)
		go m.run(ctx, view)
	}
}

func (m *Manager) run(ctx context.Context, view Runner) {
	defer m.wg.Done()

	m.log.Info("starting view refresher",
		slog.String("view", view.Name()),
		slog.Duration("interval", view.Interval()),
	)

	view.Refresh(ctx, m.log, m.record)

	ticker := time.NewTicker(view.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			view.Refresh(ctx, m.log, m.record)
		}
	}
}

func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}
