// Package statuswatcher keeps the delivery status of the displayed log rows up to date.
package statuswatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/go-co-op/gocron"
	"golang.org/x/time/rate"
)

type StatusFetcher interface {
	DeliveryStatus(ctx context.Context, id int) (models.DeliveryStatus, error)
}

// ChangeHandler is called from the polling goroutine when a tracked row changes status
type ChangeHandler func(id int, previous, current models.DeliveryStatus)

type Watcher struct {
	IntervalSeconds int

	fetcher  StatusFetcher
	onChange ChangeHandler
	limiter  *rate.Limiter

	lock      sync.Mutex
	tracked   map[int]models.DeliveryStatus
	scheduler *gocron.Scheduler
}

// Track starts watching a row, rows in a terminal status are ignored
func (w *Watcher) Track(row models.LogMessage) {
	if row.Status.Terminal() {
		return
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	w.tracked[row.ID] = row.Status
}

func (w *Watcher) Untrack(id int) {
	w.lock.Lock()
	defer w.lock.Unlock()
	delete(w.tracked, id)
}

// Tracked returns the ids of the watched rows in ascending order
func (w *Watcher) Tracked() []int {
	w.lock.Lock()
	defer w.lock.Unlock()
	output := make([]int, 0, len(w.tracked))
	for id := range w.tracked {
		output = append(output, id)
	}
	sort.Ints(output)
	return output
}

// Status returns the last known status of a tracked row
func (w *Watcher) Status(id int) (models.DeliveryStatus, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	status, found := w.tracked[id]
	return status, found
}

func (w *Watcher) update(id int, current models.DeliveryStatus) (models.DeliveryStatus, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	previous, found := w.tracked[id]
	if !found {
		return "", false
	}
	if current.Terminal() {
		delete(w.tracked, id)
	} else {
		w.tracked[id] = current
	}
	return previous, previous != current
}

// RefreshNow fetches the status of every tracked row once. An expired session stops the round
// since none of the remaining lookups can succeed.
func (w *Watcher) RefreshNow(ctx context.Context) error {
	ids := w.Tracked()
	failed := []error{}
	for _, id := range ids {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		status, err := w.fetcher.DeliveryStatus(ctx, id)
		if errors.Is(err, gwerrors.ErrSessionExpired) {
			return err
		}
		if errors.Is(err, gwerrors.ErrNotFound) {
			slog.Warn("STATUS WATCHER", "message", "the row does not exist anymore", "id", id)
			w.Untrack(id)
			continue
		}
		if err != nil {
			failed = append(failed, fmt.Errorf("row %d: %w", id, err))
			continue
		}
		previous, changed := w.update(id, status)
		if changed && w.onChange != nil {
			w.onChange(id, previous, status)
		}
	}
	slog.Debug(
		"STATUS WATCHER",
		"message", fmt.Sprintf("%v/%v delivery statuses refreshed", len(ids)-len(failed), len(ids)),
	)
	return errors.Join(failed...)
}

// Start schedules RefreshNow every IntervalSeconds until Stop is called
func (w *Watcher) Start() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.scheduler != nil {
		return fmt.Errorf("the status watcher is already running")
	}
	s := gocron.NewScheduler(time.UTC)
	refreshTask := func(job gocron.Job) {
		err := w.RefreshNow(job.Context())
		if err != nil {
			slog.Error("STATUS WATCHER", "message", "refreshing the delivery statuses failed", "error", err)
		}
	}
	_, err := s.Every(w.IntervalSeconds).
		Seconds().
		SingletonMode().
		DoWithJobDetails(refreshTask)
	if err != nil {
		return err
	}
	s.StartAsync()
	w.scheduler = s
	return nil
}

func (w *Watcher) Stop() {
	w.lock.Lock()
	s := w.scheduler
	w.scheduler = nil
	w.lock.Unlock()
	if s != nil {
		s.Stop()
	}
}

type WatcherOption func(*Watcher) error

func WithConfig(watcherConfig config.StatusWatcherConfig) WatcherOption {
	return func(w *Watcher) error {
		if err := watcherConfig.Validate(); err != nil {
			return err
		}
		w.IntervalSeconds = watcherConfig.IntervalSeconds
		w.limiter = rate.NewLimiter(rate.Limit(watcherConfig.RatePerSecond), watcherConfig.Burst)
		return nil
	}
}

func WithStatusFetcher(fetcher StatusFetcher) WatcherOption {
	return func(w *Watcher) error {
		w.fetcher = fetcher
		return nil
	}
}

func WithOnChange(handler ChangeHandler) WatcherOption {
	return func(w *Watcher) error {
		w.onChange = handler
		return nil
	}
}

// NewWatcher creates a Watcher, a configuration and a status fetcher are required
func NewWatcher(options ...WatcherOption) (*Watcher, error) {
	w := Watcher{tracked: map[int]models.DeliveryStatus{}}
	for _, opt := range options {
		err := opt(&w)
		if err != nil {
			return &Watcher{}, err
		}
	}
	if w.IntervalSeconds <= 0 || w.limiter == nil {
		return &Watcher{}, fmt.Errorf("status watcher config not provided")
	}
	if w.fetcher == nil {
		return &Watcher{}, fmt.Errorf("status fetcher not initialized")
	}
	return &w, nil
}
