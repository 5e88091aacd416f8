// Package watcher drives the monitoring loop: it polls every stored
// target in turn, classifies the page, extracts remaining slots and
// raises alerts on the opening and slots-freed edges.
package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/detect"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/fetch"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store"
)

// NotifyFunc receives the alert tuple when a target opens or frees a
// slot. Delivery is fire-and-forget.
type NotifyFunc func(a domain.Alert)

// Config tunes the loop's pacing. Zero values take the production
// defaults.
type Config struct {
	// IntervalFloor is the minimum effective per-target interval;
	// configured values below it are raised, never lowered.
	IntervalFloor time.Duration
	// PaceDelay is the fixed buffer between targets, ahead of the
	// per-target interval pause.
	PaceDelay time.Duration
	// DebounceDelay sits between the first OPEN classification and the
	// confirmatory re-fetch.
	DebounceDelay time.Duration
	// Backoff applies after a store failure or an empty target list.
	Backoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.IntervalFloor <= 0 {
		c.IntervalFloor = 15 * time.Second
	}
	if c.PaceDelay <= 0 {
		c.PaceDelay = 250 * time.Millisecond
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// Engine runs one cooperative loop over all targets. Polls are strictly
// sequential: the wall-clock spacing between two polls of the same
// target is the sum of request time and interval pause across the whole
// target list, not the target's own interval.
type Engine struct {
	log     *zap.Logger
	store   store.Store
	fetcher fetch.Fetcher
	notify  NotifyFunc
	cfg     Config

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *zap.Logger, st store.Store, f fetch.Fetcher, notify NotifyFunc, cfg Config) *Engine {
	return &Engine{
		log:     log,
		store:   st,
		fetcher: f,
		notify:  notify,
		cfg:     cfg.withDefaults(),
	}
}

// Start launches the loop. It is a no-op while the engine is already
// running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	done := make(chan struct{})
	e.done = done
	e.running.Store(true)

	go func() {
		defer close(done)
		defer e.running.Store(false)
		e.run(ctx)
	}()
	e.log.Info("watcher_started")
}

// Stop clears the run flag, cancels the loop so pacing pauses end
// immediately, and waits for the loop goroutine to exit. All suspension
// points are context-aware, so the wait is short.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		return
	}
	e.running.Store(false)
	if e.cancel != nil {
		e.cancel()
	}
	done := e.done
	e.mu.Unlock()

	if done != nil {
		<-done
	}
	e.log.Info("watcher_stopped")
}

func (e *Engine) IsRunning() bool { return e.running.Load() }

func (e *Engine) run(ctx context.Context) {
	for e.running.Load() && ctx.Err() == nil {
		targets, err := e.store.ListTargets(ctx)
		if err != nil {
			e.log.Warn("watcher_list_error", zap.Error(err))
			if !e.pause(ctx, e.cfg.Backoff) {
				return
			}
			continue
		}
		if len(targets) == 0 {
			if !e.pause(ctx, e.cfg.Backoff) {
				return
			}
			continue
		}

		for _, t := range targets {
			if !e.running.Load() || ctx.Err() != nil {
				return
			}
			e.pollTarget(ctx, t)

			if !e.pause(ctx, e.cfg.PaceDelay) {
				return
			}
			if !e.pause(ctx, e.effectiveInterval(t)) {
				return
			}
		}
	}
}

// effectiveInterval applies the interval floor. The hot-window fields
// are not consulted: cadence selection from hot_from/hot_to is an
// unfinished feature with no defined clock or timezone semantics.
func (e *Engine) effectiveInterval(t domain.Target) time.Duration {
	iv := time.Duration(t.IntervalNormalSec) * time.Second
	if iv < e.cfg.IntervalFloor {
		iv = e.cfg.IntervalFloor
	}
	return iv
}

func (e *Engine) pollTarget(ctx context.Context, t domain.Target) {
	now := time.Now().Unix()

	var status domain.Status
	var errMsg string
	var html string

	body, err := e.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		status = domain.StatusError
		errMsg = err.Error()
	} else {
		status = detect.Status(body)
		html = body
	}

	// Double-confirm an OPEN before alerting: a single stale or
	// transient fetch must not declare the registration open. The
	// second classification wins, and slot extraction always uses the
	// freshest body.
	if status == domain.StatusOpen {
		if !e.pause(ctx, e.cfg.DebounceDelay) {
			return
		}
		if body2, err2 := e.fetcher.Fetch(ctx, t.URL); err2 == nil {
			if s2 := detect.Status(body2); s2 != domain.StatusOpen {
				status = s2
			}
			html = body2
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := e.store.UpdateStatus(ctx, t.ID, status, now, errMsg); err != nil {
		e.log.Warn("watcher_update_error",
			zap.Int64("target_id", t.ID),
			zap.Error(err),
		)
	}

	if html != "" {
		if slots, ok := detect.Slots(html); ok {
			last := -1
			if t.LastSlots != nil {
				last = *t.LastSlots
			}
			if last == 0 && slots > 0 {
				e.emit(t, domain.AlertSlotsFreed)
			}
			if err := e.store.SetLastSlots(ctx, t.ID, slots); err != nil {
				e.log.Warn("watcher_slots_error",
					zap.Int64("target_id", t.ID),
					zap.Error(err),
				)
			}
		}
	}

	if t.LastStatus != domain.StatusOpen && status == domain.StatusOpen {
		e.emit(t, domain.AlertOpened)
	}

	e.log.Debug("watcher_polled",
		zap.Int64("target_id", t.ID),
		zap.String("url", t.URL),
		zap.String("status", string(status)),
		zap.String("error", errMsg),
	)
}

func (e *Engine) emit(t domain.Target, kind domain.AlertKind) {
	e.log.Info("watcher_alert",
		zap.Int64("target_id", t.ID),
		zap.String("label", t.Label),
		zap.String("kind", string(kind)),
	)
	if e.notify != nil {
		e.notify(domain.Alert{TargetID: t.ID, Label: t.Label, URL: t.URL, Kind: kind})
	}
}

// pause sleeps for d unless the loop context ends first. It reports
// whether the loop should keep going.
func (e *Engine) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
