package store

import (
	"context"
	"errors"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
)

// ErrNotFound is returned when a target id does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence port consumed by the watcher, the API and
// the CLI. Swap in any adapter that honors the change-time invariant:
// UpdateStatus advances last_change_at only when the status actually
// transitions, and appends exactly one event row per call.
type Store interface {
	// ListTargets returns all targets, most recent id first.
	ListTargets(ctx context.Context) ([]domain.Target, error)
	GetTarget(ctx context.Context, id int64) (*domain.Target, error)
	// AddTarget clamps intervals (normal >= 15s, default 300; hot >= 10s,
	// default 45) before insertion and returns the new id.
	AddTarget(ctx context.Context, p domain.AddTargetPayload) (int64, error)
	// DeleteTarget removes the target's events first, then the target.
	DeleteTarget(ctx context.Context, id int64) error
	// UpdateStatus persists a poll outcome. errMsg is empty when the
	// poll had no transport error.
	UpdateStatus(ctx context.Context, id int64, status domain.Status, ts int64, errMsg string) error
	SetLastSlots(ctx context.Context, id int64, slots int) error
	ListEvents(ctx context.Context, targetID int64, limit int) ([]domain.Event, error)
}
