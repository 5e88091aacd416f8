package notify

import (
	"context"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
)

// Notifier delivers an alert. Delivery is fire-and-forget from the
// watcher's point of view: errors are logged by the caller, never
// retried.
type Notifier interface {
	Send(ctx context.Context, a domain.Alert) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, a domain.Alert) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
