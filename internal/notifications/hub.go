// Package notifications fans successful order transitions out to a list of
// post-commit hooks. Hooks are fire-and-forget: each runs isolated, and no
// hook failure can roll back or delay the transition that triggered it.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
)

// Event describes one committed order transition.
type Event struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ActorRole   enums.ActorRole   `json:"actor_role"`
	ActorID     uuid.UUID         `json:"actor_id"`
	At          time.Time         `json:"at"`
}

// Hook consumes a transition event. Implementations must tolerate being
// called after the transaction has committed; returning an error only logs.
type Hook interface {
	Name() string
	HandleTransition(ctx context.Context, event Event) error
}

// Hub invokes registered hooks after a transition commits.
type Hub struct {
	hooks []Hook
	logg  *logger.Logger
}

// NewHub builds a hub over the given hooks.
func NewHub(logg *logger.Logger, hooks ...Hook) *Hub {
	return &Hub{hooks: hooks, logg: logg}
}

// Notify runs every hook for the event. A panicking or failing hook is
// logged and the remaining hooks still run.
func (h *Hub) Notify(ctx context.Context, event Event) {
	if h == nil {
		return
	}
	for _, hook := range h.hooks {
		h.runOne(ctx, hook, event)
	}
}

func (h *Hub) runOne(ctx context.Context, hook Hook, event Event) {
	ctx = h.logg.WithFields(ctx, map[string]any{
		"hook":     hook.Name(),
		"order_id": event.OrderID.String(),
	})

	defer func() {
		if rec := recover(); rec != nil {
			h.logg.Error(h.logg.WithField(ctx, "panic", rec), "notification hook panicked", nil)
		}
	}()

	if err := hook.HandleTransition(ctx, event); err != nil {
		h.logg.Error(ctx, "notification hook failed", err)
	}
}
