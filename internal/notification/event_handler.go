package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/claim-workflow/internal/core/events"
)

// EventHandler bridges claim workflow events into the digest queue. It
// never sends anything itself; every event collapses into a pending
// queue entry for the affected user.
type EventHandler struct {
	queue  *Queue
	logger *slog.Logger
}

func NewEventHandler(queue *Queue, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		queue:  queue,
		logger: logger,
	}
}

func (h *EventHandler) HandleClaimStateChanged(_ context.Context, event events.Event) error {
	stateEvent, ok := event.(*events.ClaimStateChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for state change handler", "event_type", event.EventType())
		return fmt.Errorf("expected ClaimStateChangedEvent, got %T", event)
	}

	h.logger.Info("queueing digest for claim state change",
		"claim_uid", stateEvent.ClaimUID,
		"state", stateEvent.State,
		"notify_uid", stateEvent.NotifyUID,
		"event_id", stateEvent.EventID())

	return h.queue.Enqueue(stateEvent.NotifyUID)
}

func (h *EventHandler) HandleClaimRejected(_ context.Context, event events.Event) error {
	rejectedEvent, ok := event.(*events.ClaimRejectedEvent)
	if !ok {
		h.logger.Error("invalid event type for rejection handler", "event_type", event.EventType())
		return fmt.Errorf("expected ClaimRejectedEvent, got %T", event)
	}

	h.logger.Info("queueing digest for claim rejection",
		"claim_uid", rejectedEvent.ClaimUID,
		"submitter_uid", rejectedEvent.SubmitterUID,
		"event_id", rejectedEvent.EventID())

	return h.queue.Enqueue(rejectedEvent.SubmitterUID)
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeClaimStateChanged, h.HandleClaimStateChanged)
	eventBus.Subscribe(events.EventTypeClaimRejected, h.HandleClaimRejected)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeClaimStateChanged, events.EventTypeClaimRejected})
}
