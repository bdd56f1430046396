package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeClaimStateChanged = "claim.state_changed"
	EventTypeClaimRejected     = "claim.rejected"
)

// ClaimStateChangedEvent is published after a claim transition commits.
// NotifyUID carries the party who must act in the new state, resolved by
// the orchestrator's dispatch table.
type ClaimStateChangedEvent struct {
	BaseEvent
	ClaimUID  string `json:"claim_uid"`
	State     string `json:"state"`
	NotifyUID string `json:"notify_uid"`
}

func NewClaimStateChangedEvent(claimUID, state, notifyUID string) *ClaimStateChangedEvent {
	return &ClaimStateChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeClaimStateChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"claim_uid":  claimUID,
				"state":      state,
				"notify_uid": notifyUID,
			},
		},
		ClaimUID:  claimUID,
		State:     state,
		NotifyUID: notifyUID,
	}
}

type ClaimRejectedEvent struct {
	BaseEvent
	ClaimUID     string `json:"claim_uid"`
	SubmitterUID string `json:"submitter_uid"`
	Comment      string `json:"comment"`
}

func NewClaimRejectedEvent(claimUID, submitterUID, comment string) *ClaimRejectedEvent {
	return &ClaimRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeClaimRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"claim_uid":     claimUID,
				"submitter_uid": submitterUID,
				"comment":       comment,
			},
		},
		ClaimUID:     claimUID,
		SubmitterUID: submitterUID,
		Comment:      comment,
	}
}
