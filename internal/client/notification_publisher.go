package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Notification event types published on work item lifecycle changes.
const (
	EventWorkItemSubmitted = "work_item_submitted"
	EventApprovalRequired  = "approval_required"
	EventWorkItemApproved  = "work_item_approved"
	EventWorkItemRejected  = "work_item_rejected"
	EventWorkItemCancelled = "work_item_cancelled"
	EventInfoRequested     = "info_requested"
)

// NotificationPublisher publishes approval workflow events to NATS for
// consumption by the platform notification service.
//
// Subject convention: notifications.ops.<event_type>
//
// All publish operations are non-fatal: errors are logged but never
// propagated to the caller, so notification failures never interrupt
// approval operations.
type NotificationPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string         `json:"event_type"`
	ProjectID    string         `json:"project_id"`
	ActorID      string         `json:"actor_id"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Severity     string         `json:"severity,omitempty"`
	Category     string         `json:"category,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection. A nil connection yields a publisher that drops all events.
func NewNotificationPublisher(nc *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nc: nc, log: log}
}

// PublishWorkItemEvent publishes a work item approval event to NATS.
// Subject: notifications.ops.<eventType>
func (p *NotificationPublisher) PublishWorkItemEvent(ctx context.Context, eventType, workItemID, projectID, actorID string, payload map[string]any) {
	if p.nc == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		ProjectID:    projectID,
		ActorID:      actorID,
		ResourceType: "work_item",
		ResourceID:   workItemID,
		Severity:     "info",
		Category:     "ops_approval",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.ops.%s", eventType)
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("work_item_id", workItemID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("work_item_id", workItemID).
		Msg("notification: event published")
}
