// Package events defines the domain event topics and relays outbox rows to
// subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

const (
	TopicNegotiationMessage  = "negotiation.message"
	TopicNegotiationAccepted = "negotiation.accepted"
	TopicNegotiationClosed   = "negotiation.closed"
	TopicContractGenerated   = "contract.generated"
	TopicContractActivated   = "contract.activated"
	TopicMilestoneCompleted  = "workflow.milestone_completed"
	TopicWorkflowCompleted   = "workflow.completed"
	TopicDistributionCreated = "distribution.created"
	TopicDistributionSettled = "distribution.settled"
	TopicDisputeRaised       = "dispute.raised"
	TopicDisputeResolved     = "dispute.resolved"
)

// New builds an outbox row for topic. The row is persisted by the repository
// in the same transaction as the aggregate change.
func New(topic string, aggregateID uuid.UUID, at time.Time, payload models.JSONB) *models.OutboxEvent {
	return &models.OutboxEvent{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  at,
	}
}

// Envelope is the wire form of a relayed event.
type Envelope struct {
	ID          uuid.UUID    `json:"id"`
	Topic       string       `json:"topic"`
	AggregateID uuid.UUID    `json:"aggregate_id"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Payload     models.JSONB `json:"payload"`
}

func Encode(e models.OutboxEvent) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		ID:          e.ID,
		Topic:       e.Topic,
		AggregateID: e.AggregateID,
		OccurredAt:  e.OccurredAt,
		Payload:     e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	return data, nil
}

// Publisher delivers encoded events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// LogPublisher writes events to the structured log. It is the publisher used
// when no broker is configured.
type LogPublisher struct {
	Logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{Logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	p.Logger.WithFields(logrus.Fields{
		"topic": topic,
		"event": string(data),
	}).Info("Domain event")
	return nil
}
