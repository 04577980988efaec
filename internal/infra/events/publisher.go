package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
	"github.com/attestra/credential-platform/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	SubjectID string           `json:"subject_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, subjectID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		SubjectID: subjectID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishVerificationChanged publishes credential.subject.verification.changed events.
func (p *EventPublisher) PublishVerificationChanged(ctx context.Context, event domain.VerificationChangedEvent) error {
	payload := struct {
		SubjectID string         `json:"subject_id"`
		Verified  bool           `json:"verified"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SubjectID: event.SubjectID,
		Verified:  event.Verified,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "credential.subject.verification.changed", event.SubjectID, event.ChangedAt, payload)
}

// PublishRoleChanged publishes credential.subject.role.changed events.
func (p *EventPublisher) PublishRoleChanged(ctx context.Context, event domain.RoleChangedEvent) error {
	payload := struct {
		SubjectID string         `json:"subject_id"`
		Role      string         `json:"role"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SubjectID: event.SubjectID,
		Role:      string(event.Role),
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "credential.subject.role.changed", event.SubjectID, event.ChangedAt, payload)
}

// PublishAdminBootstrapped publishes credential.platform.admin.bootstrapped events.
func (p *EventPublisher) PublishAdminBootstrapped(ctx context.Context, event domain.AdminBootstrappedEvent) error {
	payload := struct {
		SubjectID  string         `json:"subject_id"`
		PromotedAt time.Time      `json:"promoted_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		SubjectID:  event.SubjectID,
		PromotedAt: event.PromotedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "credential.platform.admin.bootstrapped", event.SubjectID, event.PromotedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
