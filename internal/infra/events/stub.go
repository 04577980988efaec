package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subjectID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("subject_id", subjectID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishVerificationChanged logs credential.subject.verification.changed events.
func (p *StubPublisher) PublishVerificationChanged(_ context.Context, event domain.VerificationChangedEvent) error {
	payload := map[string]any{
		"subject_id": event.SubjectID,
		"verified":   event.Verified,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("credential.subject.verification.changed", event.SubjectID, event.ChangedAt, payload)
	return nil
}

// PublishRoleChanged logs credential.subject.role.changed events.
func (p *StubPublisher) PublishRoleChanged(_ context.Context, event domain.RoleChangedEvent) error {
	payload := map[string]any{
		"subject_id": event.SubjectID,
		"role":       string(event.Role),
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent("credential.subject.role.changed", event.SubjectID, event.ChangedAt, payload)
	return nil
}

// PublishAdminBootstrapped logs credential.platform.admin.bootstrapped events.
func (p *StubPublisher) PublishAdminBootstrapped(_ context.Context, event domain.AdminBootstrappedEvent) error {
	payload := map[string]any{
		"subject_id":  event.SubjectID,
		"promoted_at": event.PromotedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("credential.platform.admin.bootstrapped", event.SubjectID, event.PromotedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
