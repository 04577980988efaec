package port

import (
	"context"

	"github.com/attestra/credential-platform/internal/core/domain"
)

// EventPublisher publishes authorization-relevant domain events to the
// message bus. Publishing is fire-and-forget from the caller's perspective;
// the mutation that produced the event never fails because the bus did.
type EventPublisher interface {
	PublishVerificationChanged(ctx context.Context, event domain.VerificationChangedEvent) error
	PublishRoleChanged(ctx context.Context, event domain.RoleChangedEvent) error
	PublishAdminBootstrapped(ctx context.Context, event domain.AdminBootstrappedEvent) error
}
