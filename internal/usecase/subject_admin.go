package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/cache"
	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
	"github.com/attestra/credential-platform/internal/repository"
)

var (
	// ErrInvalidRole indicates the requested role is not a known platform role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAdminAlreadyExists indicates the bootstrap path was invoked after an admin was provisioned.
	ErrAdminAlreadyExists = errors.New("admin already exists")
	// ErrSubjectNotFound mirrors the directory's miss for mutation targets.
	ErrSubjectNotFound = errors.New("subject not found")
)

// SubjectAdminService carries the administrative mutations that change
// authorization facts. Every mutation writes through the directory, drops the
// shared snapshot, invalidates the local entry store, and emits a domain
// event. Invalidation and publishing are best-effort; the write itself is the
// source of truth.
type SubjectAdminService struct {
	directory   port.SubjectDirectory
	mutator     port.SubjectMutator
	snapshots   port.SubjectSnapshotCache
	events      port.EventPublisher
	invalidator *cache.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubjectAdminService constructs a SubjectAdminService. snapshots and
// events may be nil.
func NewSubjectAdminService(directory port.SubjectDirectory, mutator port.SubjectMutator, snapshots port.SubjectSnapshotCache, events port.EventPublisher, invalidator *cache.Dispatcher, logger *zap.Logger) *SubjectAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectAdminService{
		directory:   directory,
		mutator:     mutator,
		snapshots:   snapshots,
		events:      events,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// SetVerification flips a subject's verification flag. The change is visible
// to the very next authorization decision for that subject.
func (s *SubjectAdminService) SetVerification(ctx context.Context, subjectID string, verified bool, actor string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("subject id is required")
	}

	if err := s.mutator.SetVerification(ctx, subjectID, verified); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("set verification: %w", err)
	}

	s.dropSnapshot(ctx, subjectID)
	s.invalidator.InvalidateNow(ctx, cache.ForSubject(subjectID))

	s.publishVerificationChanged(ctx, subjectID, verified, actor)
	return nil
}

// ChangeRole reassigns a subject's role. Role changes can flip the platform's
// admin-existence answer, so that class is invalidated alongside the subject.
func (s *SubjectAdminService) ChangeRole(ctx context.Context, subjectID string, role domain.Role, actor string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("subject id is required")
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	if err := s.mutator.SetRole(ctx, subjectID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("set role: %w", err)
	}

	s.dropSnapshot(ctx, subjectID)
	s.invalidator.InvalidateNow(ctx, cache.ForSubject(subjectID))
	s.invalidator.InvalidateNow(ctx, cache.ForClass(cache.TagAdminExists))

	s.publishRoleChanged(ctx, subjectID, role, actor)
	return nil
}

// BootstrapAdmin promotes the first admin. The existence check reads the
// directory, not the cache: a stale cached answer must never allow a second
// bootstrap. The synchronous invalidation afterwards guarantees the next
// cached AdminExists read is already true.
func (s *SubjectAdminService) BootstrapAdmin(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("subject id is required")
	}

	count, err := s.directory.CountSubjectsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return ErrAdminAlreadyExists
	}

	if err := s.mutator.PromoteToAdmin(ctx, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("promote to admin: %w", err)
	}

	s.dropSnapshot(ctx, subjectID)
	s.invalidator.InvalidateNow(ctx, cache.ForSubject(subjectID))
	s.invalidator.InvalidateNow(ctx, cache.ForClass(cache.TagAdminExists))

	if s.events != nil {
		event := domain.AdminBootstrappedEvent{
			EventID:    uuid.NewString(),
			SubjectID:  subjectID,
			PromotedAt: s.now().UTC(),
		}
		if err := s.events.PublishAdminBootstrapped(ctx, event); err != nil {
			s.logger.Warn("failed to publish admin bootstrapped event", zap.String("subject_id", subjectID), zap.Error(err))
		}
	}
	return nil
}

// NoteSubjectChanged records an externally signalled change to a subject's
// authorization facts, e.g. from an identity-provider event consumer. The
// entry is marked stale rather than recomputed; the request path absorbs the
// refresh on its own schedule.
func (s *SubjectAdminService) NoteSubjectChanged(ctx context.Context, subjectID string) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return
	}
	s.dropSnapshot(ctx, subjectID)
	s.invalidator.InvalidateEventually(ctx, cache.ForSubject(subjectID))
}

func (s *SubjectAdminService) dropSnapshot(ctx context.Context, subjectID string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.DeleteSnapshot(ctx, subjectID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to delete subject snapshot", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func (s *SubjectAdminService) publishVerificationChanged(ctx context.Context, subjectID string, verified bool, actor string) {
	if s.events == nil {
		return
	}
	event := domain.VerificationChangedEvent{
		EventID:   uuid.NewString(),
		SubjectID: subjectID,
		Verified:  verified,
		ChangedAt: s.now().UTC(),
		ChangedBy: actor,
	}
	if err := s.events.PublishVerificationChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish verification changed event", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func (s *SubjectAdminService) publishRoleChanged(ctx context.Context, subjectID string, role domain.Role, actor string) {
	if s.events == nil {
		return
	}
	event := domain.RoleChangedEvent{
		EventID:   uuid.NewString(),
		SubjectID: subjectID,
		Role:      role,
		ChangedAt: s.now().UTC(),
		ChangedBy: actor,
	}
	if err := s.events.PublishRoleChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish role changed event", zap.String("subject_id", subjectID), zap.Error(err))
	}
}
