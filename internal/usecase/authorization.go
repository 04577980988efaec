package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/cache"
	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
	"github.com/attestra/credential-platform/internal/repository"
)

// AuthorizationService resolves subject authorization facts through the
// in-process entry store and evaluates route access policies against them.
type AuthorizationService struct {
	store       *cache.Store
	directory   port.SubjectDirectory
	snapshots   port.SubjectSnapshotCache
	tiers       cache.Tiers
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewAuthorizationService constructs an AuthorizationService. snapshots may be
// nil; the compute path then reads the directory directly.
func NewAuthorizationService(store *cache.Store, directory port.SubjectDirectory, snapshots port.SubjectSnapshotCache, tiers cache.Tiers, snapshotTTL time.Duration, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{
		store:       store,
		directory:   directory,
		snapshots:   snapshots,
		tiers:       tiers,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// SubjectInfo resolves the authorization facts for a subject through the
// medium staleness tier. Unknown subjects surface as
// domain.ErrSubjectNotFound and are never cached.
func (s *AuthorizationService) SubjectInfo(ctx context.Context, subjectID string) (*domain.SubjectInfo, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	value, err := s.store.GetOrCompute(ctx, cache.SubjectInfoKey(subjectID), cache.SubjectTags(subjectID), s.tiers.Medium, s.computeSubjectInfo(subjectID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("resolve subject info: %w", err)
	}

	info, ok := value.(*domain.SubjectInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value of type %T for subject %s", value, subjectID)
	}
	return info, nil
}

// computeSubjectInfo builds the read-through function for one subject: shared
// snapshot first, then the directory, warming the snapshot on a directory hit.
func (s *AuthorizationService) computeSubjectInfo(subjectID string) cache.ComputeFunc {
	return func(ctx context.Context) (any, error) {
		if s.snapshots != nil {
			info, err := s.snapshots.GetSnapshot(ctx, subjectID)
			if err == nil {
				return info, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("subject snapshot read failed, falling through to directory",
					zap.String("subject_id", subjectID),
					zap.Error(err),
				)
			}
		}

		info, err := s.directory.FindSubjectInfo(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		if s.snapshots != nil {
			if err := s.snapshots.SetSnapshot(ctx, *info, s.snapshotTTL); err != nil {
				s.logger.Warn("subject snapshot warm failed",
					zap.String("subject_id", subjectID),
					zap.Error(err),
				)
			}
		}

		return info, nil
	}
}

// Authorize evaluates an access policy for the subject named by the session.
// An empty subjectID means no session was resolved. Denials are decisions,
// not errors; the error return is reserved for infrastructure failures.
func (s *AuthorizationService) Authorize(ctx context.Context, subjectID string, policy domain.AccessPolicy) (domain.AccessDecision, error) {
	if policy.Kind == domain.PolicyPublic {
		return domain.AccessDecision{Allowed: true}, nil
	}

	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.AccessDecision{Allowed: false, Reason: domain.DenialNoSession}, nil
	}

	if !policy.NeedsRoleLookup() {
		return domain.AccessDecision{Allowed: true, Subject: &domain.SubjectInfo{SubjectID: subjectID}}, nil
	}

	info, err := s.SubjectInfo(ctx, subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			return domain.AccessDecision{Allowed: false, Reason: domain.DenialSubjectNotFound}, nil
		}
		return domain.AccessDecision{}, err
	}

	return policy.Evaluate(info), nil
}

// AdminExists reports whether the platform has at least one admin. The answer
// is cached on the long tier; bootstrap flows invalidate it synchronously so
// the very next read reflects the promotion.
func (s *AuthorizationService) AdminExists(ctx context.Context) (bool, error) {
	value, err := s.store.GetOrCompute(ctx, cache.AdminExistsKey, []string{cache.TagAdminExists}, s.tiers.Long, func(ctx context.Context) (any, error) {
		count, err := s.directory.CountSubjectsWithRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}
		return count > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("resolve admin existence: %w", err)
	}

	exists, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected cache value of type %T for admin existence", value)
	}
	return exists, nil
}
