package port

import (
	"context"
	"time"

	"github.com/attestra/credential-platform/internal/core/domain"
)

// SubjectSnapshotCache is the shared second-level projection of subject info,
// consulted by the directory compute path before the primary store and kept
// warm after successful reads. Implementations return repository.ErrNotFound
// on a snapshot miss.
type SubjectSnapshotCache interface {
	GetSnapshot(ctx context.Context, subjectID string) (*domain.SubjectInfo, error)
	SetSnapshot(ctx context.Context, info domain.SubjectInfo, ttl time.Duration) error
	DeleteSnapshot(ctx context.Context, subjectID string) error
}
