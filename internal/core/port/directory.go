package port

import (
	"context"

	"github.com/attestra/credential-platform/internal/core/domain"
)

// SubjectDirectory exposes the authorization facts the cache reads through to.
// Implementations return repository.ErrNotFound when the subject is unknown.
type SubjectDirectory interface {
	FindSubjectInfo(ctx context.Context, subjectID string) (*domain.SubjectInfo, error)
	CountSubjectsWithRole(ctx context.Context, role domain.Role) (int64, error)
}

// SubjectMutator exposes the administrative writes that change authorization
// facts. Every mutation through this port must be followed by a cache
// invalidation for the affected subject.
type SubjectMutator interface {
	SetVerification(ctx context.Context, subjectID string, verified bool) error
	SetRole(ctx context.Context, subjectID string, role domain.Role) error
	PromoteToAdmin(ctx context.Context, subjectID string) error
}

// DirectoryChecker exposes readiness behaviour for the directory's backing
// connection.
type DirectoryChecker interface {
	Ping(ctx context.Context) error
}
