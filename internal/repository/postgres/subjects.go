package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubjectRepository implements port.SubjectDirectory and port.SubjectMutator
// backed by PostgreSQL.
type SubjectRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSubjectRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSubjectRepository(exec pgExecutor) *SubjectRepository {
	repo := &SubjectRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SubjectRepository) WithTx(tx pgx.Tx) *SubjectRepository {
	if tx == nil {
		return r
	}
	return &SubjectRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// FindSubjectInfo fetches the authorization facts for one subject. Issuer
// verification follows the organization's approval status; other roles carry
// their own verified flag.
func (r *SubjectRepository) FindSubjectInfo(ctx context.Context, subjectID string) (*domain.SubjectInfo, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	stmt, args, err := r.builder.
		Select(
			"u.id",
			"u.role",
			"u.verified",
			"COALESCE(u.org_id, '')",
			"COALESCE(o.approved, FALSE)",
		).
		From("credentials.users u").
		LeftJoin("credentials.organizations o ON o.id = u.org_id").
		Where(squirrel.Eq{"u.id": subjectID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subject sql: %w", err)
	}

	var (
		info        domain.SubjectInfo
		role        string
		orgApproved bool
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&info.SubjectID, &role, &info.Verified, &info.OrgID, &orgApproved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select subject info: %w", err)
	}

	info.Role = domain.Role(role)
	if info.Role == domain.RoleIssuer {
		info.Verified = orgApproved
	}

	return &info, nil
}

// CountSubjectsWithRole reports how many subjects hold the given role.
func (r *SubjectRepository) CountSubjectsWithRole(ctx context.Context, role domain.Role) (int64, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("credentials.users").
		Where(squirrel.Eq{"role": string(role)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count subjects sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subjects with role %q: %w", role, err)
	}

	return count, nil
}

// SetVerification records the subject's verification flag.
func (r *SubjectRepository) SetVerification(ctx context.Context, subjectID string, verified bool) error {
	stmt, args, err := r.builder.
		Update("credentials.users").
		Set("verified", verified).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": subjectID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update verification sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update subject verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	// Issuer verification is mirrored onto the organization so tenant-wide
	// reads agree with the per-subject flag.
	sync, args, err := r.builder.
		Update("credentials.organizations").
		Set("approved", verified).
		Where(squirrel.Expr("id = (SELECT org_id FROM credentials.users WHERE id = ? AND role = ?)", subjectID, string(domain.RoleIssuer))).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sync organization sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, sync, args...); err != nil {
		return fmt.Errorf("sync organization approval: %w", err)
	}

	return nil
}

// SetRole changes the subject's role.
func (r *SubjectRepository) SetRole(ctx context.Context, subjectID string, role domain.Role) error {
	stmt, args, err := r.builder.
		Update("credentials.users").
		Set("role", string(role)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": subjectID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update subject role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// PromoteToAdmin grants the admin role and marks the subject verified in one
// statement, used by the bootstrap flow.
func (r *SubjectRepository) PromoteToAdmin(ctx context.Context, subjectID string) error {
	stmt, args, err := r.builder.
		Update("credentials.users").
		Set("role", string(domain.RoleAdmin)).
		Set("verified", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": subjectID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build promote admin sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("promote subject to admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Ping verifies the backing connection is live. Repositories constructed over
// a bare executor (tests, transactions) fall back to a cheap round-trip query.
func (r *SubjectRepository) Ping(ctx context.Context) error {
	if r.pool != nil {
		if err := r.pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		return nil
	}

	var one int
	if err := r.exec.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
