package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/repository"
)

const defaultSnapshotPrefix = "credential:subject_info"

// SubjectSnapshotCache keeps a cross-replica projection of subject
// authorization facts so a cold in-process cache can warm up without hitting
// the primary store. It is an accelerator, not a source of truth: every
// mutation deletes the snapshot and the next directory read rebuilds it.
type SubjectSnapshotCache struct {
	client *red.Client
	prefix string
}

// NewSubjectSnapshotCache constructs the snapshot cache helper.
func NewSubjectSnapshotCache(client *red.Client, keyPrefix string) *SubjectSnapshotCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSnapshotPrefix
	}

	return &SubjectSnapshotCache{client: client, prefix: prefix}
}

// GetSnapshot fetches the cached subject info, returning
// repository.ErrNotFound on a miss.
func (c *SubjectSnapshotCache) GetSnapshot(ctx context.Context, subjectID string) (*domain.SubjectInfo, error) {
	key := c.key(subjectID)
	if key == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get subject snapshot: %w", err)
	}

	parts := strings.SplitN(result, "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("parse cached subject snapshot: malformed payload")
	}

	verified, parseErr := strconv.ParseBool(parts[1])
	if parseErr != nil {
		return nil, fmt.Errorf("parse cached subject verified flag: %w", parseErr)
	}

	role := domain.Role(parts[0])
	if !role.Valid() {
		return nil, fmt.Errorf("parse cached subject role: unknown role %q", parts[0])
	}

	return &domain.SubjectInfo{
		SubjectID: subjectID,
		Role:      role,
		Verified:  verified,
		OrgID:     parts[2],
	}, nil
}

// SetSnapshot stores the subject info with TTL.
func (c *SubjectSnapshotCache) SetSnapshot(ctx context.Context, info domain.SubjectInfo, ttl time.Duration) error {
	key := c.key(info.SubjectID)
	if key == "" {
		return fmt.Errorf("subject id is required")
	}
	if !info.Role.Valid() {
		return fmt.Errorf("role %q is not a known role", info.Role)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	payload := string(info.Role) + "|" + strconv.FormatBool(info.Verified) + "|" + info.OrgID

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set subject snapshot: %w", err)
	}

	return nil
}

// DeleteSnapshot removes the cached subject entry.
func (c *SubjectSnapshotCache) DeleteSnapshot(ctx context.Context, subjectID string) error {
	key := c.key(subjectID)
	if key == "" {
		return fmt.Errorf("subject id is required")
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete subject snapshot: %w", err)
	}

	return nil
}

func (c *SubjectSnapshotCache) key(subjectID string) string {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, subjectID)
}
