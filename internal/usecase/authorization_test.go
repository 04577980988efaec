package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/cache"
	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/repository"
)

type stubDirectory struct {
	infos      map[string]domain.SubjectInfo
	adminCount int64
	findCalls  int
	countCalls int
	findErr    error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{infos: make(map[string]domain.SubjectInfo)}
}

func (s *stubDirectory) FindSubjectInfo(_ context.Context, subjectID string) (*domain.SubjectInfo, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	info, ok := s.infos[subjectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := info
	return &copy, nil
}

func (s *stubDirectory) CountSubjectsWithRole(_ context.Context, role domain.Role) (int64, error) {
	s.countCalls++
	if role == domain.RoleAdmin {
		return s.adminCount, nil
	}
	return 0, nil
}

type stubSnapshots struct {
	values  map[string]domain.SubjectInfo
	getErr  error
	sets    int
	deletes int
}

func newStubSnapshots() *stubSnapshots {
	return &stubSnapshots{values: make(map[string]domain.SubjectInfo)}
}

func (s *stubSnapshots) GetSnapshot(_ context.Context, subjectID string) (*domain.SubjectInfo, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	info, ok := s.values[subjectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := info
	return &copy, nil
}

func (s *stubSnapshots) SetSnapshot(_ context.Context, info domain.SubjectInfo, _ time.Duration) error {
	s.sets++
	s.values[info.SubjectID] = info
	return nil
}

func (s *stubSnapshots) DeleteSnapshot(_ context.Context, subjectID string) error {
	s.deletes++
	delete(s.values, subjectID)
	return nil
}

func newTestAuthorization(directory *stubDirectory, snapshots *stubSnapshots) *AuthorizationService {
	store := cache.NewStore(cache.StoreOptions{Logger: zap.NewNop()})
	if snapshots == nil {
		return NewAuthorizationService(store, directory, nil, cache.DefaultTiers(), 5*time.Minute, zap.NewNop())
	}
	return NewAuthorizationService(store, directory, snapshots, cache.DefaultTiers(), 5*time.Minute, zap.NewNop())
}

func TestSubjectInfoReadThroughWarmsSnapshot(t *testing.T) {
	directory := newStubDirectory()
	directory.infos["subject-1"] = domain.SubjectInfo{SubjectID: "subject-1", Role: domain.RoleIssuer, Verified: true, OrgID: "org-1"}
	snapshots := newStubSnapshots()

	service := newTestAuthorization(directory, snapshots)

	info, err := service.SubjectInfo(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("SubjectInfo returned error: %v", err)
	}
	if info.Role != domain.RoleIssuer || !info.Verified {
		t.Fatalf("unexpected info: %+v", info)
	}
	if directory.findCalls != 1 {
		t.Fatalf("expected one directory lookup, got %d", directory.findCalls)
	}
	if snapshots.sets != 1 {
		t.Fatalf("expected snapshot warm, got %d sets", snapshots.sets)
	}

	if _, err := service.SubjectInfo(context.Background(), "subject-1"); err != nil {
		t.Fatalf("second SubjectInfo returned error: %v", err)
	}
	if directory.findCalls != 1 {
		t.Fatalf("expected cached second read, directory lookups: %d", directory.findCalls)
	}
}

func TestSubjectInfoPrefersSnapshot(t *testing.T) {
	directory := newStubDirectory()
	directory.findErr = fmt.Errorf("directory unreachable")
	snapshots := newStubSnapshots()
	snapshots.values["subject-2"] = domain.SubjectInfo{SubjectID: "subject-2", Role: domain.RoleRecipient, Verified: true}

	service := newTestAuthorization(directory, snapshots)

	info, err := service.SubjectInfo(context.Background(), "subject-2")
	if err != nil {
		t.Fatalf("SubjectInfo returned error: %v", err)
	}
	if info.Role != domain.RoleRecipient {
		t.Fatalf("unexpected info: %+v", info)
	}
	if directory.findCalls != 0 {
		t.Fatalf("expected no directory lookup, got %d", directory.findCalls)
	}
}

func TestSubjectInfoUnknownSubjectNotCached(t *testing.T) {
	directory := newStubDirectory()
	service := newTestAuthorization(directory, nil)

	for i := 0; i < 2; i++ {
		_, err := service.SubjectInfo(context.Background(), "ghost")
		if !errors.Is(err, domain.ErrSubjectNotFound) {
			t.Fatalf("expected ErrSubjectNotFound, got %v", err)
		}
	}
	if directory.findCalls != 2 {
		t.Fatalf("expected not-found to stay uncached, directory lookups: %d", directory.findCalls)
	}
}

func TestAuthorizePublicSkipsSessionAndLookup(t *testing.T) {
	directory := newStubDirectory()
	service := newTestAuthorization(directory, nil)

	decision, err := service.Authorize(context.Background(), "", domain.Public())
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected public route to allow, got %+v", decision)
	}
	if directory.findCalls != 0 {
		t.Fatalf("expected no lookup for public route, got %d", directory.findCalls)
	}
}

func TestAuthorizeMissingSession(t *testing.T) {
	service := newTestAuthorization(newStubDirectory(), nil)

	decision, err := service.Authorize(context.Background(), "", domain.Authenticated())
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if decision.Allowed || decision.Reason != domain.DenialNoSession {
		t.Fatalf("expected no_session denial, got %+v", decision)
	}
}

func TestAuthorizeAuthenticatedSkipsRoleLookup(t *testing.T) {
	directory := newStubDirectory()
	service := newTestAuthorization(directory, nil)

	decision, err := service.Authorize(context.Background(), "subject-3", domain.Authenticated())
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow, got %+v", decision)
	}
	if decision.Subject == nil || decision.Subject.SubjectID != "subject-3" {
		t.Fatalf("expected subject id carried through, got %+v", decision.Subject)
	}
	if directory.findCalls != 0 {
		t.Fatalf("expected no role lookup for authenticated route, got %d", directory.findCalls)
	}
}

func TestAuthorizeRoleDenied(t *testing.T) {
	directory := newStubDirectory()
	directory.infos["subject-4"] = domain.SubjectInfo{SubjectID: "subject-4", Role: domain.RoleRecipient, Verified: true}
	service := newTestAuthorization(directory, nil)

	decision, err := service.Authorize(context.Background(), "subject-4", domain.RequireVerifiedRoles(domain.RoleIssuer))
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if decision.Allowed || decision.Reason != domain.DenialRoleNotPermitted {
		t.Fatalf("expected role_not_permitted, got %+v", decision)
	}
}

func TestAuthorizeUnverifiedIssuerDenied(t *testing.T) {
	directory := newStubDirectory()
	directory.infos["subject-5"] = domain.SubjectInfo{SubjectID: "subject-5", Role: domain.RoleIssuer, Verified: false}
	service := newTestAuthorization(directory, nil)

	decision, err := service.Authorize(context.Background(), "subject-5", domain.RequireVerifiedRoles(domain.RoleIssuer))
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if decision.Allowed || decision.Reason != domain.DenialNotVerified {
		t.Fatalf("expected not_verified, got %+v", decision)
	}

	waived, err := service.Authorize(context.Background(), "subject-5", domain.RequireRoles(domain.RoleIssuer))
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if !waived.Allowed {
		t.Fatalf("expected verification waiver to allow, got %+v", waived)
	}
}

func TestAuthorizeUnknownSubject(t *testing.T) {
	service := newTestAuthorization(newStubDirectory(), nil)

	decision, err := service.Authorize(context.Background(), "ghost", domain.RequireRoles(domain.RoleAdmin))
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if decision.Allowed || decision.Reason != domain.DenialSubjectNotFound {
		t.Fatalf("expected subject_not_found, got %+v", decision)
	}
}

func TestAdminExistsCached(t *testing.T) {
	directory := newStubDirectory()
	service := newTestAuthorization(directory, nil)

	exists, err := service.AdminExists(context.Background())
	if err != nil {
		t.Fatalf("AdminExists returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no admin initially")
	}

	// The directory changes underneath, but the long-tier entry still answers.
	directory.adminCount = 1
	exists, err = service.AdminExists(context.Background())
	if err != nil {
		t.Fatalf("AdminExists returned error: %v", err)
	}
	if exists {
		t.Fatal("expected cached answer to remain false without invalidation")
	}
	if directory.countCalls != 1 {
		t.Fatalf("expected one count query, got %d", directory.countCalls)
	}
}
