package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/cache"
	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/repository"
	"github.com/attestra/credential-platform/internal/usecase"
)

type stubDirectory struct {
	infos     map[string]domain.SubjectInfo
	findCalls int
	findErr   error
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

func (s *stubDirectory) CountSubjectsWithRole(_ context.Context, _ domain.Role) (int64, error) {
	return 0, nil
}

type accessFixture struct {
	directory *stubDirectory
	store     *cache.Store
	router    *gin.Engine
	handled   bool
	seen      *domain.SubjectInfo
}

func newAccessFixture(policy domain.AccessPolicy) *accessFixture {
	gin.SetMode(gin.TestMode)

	fx := &accessFixture{
		directory: &stubDirectory{infos: make(map[string]domain.SubjectInfo)},
		store:     cache.NewStore(cache.StoreOptions{Logger: zap.NewNop()}),
	}

	authz := usecase.NewAuthorizationService(fx.store, fx.directory, nil, cache.DefaultTiers(), 5*time.Minute, zap.NewNop())
	verifier := &stubVerifier{subjects: map[string]string{
		"token-issuer":    "issuer-1",
		"token-recipient": "recipient-1",
		"token-ghost":     "ghost",
	}}

	fx.router = gin.New()
	fx.router.Use(EnrichContext())

	chain := []gin.HandlerFunc{RequireSession(verifier)}
	if policy.NeedsRoleLookup() {
		chain = append(chain, RequireAccess(authz, policy, zap.NewNop()))
	}
	chain = append(chain, func(c *gin.Context) {
		fx.handled = true
		fx.seen = GetSubjectInfo(c)
		c.Status(http.StatusOK)
	})

	fx.router.GET("/resource", chain...)
	return fx
}

func (fx *accessFixture) request(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	return rr
}

func decodeDenial(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode denial body: %v", err)
	}
	return body
}

func TestRequireAccessRoleDeniedShortCircuits(t *testing.T) {
	fx := newAccessFixture(domain.RequireVerifiedRoles(domain.RoleIssuer))
	fx.directory.infos["recipient-1"] = domain.SubjectInfo{SubjectID: "recipient-1", Role: domain.RoleRecipient, Verified: true}

	rr := fx.request(t, "token-recipient")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if body := decodeDenial(t, rr); body.Reason != string(domain.DenialRoleNotPermitted) {
		t.Fatalf("expected role_not_permitted, got %q", body.Reason)
	}
	if fx.handled {
		t.Fatal("expected handler to be skipped on denial")
	}
}

func TestRequireAccessUnverifiedDenied(t *testing.T) {
	fx := newAccessFixture(domain.RequireVerifiedRoles(domain.RoleIssuer))
	fx.directory.infos["issuer-1"] = domain.SubjectInfo{SubjectID: "issuer-1", Role: domain.RoleIssuer, Verified: false}

	rr := fx.request(t, "token-issuer")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if body := decodeDenial(t, rr); body.Reason != string(domain.DenialNotVerified) {
		t.Fatalf("expected not_verified, got %q", body.Reason)
	}
}

func TestRequireAccessVerificationWaived(t *testing.T) {
	fx := newAccessFixture(domain.RequireRoles(domain.RoleIssuer))
	fx.directory.infos["issuer-1"] = domain.SubjectInfo{SubjectID: "issuer-1", Role: domain.RoleIssuer, Verified: false}

	rr := fx.request(t, "token-issuer")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected waived verification to allow, got %d", rr.Code)
	}
	if !fx.handled {
		t.Fatal("expected handler to run")
	}
}

func TestRequireAccessUnknownSubject(t *testing.T) {
	fx := newAccessFixture(domain.RequireRoles(domain.RoleAdmin))

	rr := fx.request(t, "token-ghost")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if body := decodeDenial(t, rr); body.Reason != string(domain.DenialSubjectNotFound) {
		t.Fatalf("expected subject_not_found, got %q", body.Reason)
	}
}

func TestRequireAccessEnrichesHandlerContext(t *testing.T) {
	fx := newAccessFixture(domain.RequireVerifiedRoles(domain.RoleIssuer))
	fx.directory.infos["issuer-1"] = domain.SubjectInfo{SubjectID: "issuer-1", Role: domain.RoleIssuer, Verified: true, OrgID: "org-1"}

	rr := fx.request(t, "token-issuer")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fx.seen == nil || fx.seen.OrgID != "org-1" {
		t.Fatalf("expected enriched subject info in handler, got %+v", fx.seen)
	}
	if fx.directory.findCalls != 1 {
		t.Fatalf("expected a single directory lookup, got %d", fx.directory.findCalls)
	}
}

func TestSessionOnlyRouteCreatesNoCacheEntry(t *testing.T) {
	fx := newAccessFixture(domain.Authenticated())
	fx.directory.infos["recipient-1"] = domain.SubjectInfo{SubjectID: "recipient-1", Role: domain.RoleRecipient}

	rr := fx.request(t, "token-recipient")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fx.directory.findCalls != 0 {
		t.Fatalf("expected no directory lookup, got %d", fx.directory.findCalls)
	}
	if fx.store.Len() != 0 {
		t.Fatalf("expected no cache entries for session-only route, got %d", fx.store.Len())
	}
}

func TestRequireAccessInfrastructureFailure(t *testing.T) {
	fx := newAccessFixture(domain.RequireRoles(domain.RoleIssuer))
	fx.directory.findErr = errors.New("directory unreachable")

	rr := fx.request(t, "token-issuer")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if fx.handled {
		t.Fatal("expected handler to be skipped on infrastructure failure")
	}
	// A failed compute must not poison the cache.
	if fx.store.Len() != 0 {
		t.Fatalf("expected no cache entry after compute failure, got %d", fx.store.Len())
	}
}
