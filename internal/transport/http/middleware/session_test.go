package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/attestra/credential-platform/internal/core/domain"
)

type stubVerifier struct {
	subjects map[string]string
}

func (s *stubVerifier) SubjectFromToken(_ context.Context, token string) (string, error) {
	if id, ok := s.subjects[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newSessionRouter(verifier *stubVerifier) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)

	var seenSubject string
	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/protected", RequireSession(verifier), func(c *gin.Context) {
		seenSubject = GetSubjectID(c)
		c.Status(http.StatusOK)
	})
	return router, &seenSubject
}

func TestRequireSessionMissingHeader(t *testing.T) {
	router, _ := newSessionRouter(&stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Reason != string(domain.DenialNoSession) {
		t.Fatalf("expected no_session reason, got %q", body.Reason)
	}
	if body.TraceID == "" {
		t.Fatal("expected trace id in denial body")
	}
}

func TestRequireSessionMalformedHeader(t *testing.T) {
	router, _ := newSessionRouter(&stubVerifier{})

	for _, header := range []string{"Token abc", "Bearer", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestRequireSessionInvalidToken(t *testing.T) {
	router, _ := newSessionRouter(&stubVerifier{subjects: map[string]string{"good": "subject-1"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireSessionResolvesSubject(t *testing.T) {
	router, seenSubject := newSessionRouter(&stubVerifier{subjects: map[string]string{"good": "subject-1"}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if *seenSubject != "subject-1" {
		t.Fatalf("expected handler to see subject-1, got %q", *seenSubject)
	}
}
