package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stubChecker struct {
	err   error
	pings int
}

func (s *stubChecker) Ping(context.Context) error {
	s.pings++
	return s.err
}

func newDatastoreRouter(checker *stubChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/resource", RequireDatastore(checker, time.Second, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireDatastorePasses(t *testing.T) {
	checker := &stubChecker{}
	router := newDatastoreRouter(checker)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if checker.pings != 1 {
		t.Fatalf("expected one ping, got %d", checker.pings)
	}
}

func TestRequireDatastoreUnavailable(t *testing.T) {
	checker := &stubChecker{err: errors.New("connection refused")}
	router := newDatastoreRouter(checker)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
