package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
	"github.com/attestra/credential-platform/internal/infra/config"
	"github.com/attestra/credential-platform/internal/transport/http/handlers"
	"github.com/attestra/credential-platform/internal/transport/http/middleware"
	"github.com/attestra/credential-platform/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Authorization *usecase.AuthorizationService
	SubjectAdmin  *usecase.SubjectAdminService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Sessions    port.SessionVerifier
	Directory   port.DirectoryChecker
	Cache       CacheChecker
	HTTPMetrics *middleware.HTTPMetrics
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware. Every
// application route declares exactly one access policy; the role-gate
// middleware is installed only where the policy needs a role lookup.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.HTTP.AllowedOrigins))

	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Directory != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Directory.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionGate := middleware.RequireSession(deps.Sessions)
	gate := func(policy domain.AccessPolicy) gin.HandlerFunc {
		return middleware.RequireAccess(deps.Services.Authorization, policy, deps.Logger)
	}

	var datastoreGate gin.HandlerFunc
	if deps.Directory != nil {
		datastoreGate = middleware.RequireDatastore(deps.Directory, deps.Config.Postgres.PingTimeout, deps.Logger)
	}

	api := r.Group("/api/v1")
	if datastoreGate != nil {
		api.Use(datastoreGate)
	}
	{
		meHandler := handlers.NewMeHandler()
		api.GET("/me", sessionGate, meHandler.Me)

		// Registering an organization is the one pre-verification step an
		// issuer may take, so the verification gate is waived here.
		orgHandler := handlers.NewOrganizationHandler(deps.Logger)
		api.POST("/organizations", sessionGate, gate(domain.RequireRoles(domain.RoleIssuer)), orgHandler.Create)

		credHandler := handlers.NewCredentialHandler(deps.Logger)
		api.POST("/credentials", sessionGate, gate(domain.RequireVerifiedRoles(domain.RoleIssuer)), credHandler.Issue)

		adminHandler := handlers.NewAdminSubjectHandler(deps.Services.Authorization, deps.Services.SubjectAdmin, deps.Logger)

		// The setup endpoints carry no role gate: on a fresh deployment there
		// is no admin who could pass one.
		api.GET("/admin/setup", adminHandler.SetupStatus)
		api.POST("/admin/setup", sessionGate, adminHandler.Bootstrap)

		adminGroup := api.Group("/admin/subjects")
		adminGroup.Use(sessionGate, gate(domain.RequireVerifiedRoles(domain.RoleAdmin)))
		adminGroup.GET("/:subjectId", adminHandler.GetSubject)
		adminGroup.PUT("/:subjectId/verification", adminHandler.UpdateVerification)
		adminGroup.PUT("/:subjectId/role", adminHandler.UpdateRole)
	}

	return r
}
