package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/cache"
	"github.com/attestra/credential-platform/internal/core/port"
	"github.com/attestra/credential-platform/internal/infra/config"
	"github.com/attestra/credential-platform/internal/infra/database"
	"github.com/attestra/credential-platform/internal/infra/events"
	"github.com/attestra/credential-platform/internal/infra/logger"
	redisinfra "github.com/attestra/credential-platform/internal/infra/redis"
	"github.com/attestra/credential-platform/internal/infra/security"
	postgresrepo "github.com/attestra/credential-platform/internal/repository/postgres"
	redisrepo "github.com/attestra/credential-platform/internal/repository/redis"
	"github.com/attestra/credential-platform/internal/transport/http/middleware"
	"github.com/attestra/credential-platform/internal/transport/http/routes"
	"github.com/attestra/credential-platform/internal/usecase"
)

// Application owns the wired service graph and its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *events.Producer
}

// New wires the authorization service graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tiers, err := cfg.Cache.Tiers()
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init cache tiers: %w", err)
	}

	cacheMetrics, err := cache.NewMetrics(cache.MetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init cache metrics: %w", err)
	}

	store := cache.NewStore(cache.StoreOptions{
		Logger:         log,
		ComputeTimeout: cfg.HTTP.ComputeTimeout,
		RefreshTimeout: cfg.Cache.RefreshTimeout,
		Metrics:        cacheMetrics,
	})
	dispatcher := cache.NewDispatcher(store, log)

	sessionVerifier, err := security.NewSessionVerifier(cfg.Session.SigningSecret, cfg.Session.Issuer)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init session verifier: %w", err)
	}

	subjectRepo := postgresrepo.NewSubjectRepository(pool)
	snapshotCache := redisrepo.NewSubjectSnapshotCache(redisClient.Client(), cfg.Redis.SnapshotPrefix)

	var eventPublisher port.EventPublisher
	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := events.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = events.NewStubPublisher(log)
		} else {
			producer = kafkaProducer
			eventPublisher = events.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = events.NewStubPublisher(log)
	}

	snapshotTTL := cfg.Redis.SnapshotTTL
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Minute
	}

	authzService := usecase.NewAuthorizationService(store, subjectRepo, snapshotCache, tiers, snapshotTTL, log)
	adminService := usecase.NewSubjectAdminService(subjectRepo, subjectRepo, snapshotCache, eventPublisher, dispatcher, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: routes.ServiceSet{
			Authorization: authzService,
			SubjectAdmin:  adminService,
		},
		Sessions:    sessionVerifier,
		Directory:   subjectRepo,
		Cache:       redisClient,
		HTTPMetrics: httpMetrics,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting credential platform API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
