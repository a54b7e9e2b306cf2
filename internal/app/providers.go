package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/poetry-royal/mefil/internal/config"
	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/health"
	"github.com/poetry-royal/mefil/internal/http/handler"
	"github.com/poetry-royal/mefil/internal/http/middleware"
	"github.com/poetry-royal/mefil/internal/http/router"
	"github.com/poetry-royal/mefil/internal/notify"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/repository"
	"github.com/poetry-royal/mefil/internal/security"
	"github.com/poetry-royal/mefil/internal/service"
)

const readinessProbeTimeout = 2 * time.Second

// loggingSetup bundles the two results of observability.InitLogging so the
// injector can split them with wire.FieldsOf.
type loggingSetup struct {
	Logger   *slog.Logger
	Provider *sdklog.LoggerProvider
}

func provideLogging(ctx context.Context, cfg *config.Config) (*loggingSetup, error) {
	logger, lp, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &loggingSetup{Logger: logger, Provider: lp}, nil
}

func provideRedisClient(cfg *config.Config) (redis.UniversalClient, func()) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func provideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := repository.OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideDocumentDefaults(cfg *config.Config) domain.DocumentDefaults {
	return domain.DocumentDefaults{
		BossName:        cfg.BossName,
		BossMaxHP:       cfg.BossMaxHP,
		TeamMaxHP:       cfg.TeamMaxHP,
		DurationSeconds: cfg.PomodoroSeconds,
	}
}

func provideDocumentRepository(cfg *config.Config, client redis.UniversalClient, defaults domain.DocumentDefaults) repository.DocumentRepository {
	return repository.NewDocumentRepository(client, cfg.RedisPrefix, defaults)
}

func provideNotifier(cfg *config.Config, client redis.UniversalClient, logger *slog.Logger) notify.Notifier {
	if !cfg.NotifyEnabled {
		return notify.NopNotifier{}
	}
	return notify.NewRedisNotifier(client, cfg.RedisPrefix, logger)
}

func provideTokenAuthority(cfg *config.Config) *security.TokenAuthority {
	return security.NewTokenAuthority(cfg.TokenIssuer, cfg.SessionSecret)
}

func provideAuthService(tokens *security.TokenAuthority, cfg *config.Config) *service.AuthService {
	return service.NewAuthService(tokens, cfg, cfg.SessionTTL)
}

func provideMefilService(
	docs repository.DocumentRepository,
	events repository.EventRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg *config.Config,
) *service.MefilService {
	return service.NewMefilService(docs, events, notifier, logger, cfg.AttackDamage, cfg.DistractDamage)
}

func provideAuthHandler(auth *service.AuthService, tokens *security.TokenAuthority, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, tokens, cfg.CookieSecure)
}

func provideReadiness(client redis.UniversalClient, db *gorm.DB) *health.ProbeRunner {
	return health.NewProbeRunner(readinessProbeTimeout,
		health.NewRedisChecker(client),
		health.NewDatabaseChecker(db),
	)
}

func provideServer(
	cfg *config.Config,
	client redis.UniversalClient,
	tokens *security.TokenAuthority,
	authHandler *handler.AuthHandler,
	mefilHandler *handler.MefilHandler,
	chatHandler *handler.ChatHandler,
	readiness *health.ProbeRunner,
) *http.Server {
	backend := middleware.NewRedisWindowLimiter(client, cfg.RedisPrefix)
	apiLimiter := middleware.NewRateLimiterWithBackend(backend, cfg.APIRateLimitRPM, time.Minute, "api", middleware.RoleOrIPKeyFunc(tokens))
	authLimiter := middleware.NewRateLimiterWithBackend(backend, cfg.AuthRateLimitRPM, time.Minute, "auth", nil)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:       authHandler,
		MefilHandler:      mefilHandler,
		ChatHandler:       chatHandler,
		TokenAuthority:    tokens,
		CORSOrigins:       cfg.CORSOrigins,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
		AuthRateLimitRPM:  cfg.AuthRateLimitRPM,
		GlobalRateLimiter: apiLimiter.Middleware(),
		AuthRateLimiter:   authLimiter.Middleware(),
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELEnabled,
	})

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
