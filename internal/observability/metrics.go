package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poetry-royal/mefil/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	authLoginCounter       metric.Int64Counter
	tokenValidationCounter metric.Int64Counter
	questActionCounter     metric.Int64Counter
	presenceCounter        metric.Int64Counter
	repositoryCounter      metric.Int64Counter
	saveConflictCounter    metric.Int64Counter
	notifyDeliveryCounter  metric.Int64Counter
	rateLimitCounter       metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("mefil")
	loginCounter, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	tokenCounter, err := meter.Int64Counter("session.token.validations")
	if err != nil {
		return nil, err
	}
	questCounter, err := meter.Int64Counter("quest.actions")
	if err != nil {
		return nil, err
	}
	presenceCounter, err := meter.Int64Counter("presence.transitions")
	if err != nil {
		return nil, err
	}
	repoCounter, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	conflictCounter, err := meter.Int64Counter("document.save.conflicts")
	if err != nil {
		return nil, err
	}
	notifyCounter, err := meter.Int64Counter("notify.deliveries")
	if err != nil {
		return nil, err
	}
	rateLimitCounter, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		authLoginCounter:       loginCounter,
		tokenValidationCounter: tokenCounter,
		questActionCounter:     questCounter,
		presenceCounter:        presenceCounter,
		repositoryCounter:      repoCounter,
		saveConflictCounter:    conflictCounter,
		notifyDeliveryCounter:  notifyCounter,
		rateLimitCounter:       rateLimitCounter,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func RecordAuthLogin(role, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("status", status),
		),
	)
}

func RecordTokenValidation(ctx context.Context, status, source string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.tokenValidationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("source", source),
		),
	)
}

func RecordQuestAction(ctx context.Context, action, actor, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.questActionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("actor", actor),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordPresenceTransition(ctx context.Context, role, transition string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.presenceCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("transition", transition),
		),
	)
}

func RecordRepositoryOperation(ctx context.Context, store, operation, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.repositoryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("store", store),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func RecordDocumentSaveConflict(ctx context.Context, scope string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.saveConflictCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordNotifyDelivery(ctx context.Context, target, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.notifyDeliveryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("status", status),
		),
	)
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("decision", decision),
		),
	)
}
