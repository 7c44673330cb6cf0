package otelinit

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
)

// Metrics holds the run's counters: documents ingested, candidate pairs
// generated, pairs emitted after verification, and rate-limiter drops.
type Metrics struct {
	DocumentsIngested metric.Int64Counter
	CandidatePairs    metric.Int64Counter
	PairsEmitted      metric.Int64Counter
	RateLimiterDrops  metric.Int64Counter
}

// InitMetrics sets up a global OTLP metrics exporter (push) and returns a
// shutdown function plus the run's instrument set.
func InitMetrics(ctx context.Context, command string) (shutdown func(context.Context) error, m Metrics) {
	res, _ := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(command),
		attribute.String("command", command),
	))
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exp, err := otlpmetricgrpc.New(ctxInit,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithInsecure()),
	)
	if err != nil {
		slog.Warn("otel metrics exporter init failed", "error", err)
		return func(context.Context) error { return nil }, createInstruments()
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	slog.Info("otel metrics initialized", "endpoint", endpoint)
	return mp.Shutdown, createInstruments()
}

func createInstruments() Metrics {
	meter := otel.Meter("find-simdoc")
	docs, _ := meter.Int64Counter("find_simdoc_documents_ingested_total")
	cand, _ := meter.Int64Counter("find_simdoc_candidate_pairs_total")
	emitted, _ := meter.Int64Counter("find_simdoc_pairs_emitted_total")
	drops, _ := meter.Int64Counter("find_simdoc_ratelimiter_drops_total")
	return Metrics{
		DocumentsIngested: docs,
		CandidatePairs:    cand,
		PairsEmitted:      emitted,
		RateLimiterDrops:  drops,
	}
}
