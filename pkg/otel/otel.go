// Package otel bootstraps OpenTelemetry tracing for the forecasting service
// and provides span helpers for the pipeline stages.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	Environment       string
	CollectorEndpoint string
	SamplingRate      float64 // 0.0 to 1.0 (1.0 = always sample)
}

// DefaultConfig returns production defaults.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:       serviceName,
		ServiceVersion:    "0.1.0",
		Environment:       "production",
		CollectorEndpoint: "localhost:4317",
		SamplingRate:      1.0,
	}
}

// InitTracer initializes OpenTelemetry tracing with an OTLP gRPC exporter
// and installs the global tracer provider and propagators.
func InitTracer(ctx context.Context, config *Config) (*sdktrace.TracerProvider, error) {
	if config == nil {
		config = DefaultConfig("demandcast")
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(config.CollectorEndpoint),
		otlptracegrpc.WithInsecure(), // Use WithTLSCredentials in production
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SamplingRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Shutdown gracefully shuts down the tracer provider.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return tp.Shutdown(ctx)
}

// StartSpan starts a span with optional attributes.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, spanName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// RecordError records an error on a span and marks its status.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Common attribute keys for the forecasting pipeline.
const (
	AttrSKU              = attribute.Key("forecast.sku")
	AttrHorizon          = attribute.Key("forecast.horizon")
	AttrTrainingMonths   = attribute.Key("forecast.training_months")
	AttrValidationMonths = attribute.Key("forecast.validation_months")
	AttrVenue            = attribute.Key("forecast.venue")
	AttrDegraded         = attribute.Key("forecast.degraded")
	AttrWeightRule       = attribute.Key("ensemble.weight_rule")
	AttrCategory         = attribute.Key("accuracy.category")
	AttrMAPE             = attribute.Key("accuracy.mape")
	AttrCacheHit         = attribute.Key("model_cache.hit")
)

// ForecastAttributes describes one forecast request.
func ForecastAttributes(sku string, horizon, trainingMonths int, venue string, degraded bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSKU.String(sku),
		AttrHorizon.Int(horizon),
		AttrTrainingMonths.Int(trainingMonths),
		AttrVenue.String(venue),
		AttrDegraded.Bool(degraded),
	}
}

// AccuracyAttributes describes one back-test outcome.
func AccuracyAttributes(sku, category string, mape float64, trainingMonths, validationMonths int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSKU.String(sku),
		AttrCategory.String(category),
		AttrMAPE.Float64(mape),
		AttrTrainingMonths.Int(trainingMonths),
		AttrValidationMonths.Int(validationMonths),
	}
}
