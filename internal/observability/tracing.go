// Package observability wires up distributed tracing for the orchestrator's
// provider calls and tool dispatch, and for the HTTP surface in front of
// them.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer scoped to one service resource.
type Tracer struct {
	tracer trace.Tracer
}

// TraceConfig configures the tracer's resource attributes and sampling.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// SamplingRate controls what fraction of turns are recorded (0.0-1.0).
	// Defaults to 1.0 if unset.
	SamplingRate float64
}

// NewTracer builds a process-wide TracerProvider and registers it as the
// otel global. Spans are recorded in-process (sampled per SamplingRate) and
// are available to anything reading the active span off a context, even
// with no exporter configured; an exporter can be attached later without
// changing any call site below.
func NewTracer(cfg TraceConfig) *Tracer {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentcore"
	}
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{tracer: provider.Tracer(cfg.ServiceName)}
}

// Start creates a span of the given kind and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks the span as failed. A nil err
// is a no-op, so callers can pass their named return unconditionally.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceLLMRequest starts a client span for one provider completion round.
func (t *Tracer) TraceLLMRequest(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("llm.%s", provider), trace.SpanKindClient,
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
}

// TraceToolExecution starts an internal span for one tool dispatch.
func (t *Tracer) TraceToolExecution(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("tool.%s", toolName), trace.SpanKindInternal,
		attribute.String("tool.name", toolName),
	)
}

// TraceHTTPRequest starts a server span for one inbound HTTP request.
func (t *Tracer) TraceHTTPRequest(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("http.%s %s", method, path), trace.SpanKindServer,
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
}
