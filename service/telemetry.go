package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/pddlkit/sdk/service"

// telemetry bundles the tracer and metric instruments for planning calls.
// Instruments come from the globally registered providers; without a
// configured SDK they are no-ops.
type telemetry struct {
	tracer trace.Tracer

	requests metric.Int64Counter
	polls    metric.Int64Counter
	plans    metric.Int64Counter
	errors   metric.Int64Counter
}

func newTelemetry() *telemetry {
	meter := otel.Meter(instrumentationName)

	t := &telemetry{
		tracer: otel.Tracer(instrumentationName),
	}

	// Instrument creation only fails on malformed names; fall through to
	// nil instruments, which record nothing.
	t.requests, _ = meter.Int64Counter("planning.requests",
		metric.WithDescription("Planning requests issued"))
	t.polls, _ = meter.Int64Counter("planning.polls",
		metric.WithDescription("Follow-up polls issued against callback URLs"))
	t.plans, _ = meter.Int64Counter("planning.plans",
		metric.WithDescription("Completed plans returned to callers"))
	t.errors, _ = meter.Int64Counter("planning.errors",
		metric.WithDescription("Planning requests that ended in a fatal error"))

	return t
}

func (t *telemetry) startPlanSpan(ctx context.Context, service, requestID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "planning.plan",
		trace.WithAttributes(
			attribute.String("planning.service", service),
			attribute.String("planning.request_id", requestID),
		))
}

func (t *telemetry) recordRequest(ctx context.Context, service string) {
	if t.requests != nil {
		t.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("planning.service", service)))
	}
}

func (t *telemetry) recordPoll(ctx context.Context, service string) {
	if t.polls != nil {
		t.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("planning.service", service)))
	}
}

func (t *telemetry) recordPlans(ctx context.Context, service string, count int) {
	if t.plans != nil && count > 0 {
		t.plans.Add(ctx, int64(count), metric.WithAttributes(attribute.String("planning.service", service)))
	}
}

func (t *telemetry) recordError(ctx context.Context, service string, err error) {
	if t.errors != nil {
		t.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("planning.service", service)))
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
