package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/newsletter-api/internal/domain/delivery"
)

const instrumentationName = "jan-server/services/newsletter-api/worker"

// Instrumenter traces delivery iterations and records OpenTelemetry metrics.
// It uses the global providers, which are no-ops until observability is set up.
type Instrumenter struct {
	tracer          trace.Tracer
	workersActive   metric.Int64UpDownCounter
	iterationTime   metric.Float64Histogram
	iterationsTotal metric.Int64Counter
}

// NewInstrumenter creates the worker instruments.
func NewInstrumenter() (*Instrumenter, error) {
	meter := otel.Meter(instrumentationName)

	workersActive, err := meter.Int64UpDownCounter(
		"jan_newsletter_api_workers_active",
		metric.WithDescription("Number of workers executing a delivery"),
	)
	if err != nil {
		return nil, err
	}

	iterationTime, err := meter.Float64Histogram(
		"jan_newsletter_api_delivery_iteration_seconds",
		metric.WithDescription("Delivery iteration duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	iterationsTotal, err := meter.Int64Counter(
		"jan_newsletter_api_delivery_iterations_total",
		metric.WithDescription("Total delivery iterations"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumenter{
		tracer:          otel.Tracer(instrumentationName),
		workersActive:   workersActive,
		iterationTime:   iterationTime,
		iterationsTotal: iterationsTotal,
	}, nil
}

// InstrumentIteration wraps one TryExecuteTask call with a span and metrics.
func (i *Instrumenter) InstrumentIteration(ctx context.Context, workerID int, fn func(context.Context) (delivery.Outcome, error)) (delivery.Outcome, error) {
	i.workersActive.Add(ctx, 1)
	defer i.workersActive.Add(ctx, -1)

	ctx, span := i.tracer.Start(ctx, "worker.deliver_issue",
		trace.WithAttributes(attribute.Int("worker.id", workerID)),
	)
	defer span.End()

	start := time.Now()
	outcome, err := fn(ctx)
	duration := time.Since(start).Seconds()

	status := outcome.String()
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("delivery.outcome", status))

	attrs := metric.WithAttributes(attribute.String("outcome", status))
	i.iterationTime.Record(ctx, duration, attrs)
	i.iterationsTotal.Add(ctx, 1, attrs)

	return outcome, err
}
