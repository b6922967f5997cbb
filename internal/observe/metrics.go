// Package observe holds the OpenTelemetry instruments of revisa and the
// Prometheus bridge that serves them on /metrics.
//
// [Metrics] satisfies the recorder interfaces of the correction engine, the
// escalator and the IPC server, so one instance is passed to all three.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/bastiangx/revisa"

// Metrics holds every instrument. The OTel types are safe for concurrent use.
type Metrics struct {
	// Corrections counts uncached cascade runs by stage.
	Corrections metric.Int64Counter
	// CorrectionDuration is the cascade latency in seconds.
	CorrectionDuration metric.Float64Histogram

	// Escalations counts slow path answers by outcome.
	Escalations metric.Int64Counter
	// InferenceDuration is the time spent waiting for the backend.
	InferenceDuration metric.Float64Histogram
	// Rejections counts submissions refused by reason (full, closed).
	Rejections metric.Int64Counter

	// Requests counts IPC requests by action and status.
	Requests metric.Int64Counter
	// RequestDuration is the IPC handling latency by action.
	RequestDuration metric.Float64Histogram
}

// correctionBuckets are sized for a sub-millisecond cascade.
var correctionBuckets = []float64{
	0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01,
}

var inferenceBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Corrections, err = m.Int64Counter("revisa.corrections",
		metric.WithDescription("Cascade runs by deciding stage."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionDuration, err = m.Float64Histogram("revisa.correction.duration",
		metric.WithDescription("Latency of a single cascade run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(correctionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Escalations, err = m.Int64Counter("revisa.escalations",
		metric.WithDescription("Escalation responses by outcome."),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("revisa.inference.duration",
		metric.WithDescription("Latency of inference backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(inferenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Rejections, err = m.Int64Counter("revisa.escalation.rejections",
		metric.WithDescription("Escalation submissions refused by reason."),
	); err != nil {
		return nil, err
	}
	if met.Requests, err = m.Int64Counter("revisa.ipc.requests",
		metric.WithDescription("IPC requests by action and status."),
	); err != nil {
		return nil, err
	}
	if met.RequestDuration, err = m.Float64Histogram("revisa.ipc.duration",
		metric.WithDescription("IPC request handling latency by action."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(correctionBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordCorrection records one cascade run.
func (m *Metrics) RecordCorrection(stage string, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.Corrections.Add(ctx, 1, attrs)
	m.CorrectionDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordEscalation records one escalation response. The inference latency is
// only recorded when the backend was asked.
func (m *Metrics) RecordEscalation(outcome string, inference time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.Escalations.Add(ctx, 1, attrs)
	if outcome != "local" {
		m.InferenceDuration.Record(ctx, inference.Seconds(), attrs)
	}
}

// RecordRejection records a refused submission.
func (m *Metrics) RecordRejection(reason string) {
	m.Rejections.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordRequest records one IPC request.
func (m *Metrics) RecordRequest(action string, ok bool, elapsed time.Duration) {
	ctx := context.Background()
	status := "ok"
	if !ok {
		status = "error"
	}
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
	m.RequestDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("action", action)),
	)
}
