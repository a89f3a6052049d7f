// Package observe provides OpenTelemetry metrics for the coaching pipeline
// with a Prometheus exporter bridge, so counters and latency histograms can
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "speakwall"

// Metrics holds the OpenTelemetry instruments for the pipeline. The
// underlying OTel types handle their own synchronisation.
type Metrics struct {
	// StorageDuration tracks recording download latency.
	StorageDuration metric.Float64Histogram

	// TranscribeDuration tracks speech-to-text latency.
	TranscribeDuration metric.Float64Histogram

	// RecommendDuration tracks coaching-tip generation latency.
	RecommendDuration metric.Float64Histogram

	// SessionsRegistered counts created sessions.
	SessionsRegistered metric.Int64Counter

	// TrialRejections counts registrations refused by the trial cap.
	TrialRejections metric.Int64Counter

	// Analyses counts analyze runs. Use with attribute:
	//   attribute.String("status", "analyzed"|"failed")
	Analyses metric.Int64Counter

	// Recommendations counts coaching runs. Use with attribute:
	//   attribute.String("status", "completed"|"failed")
	Recommendations metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote speech/LLM calls.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StorageDuration, err = m.Float64Histogram("speakwall.storage.duration",
		metric.WithDescription("Latency of recording downloads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("speakwall.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecommendDuration, err = m.Float64Histogram("speakwall.recommend.duration",
		metric.WithDescription("Latency of coaching-tip generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionsRegistered, err = m.Int64Counter("speakwall.sessions.registered",
		metric.WithDescription("Sessions created."),
	); err != nil {
		return nil, err
	}
	if met.TrialRejections, err = m.Int64Counter("speakwall.sessions.trial_rejections",
		metric.WithDescription("Registrations refused by the trial cap."),
	); err != nil {
		return nil, err
	}
	if met.Analyses, err = m.Int64Counter("speakwall.analyses",
		metric.WithDescription("Analyze runs by outcome status."),
	); err != nil {
		return nil, err
	}
	if met.Recommendations, err = m.Int64Counter("speakwall.recommendations",
		metric.WithDescription("Coaching runs by outcome status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// StatusAttr builds the status attribute used on outcome counters.
func StatusAttr(status string) metric.AddOption {
	return metric.WithAttributes(attribute.String("status", status))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] bound to the global
// meter provider, creating it on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		// Instrument creation only fails on malformed names, which are
		// constants here; a nil Metrics degrades to no-op recording.
		defaultMetrics, _ = NewMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics
}

// RecordOutcome increments counter with the given status attribute, guarding
// against a nil receiver so instrumentation is optional in tests.
func (m *Metrics) RecordOutcome(ctx context.Context, counter metric.Int64Counter, status string) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, 1, StatusAttr(status))
}
