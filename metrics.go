package predicate

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric instrument names.
const (
	MetricEvaluated = "predicate.records.evaluated"
	MetricMatched   = "predicate.records.matched"
	MetricFaulted   = "predicate.records.faulted"
)

type metrics struct {
	evaluated metric.Int64Counter
	matched   metric.Int64Counter
	faulted   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("predicate")
	}
	evaluated, err := meter.Int64Counter(MetricEvaluated,
		metric.WithDescription("Records passed to a predicate"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}
	matched, err := meter.Int64Counter(MetricMatched,
		metric.WithDescription("Records that matched a predicate"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}
	faulted, err := meter.Int64Counter(MetricFaulted,
		metric.WithDescription("Records whose evaluation faulted"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}
	return &metrics{evaluated: evaluated, matched: matched, faulted: faulted}, nil
}

func (m *metrics) record(out outcome) {
	ctx := context.Background()
	m.evaluated.Add(ctx, 1)
	switch {
	case out.Fault != nil:
		m.faulted.Add(ctx, 1)
	case out.Match:
		m.matched.Add(ctx, 1)
	}
}
