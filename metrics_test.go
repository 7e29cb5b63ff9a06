package predicate

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	p, err := Compile(idGreaterThan(5), idNameSchema, KeyShapePlain,
		Config{Meter: provider.Meter("predicate-test")}, nil, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	rows := []Row{
		{int64(10), "x"},
		{int64(11), "x"},
		{int64(1), "x"},
		{"oops", "x"},
		nil,
	}
	for _, row := range rows {
		p.EvaluatePlain("k", row)
	}

	sums := collectSums(t, reader)
	want := map[string]int64{MetricEvaluated: 5, MetricMatched: 2, MetricFaulted: 1}
	for name, n := range want {
		if sums[name] != n {
			t.Errorf("%s: expected %d, got %d", name, n, sums[name])
		}
	}
}
