package observability

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Families that describe the exporter rather than the application.
var skippedFamilies = map[string]bool{
	"target_info":     true,
	"otel_scope_info": true,
}

// Sample is one flattened Prometheus series.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// PrometheusSnapshot collects OTel instruments into a private Prometheus
// registry so a run's metrics can be printed once it ends. Each snapshot
// owns its registry to avoid collector conflicts between runs.
type PrometheusSnapshot struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewPrometheusSnapshot creates an OTel MeterProvider backed by the Prometheus
// exporter on a fresh registry.
func NewPrometheusSnapshot() (*PrometheusSnapshot, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusSnapshot{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns the meter whose instruments land in the snapshot.
func (ps *PrometheusSnapshot) Meter() metric.Meter {
	return ps.provider.Meter(meterName)
}

// Samples gathers the registry and flattens it into series sorted by name
// and labels. Histograms contribute their _count and _sum series.
func (ps *PrometheusSnapshot) Samples() ([]Sample, error) {
	families, err := ps.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather prometheus metrics: %w", err)
	}

	var samples []Sample

	for _, family := range families {
		name := family.GetName()
		if skippedFamilies[name] {
			continue
		}

		for _, series := range family.GetMetric() {
			labels := formatLabels(series.GetLabel())

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: series.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: series.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				hist := series.GetHistogram()
				samples = append(samples,
					Sample{Name: name + "_count", Labels: labels, Value: float64(hist.GetSampleCount())},
					Sample{Name: name + "_sum", Labels: labels, Value: hist.GetSampleSum()},
				)
			case dto.MetricType_SUMMARY, dto.MetricType_UNTYPED, dto.MetricType_GAUGE_HISTOGRAM:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: series.GetUntyped().GetValue()})
			}
		}
	}

	slices.SortFunc(samples, func(a, b Sample) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(a.Labels, b.Labels)
	})

	return samples, nil
}

// Shutdown releases the meter provider.
func (ps *PrometheusSnapshot) Shutdown(ctx context.Context) error {
	err := ps.provider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown prometheus snapshot: %w", err)
	}

	return nil
}

// formatLabels renders labels as k=v pairs, dropping OTel scope labels.
func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))

	for _, pair := range pairs {
		if strings.HasPrefix(pair.GetName(), "otel_scope_") {
			continue
		}

		parts = append(parts, pair.GetName()+"="+pair.GetValue())
	}

	slices.Sort(parts)

	return strings.Join(parts, ",")
}
