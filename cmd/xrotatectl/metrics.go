package main

import (
	"context"
	"log/slog"
	"slices"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xroll/pkg/observability/xmetrics"
)

// runMetrics 进程内的指标收集，run 结束时汇总到诊断日志
type runMetrics struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func newRunMetrics() *runMetrics {
	reader := sdkmetric.NewManualReader()
	return &runMetrics{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// observer 基于本地 MeterProvider 的观测器，追踪仍使用全局 TracerProvider
func (m *runMetrics) observer() (xmetrics.Observer, error) {
	return xmetrics.NewOTelObserver(
		xmetrics.WithInstrumentationName("xrotatectl"),
		xmetrics.WithMeterProvider(m.provider),
	)
}

// counts 按 <operation>_<status> 汇总操作次数
func (m *runMetrics) counts(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				status, _ := dp.Attributes.Value("status")
				out[op.AsString()+"_"+status.AsString()] += dp.Value
			}
		}
	}
	return out, nil
}

// summaryAttrs 汇总结果转为按键排序的日志属性
func summaryAttrs(counts map[string]int64) []slog.Attr {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Int64(k, counts[k]))
	}
	return attrs
}

func (m *runMetrics) shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
