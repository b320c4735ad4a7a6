// Package xmetrics 提供轮转引擎的可观测性接口（metrics + tracing）。
//
// 引擎代码只依赖 Observer/Span/Attr 三个最小接口，具体实现可替换：
// 不注入时使用 nil（零开销），需要导出时使用基于 OpenTelemetry 的 [NewOTelObserver]。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	_, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xrotate",
//		Operation: "rotate",
//		Attrs:     []xmetrics.Attr{xmetrics.String("trigger", "size")},
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// # 指标命名
//
//   - xroll.operation.total
//   - xroll.operation.duration
//
// 统一属性：component / operation / status。
// Span 名称为 "<component>.<operation>"，如 "xrotate.rotate"。
package xmetrics
