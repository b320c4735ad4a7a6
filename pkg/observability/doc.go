// Package observability 提供日志落盘和可观测性相关的子包。
//
// 子包列表：
//   - xrotate: 日志文件轮转引擎，按周期和大小切分，保留策略和最新指针
//   - xlog: 结构化日志，基于 log/slog 扩展，可直接写入 xrotate
//   - xmetrics: 统一观测接口，xrotate 通过它上报轮转的追踪和指标
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 轮转失败只上报，不中断写入方
package observability
