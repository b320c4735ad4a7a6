// Package xlog 基于 log/slog 的结构化日志库，可直接写入轮转文件。
//
// # 创建 Logger
//
// 使用 Builder 模式，遇到第一个配置错误后后续 Set 调用被跳过：
//
//	logger, cleanup, err := xlog.New().
//		SetFormat("json").
//		SetLevel(xlog.LevelInfo).
//		SetRotation("/var/log/app", "app.log", xrotate.Condition{}.Daily(), 7).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// [Builder.SetRotation] 内部使用 [xrotate.NewRolling]；已有 [xrotate.Rotator]
// （如由配置文件经 [xrotate.Open] 创建）时使用 [Builder.SetRotator]。
// cleanup 刷新并关闭轮转文件。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]，SetLevel 运行时生效，With/WithGroup 派生的 logger 共享级别。
// Level 实现 encoding.TextUnmarshaler，可由 koanf 直接从配置反序列化。
//
// # 与轮转引擎配合
//
// 轮转引擎本身不写日志，错误经 OnError 回调上报。
// [RotationErrorHandler] 把 Logger 适配为该回调，按步骤（stage）和路径记录失败。
//
// # 标准库桥接
//
// [Slog] 返回写入同一目标的 *slog.Logger。
package xlog
