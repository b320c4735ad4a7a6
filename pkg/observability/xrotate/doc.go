// Package xrotate 提供按周期和大小轮转的日志文件写入。
//
// # 磁盘布局
//
//	<folder>/<prefix>                       最新指针，始终指向正在写入的文件
//	<folder>/<prefix>.YYYYMMDD.HHMMSS       归档文件
//	<folder>/<prefix>.YYYYMMDD.HHMMSS.N     同一秒内多次轮转时的后缀（N 从 1 开始）
//
// 最新指针有两种维护方式（见 [PointerKind]）：
//
//   - [PointerSymlink]: 活动文件打开时就以归档名命名，<prefix> 是指向它的相对符号链接
//   - [PointerFile]: 活动文件就是 <prefix>，轮转时重命名为归档名
//
// # 轮转条件
//
// [Condition] 支持按周期（分钟/小时/天）和按大小两种条件，任一满足即轮转。
// 周期按时区内的民用日历计算（见 [PeriodKey]），时钟回拨不会触发轮转。
// 大小在写入前判断，单次写入不会被拆分；空文件从不轮转。
//
// # 保留策略
//
// maxFiles 限制数据文件总数（含活动文件），每次轮转后删除最旧的归档。0 表示不限制。
//
// # 实现
//
//   - [New]: 无锁的 [Appender]，调用方负责串行化
//   - [NewRolling]: 包装 Appender 的并发安全 [Rotator]
//   - [NewLumberjack]: 基于 lumberjack v2 的按大小轮转
//   - [Open]: 按 [Config] 选择实现
//
// # 错误处理
//
// 轮转分为 close/seal/open/link/prune 五个步骤，失败以 [*RotationError] 表示。
// 封存失败会恢复原文件；指针重建和清理失败不影响写入，只通过 [WithOnError] 上报。
// Appender 自身从不写日志，避免作为日志输出目标时产生递归。
package xrotate
