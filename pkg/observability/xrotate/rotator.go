package xrotate

import "io"

// 编译时断言：Rotator 接口是 io.WriteCloser 的超集
var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器接口
//
// 隐式实现 [io.WriteCloser]，可直接作为 xlog 等日志库的输出目标。
// 所有实现都必须是并发安全的。
//
// 扩展新实现时，必须满足以下约定：
//   - Write/Flush/Rotate/Close 可被多个 goroutine 同时调用
//   - Close 后调用 Write、Flush 或 Rotate 返回 [ErrClosed]
//   - 重复调用 Close 返回 [ErrClosed]
type Rotator interface {
	// Write 写入日志数据，满足轮转条件时先轮转再写入
	Write(p []byte) (n int, err error)

	// Flush 把缓冲数据写入磁盘，未启用缓冲时为空操作
	Flush() error

	// Rotate 手动触发一次轮转
	Rotate() error

	// Close 刷新并关闭当前文件，不触发轮转
	Close() error
}
