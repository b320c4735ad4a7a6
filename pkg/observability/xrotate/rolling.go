package xrotate

import (
	"sync"
	"sync/atomic"
)

// rollingRotator 基于 Appender 的并发安全 Rotator
type rollingRotator struct {
	mu     sync.Mutex
	app    *Appender
	closed atomic.Bool
}

// NewRolling 创建按周期和大小轮转的并发安全 Rotator
//
// 参数与 [New] 相同。返回的 Rotator 用互斥锁串行化所有调用，
// 可直接交给多个 goroutine 共享（如作为 xlog 的输出）。
func NewRolling(folder, prefix string, cond Condition, maxFiles int, opts ...Option) (Rotator, error) {
	app, err := New(folder, prefix, cond, maxFiles, opts...)
	if err != nil {
		return nil, err
	}
	return &rollingRotator{app: app}, nil
}

// Write 实现 io.Writer 接口
func (r *rollingRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app.Write(p)
}

// Flush 刷新写缓冲
func (r *rollingRotator) Flush() error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app.Flush()
}

// Rotate 手动触发轮转
func (r *rollingRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app.Rotate()
}

// Close 实现 io.Closer 接口
//
// 使用 CAS 标记关闭状态，首次 Close 失败后不重置标记，重复调用返回 [ErrClosed]。
// 已持有锁的 Write 完成后才会真正关闭文件。
func (r *rollingRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app.Close()
}
