package xrotate

import (
	"os"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xmetrics"
)

// 默认配置值
const (
	// DefaultFileMode 默认日志文件权限
	DefaultFileMode os.FileMode = 0o600

	// MaxFilesLimit MaxFiles 上限
	MaxFilesLimit = 1024

	// maxBufferSize 写缓冲上限（64 MiB）
	maxBufferSize = 64 << 20
)

// options Appender 的可选配置
type options struct {
	pointer    PointerKind
	bufferSize int
	fileMode   os.FileMode
	clock      func() time.Time
	onError    func(error)
	observer   xmetrics.Observer
	fs         FS
}

func defaultOptions() options {
	return options{
		pointer:  PointerSymlink,
		fileMode: DefaultFileMode,
		clock:    time.Now,
		fs:       osFS{},
	}
}

// Option Appender 配置选项函数
type Option func(*options)

// WithPointer 设置最新指针的维护方式，默认 [PointerSymlink]
func WithPointer(kind PointerKind) Option {
	return func(o *options) {
		o.pointer = kind
	}
}

// WithBufferSize 设置写缓冲大小（字节）
//
// 0 表示不缓冲（默认），每次 Write 直接写入文件。
// 启用缓冲后数据在 Flush、轮转或 Close 时落盘。
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithFileMode 设置新建日志文件的权限，默认 [DefaultFileMode]
//
// 仅允许权限位（0000~0777）。
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// WithClock 设置时间源，nil 时忽略
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithOnError 设置非致命错误回调
//
// 轮转中不影响后续写入的失败（指针重建、清理旧文件等）通过此回调上报。
// 回调不得向同一 Appender 写入数据，否则会递归。
// 回调中的 panic 会被 recover 隔离。
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithObserver 设置轮转和清理操作的观测器
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithFS 设置文件系统实现，nil 时忽略
func WithFS(fsys FS) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}
