package xrotate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xroll/pkg/observability/xmetrics"
	"github.com/omeyang/xroll/pkg/util/xfile"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Lumberjack 默认配置值
const (
	// DefaultMaxSizeMB 默认单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 500

	// DefaultMaxBackups 默认保留的备份文件数量
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留备份的天数
	DefaultMaxAgeDays = 30

	// maxSizeMB 单个日志文件大小上限（10 GB）
	maxSizeMB = 10240

	// maxBackups 备份文件数量上限
	maxBackups = 1024

	// maxAgeDays 备份保留天数上限（约 10 年）
	maxAgeDays = 3650
)

// lumberjackConfig lumberjack 轮转器配置
//
// 仅按文件大小轮转，备份不压缩。需要按周期轮转或稳定的最新指针时使用 [NewRolling]。
type lumberjackConfig struct {
	// MaxSizeMB 单个日志文件最大大小（MB）
	// 超过此大小时触发轮转
	// 默认值 DefaultMaxSizeMB，必须 > 0
	MaxSizeMB int

	// MaxBackups 保留的备份文件数量
	// 超过此数量时删除最旧的备份
	// 默认值 DefaultMaxBackups，0 表示不限制数量（但仍受 MaxAgeDays 约束）
	MaxBackups int

	// MaxAgeDays 保留备份的天数
	// 超过此天数的备份会被删除
	// 默认值 DefaultMaxAgeDays，0 表示不按天数清理（但仍受 MaxBackups 约束）
	MaxAgeDays int

	// LocalTime 备份文件名是否使用本地时间
	// false 时使用 UTC 时间
	LocalTime bool

	// FileMode 日志文件权限
	// 默认为 0，表示使用 lumberjack 默认值 (0600)
	// 设置为非零值时，在首次写入和轮转后调整权限
	// 仅允许权限位（0000~0777），不允许文件类型位或 setuid/setgid
	//
	// 注意：lumberjack v2.2+ 内部使用 0600 创建文件。如需更宽松的
	// 权限（如 0644），可使用此选项调整。
	//
	// 安全说明：由于 lumberjack 不暴露权限配置，此选项通过
	// chmod 方式调整权限，存在短暂时间窗口权限为 0600。
	FileMode os.FileMode

	// OnError 可选的错误回调函数
	//
	// 当内部操作（如文件权限调整）失败时调用。默认为 nil（静默忽略）。
	//
	// 安全约束：回调函数不得向同一 Rotator 写入数据，否则会导致递归死锁。
	// 推荐输出到 os.Stderr 或独立的日志通道。
	OnError func(error)

	// Observer 记录手动轮转和按大小自动轮转，nil 时不记录
	Observer xmetrics.Observer

	// keepAll 允许 MaxBackups 和 MaxAgeDays 同时为 0，即保留全部备份
	keepAll bool
}

// LumberjackOption lumberjack 配置选项函数
type LumberjackOption func(*lumberjackConfig)

// WithMaxSizeMB 设置单个日志文件最大大小（MB）
func WithMaxSizeMB(mb int) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.MaxSizeMB = mb
	}
}

// WithMaxBackups 设置保留的备份文件数量
func WithMaxBackups(n int) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.MaxBackups = n
	}
}

// WithMaxAge 设置保留备份的天数
func WithMaxAge(days int) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.MaxAgeDays = days
	}
}

// WithLocalTime 设置备份文件名是否使用本地时间
func WithLocalTime(local bool) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.LocalTime = local
	}
}

// WithLumberjackFileMode 设置日志文件权限
//
// 权限调整在文件创建/写入后通过 chmod 实现，
// 存在短暂时间窗口文件权限为 lumberjack 默认值 0600。
func WithLumberjackFileMode(mode os.FileMode) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.FileMode = mode
	}
}

// WithLumberjackObserver 设置轮转观测器
func WithLumberjackObserver(observer xmetrics.Observer) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.Observer = observer
	}
}

// withKeepAllBackups 由 [Open] 在 max_files 为 0 时使用
func withKeepAllBackups(keep bool) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.keepAll = keep
	}
}

// WithLumberjackOnError 设置错误回调函数
//
// 用于接收内部操作（如文件权限调整）的错误通知，回调不得向同一 Rotator 写入数据。
func WithLumberjackOnError(fn func(error)) LumberjackOption {
	return func(c *lumberjackConfig) {
		c.OnError = fn
	}
}

// lumberjackRotator 基于 lumberjack 的 Rotator 实现
//
// 备份文件名由 lumberjack 决定（name-<timestamp>.ext），不带最新指针。
// mu 串行化 Write、Rotate 和 Close，size 与 lumberjack 内部的计数保持一致，
// 据此判断一次写入是否会触发自动轮转。
type lumberjackRotator struct {
	logger   *lumberjack.Logger
	path     string
	fileMode os.FileMode // 0 表示不调整
	onError  func(error)
	observer xmetrics.Observer

	mu          sync.Mutex
	size        int64 // 活动文件当前大小
	opened      bool  // lumberjack 是否已打开活动文件
	maxSize     int64
	modeApplied atomic.Bool // 当前活动文件的权限已确认

	closed atomic.Bool

	// 可注入的系统调用（nil 时使用 os 标准库），仅用于测试
	statFn  func(string) (os.FileInfo, error)
	chmodFn func(string, os.FileMode) error
}

// NewLumberjack 创建基于 lumberjack 的按大小轮转器
//
// filename 会被规范化，父目录不存在时自动创建。
// 已存在的 filename 会被续写，其大小计入首个文件。
func NewLumberjack(filename string, opts ...LumberjackOption) (Rotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}

	cfg := lumberjackConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := validateLumberjackConfig(&cfg); err != nil {
		return nil, err
	}

	safePath, err := xfile.SanitizePath(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := xfile.EnsureDir(safePath); err != nil {
		return nil, err
	}

	return &lumberjackRotator{
		logger: &lumberjack.Logger{
			Filename:   safePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  cfg.LocalTime,
		},
		path:     safePath,
		fileMode: cfg.FileMode,
		onError:  cfg.OnError,
		observer: cfg.Observer,
		maxSize:  int64(cfg.MaxSizeMB) << 20,
	}, nil
}

// validateLumberjackConfig 验证 lumberjack 配置
func validateLumberjackConfig(cfg *lumberjackConfig) error {
	if cfg.MaxSizeMB <= 0 || cfg.MaxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, cfg.MaxSizeMB, maxSizeMB)
	}
	if cfg.MaxBackups < 0 || cfg.MaxBackups > maxBackups {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, cfg.MaxBackups, maxBackups)
	}
	if cfg.MaxAgeDays < 0 || cfg.MaxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, cfg.MaxAgeDays, maxAgeDays)
	}
	if cfg.MaxBackups == 0 && cfg.MaxAgeDays == 0 && !cfg.keepAll {
		return fmt.Errorf("%w: MaxBackups and MaxAgeDays cannot both be 0", ErrNoCleanupPolicy)
	}
	// 仅允许权限位，拒绝文件类型位和 setuid/setgid
	if cfg.FileMode != 0 && cfg.FileMode&^os.FileMode(0o777) != 0 {
		return fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, cfg.FileMode)
	}
	return nil
}

// Write 实现 io.Writer 接口
func (r *lumberjackRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return 0, ErrClosed
	}

	willRotate := r.willRotate(int64(len(p)))
	var span xmetrics.Span
	if willRotate {
		_, span = r.startRotateSpan(TriggerSize)
	}

	n, err := r.logger.Write(p)
	if span != nil {
		span.End(xmetrics.Result{Err: err})
	}
	if err != nil {
		return n, err
	}

	if willRotate {
		r.size = 0
		r.modeApplied.Store(false)
	}
	r.opened = true
	r.size += int64(n)
	r.applyFileMode()
	return n, nil
}

// willRotate 按 lumberjack 的规则判断写入 n 字节前是否会轮转
//
// 首次写入时 lumberjack 续写已有文件，已有大小加 n 达到上限即轮转；
// 之后超过上限才轮转。单次写入超过上限时 lumberjack 直接报错，不轮转。
func (r *lumberjackRotator) willRotate(n int64) bool {
	if n > r.maxSize {
		return false
	}
	if !r.opened {
		if info, err := r.stat(r.path); err == nil {
			r.size = info.Size()
		} else {
			return false
		}
		return r.size+n >= r.maxSize
	}
	return r.size+n > r.maxSize
}

func (r *lumberjackRotator) startRotateSpan(trig Trigger) (context.Context, xmetrics.Span) {
	return xmetrics.Start(context.Background(), r.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opRotate,
		Attrs: []xmetrics.Attr{
			xmetrics.String("trigger", trig.String()),
			xmetrics.String("backend", BackendLumberjack),
		},
	})
}

// applyFileMode 按需调整活动文件权限，失败只上报
//
// lumberjack 总以 0600 创建文件，每个新活动文件在首次写入后调整一次。
func (r *lumberjackRotator) applyFileMode() {
	if r.fileMode == 0 || r.modeApplied.Load() {
		return
	}
	if err := r.ensureFileMode(); err != nil {
		r.reportError(&RotationError{Stage: StageOpen, Path: r.path, Err: err})
	}
}

// ensureFileMode 检查实际权限，不一致时 chmod，成功后标记 modeApplied
func (r *lumberjackRotator) ensureFileMode() error {
	info, err := r.stat(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// lumberjack 延迟创建文件
			return nil
		}
		return err
	}

	if info.Mode().Perm() != r.fileMode {
		chmod := r.chmodFn
		if chmod == nil {
			chmod = os.Chmod
		}
		//#nosec G302 -- 日志文件权限由调用方配置决定
		if err := chmod(r.path, r.fileMode); err != nil {
			return err
		}
	}
	r.modeApplied.Store(true)
	return nil
}

func (r *lumberjackRotator) stat(path string) (os.FileInfo, error) {
	if r.statFn != nil {
		return r.statFn(path)
	}
	return os.Stat(path)
}

// reportError 通过回调上报内部错误，回调 panic 被 recover 隔离
func (r *lumberjackRotator) reportError(err error) {
	if err != nil && r.onError != nil {
		defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
		r.onError(err)
	}
}

// Close 实现 io.Closer 接口
//
// 关闭后调用 Write、Flush 或 Rotate 将返回 [ErrClosed]。
// 重复调用 Close 也返回 [ErrClosed]，首次 Close 失败后不重置标记。
func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	// 等待进行中的 Write 结束，之后 lumberjack 不会再被重新打开
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger.Close()
}

// Flush lumberjack 直接写文件，没有缓冲
func (r *lumberjackRotator) Flush() error {
	if r.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Rotate 手动触发轮转
func (r *lumberjackRotator) Rotate() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}

	_, span := r.startRotateSpan(TriggerManual)
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	if err := r.logger.Rotate(); err != nil {
		return &RotationError{Stage: StageSeal, Path: r.path, Err: err}
	}
	r.opened = true
	r.size = 0
	r.modeApplied.Store(false)
	r.applyFileMode()
	return nil
}
