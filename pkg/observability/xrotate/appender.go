package xrotate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xmetrics"
	"github.com/omeyang/xroll/pkg/util/xfile"
)

// Appender 按条件轮转的日志文件写入器
//
// Appender 独占当前活动文件及其轮转状态，不做任何加锁，
// 同一时刻只能被一个 goroutine 使用。需要并发写入时使用 [NewRolling]。
//
// 磁盘布局：
//
//	<folder>/<prefix>                           最新指针
//	<folder>/<prefix>.YYYYMMDD.HHMMSS[.N]       归档文件
type Appender struct {
	folder   string
	prefix   string
	pointer  string
	cond     Condition
	maxFiles int

	fs       FS
	clock    func() time.Time
	onError  func(error)
	observer xmetrics.Observer
	ptr      latestPointer
	kind     PointerKind
	mode     os.FileMode

	bufferSize int
	buf        *bufio.Writer

	file        File
	path        string
	periodStart time.Time
	size        int64
	closed      bool
}

// New 创建 Appender 并打开活动文件
//
// 参数:
//   - folder: 日志目录，不存在时自动创建（权限 0750）
//   - prefix: 文件名前缀，必须是单个路径段
//   - cond: 轮转条件
//   - maxFiles: 保留的数据文件数量（含活动文件），0 表示不限制，上限 [MaxFilesLimit]
//
// 目录中已有可接管的活动文件时以追加方式打开，周期起点取其修改时间。
func New(folder, prefix string, cond Condition, maxFiles int, opts ...Option) (*Appender, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	pointer, err := validate(folder, prefix, cond, maxFiles, &o)
	if err != nil {
		return nil, err
	}

	if err := xfile.EnsureDir(pointer); err != nil {
		return nil, err
	}

	a := &Appender{
		folder:     filepath.Dir(pointer),
		prefix:     prefix,
		pointer:    pointer,
		cond:       cond,
		maxFiles:   maxFiles,
		fs:         o.fs,
		clock:      o.clock,
		onError:    o.onError,
		observer:   o.observer,
		kind:       o.pointer,
		mode:       o.fileMode,
		bufferSize: o.bufferSize,
	}
	a.ptr = newPointer(o.pointer, pointerBase{
		fs:      a.fs,
		folder:  a.folder,
		prefix:  prefix,
		pointer: pointer,
		loc:     cond.location(),
		mode:    a.mode,
	})

	if err := a.openInitial(a.clock()); err != nil {
		return nil, err
	}
	return a, nil
}

// validate 校验构造参数，返回规范化后的指针路径
func validate(folder, prefix string, cond Condition, maxFiles int, o *options) (string, error) {
	if folder == "" {
		return "", ErrEmptyFolder
	}
	if prefix == "" {
		return "", ErrEmptyPrefix
	}
	if err := xfile.ValidateBaseName(prefix); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidPrefix, prefix, err)
	}
	if maxFiles < 0 || maxFiles > MaxFilesLimit {
		return "", fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxFiles, maxFiles, MaxFilesLimit)
	}
	if err := cond.Validate(); err != nil {
		return "", err
	}
	if o.fileMode&^os.FileMode(0o777) != 0 {
		return "", fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, o.fileMode)
	}
	if o.pointer != PointerSymlink && o.pointer != PointerFile {
		return "", fmt.Errorf("%w: %d", ErrInvalidPointer, int(o.pointer))
	}
	if o.bufferSize < 0 || o.bufferSize > maxBufferSize {
		return "", fmt.Errorf("%w: buffer size %d, want 0~%d", ErrInvalidConfig, o.bufferSize, maxBufferSize)
	}

	pointer, err := xfile.SanitizePath(filepath.Join(folder, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return pointer, nil
}

// openInitial 接管已有活动文件，没有时创建新文件并建立指针
func (a *Appender) openInitial(now time.Time) error {
	live, err := a.ptr.adopt()
	if err != nil {
		return fmt.Errorf("xrotate: adopt %s: %w", a.pointer, err)
	}
	if live != "" {
		if err := a.reopen(live); err != nil {
			return fmt.Errorf("xrotate: reopen %s: %w", live, err)
		}
		return nil
	}
	if err := a.openFresh(now); err != nil {
		return fmt.Errorf("xrotate: create in %s: %w", a.folder, err)
	}
	return nil
}

// reopen 以追加方式打开已存在的活动文件，大小与周期起点取自文件元数据
func (a *Appender) reopen(path string) error {
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, a.mode)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	a.attach(f, path, info.Size(), PeriodStart(a.cond.Period, info.ModTime(), a.cond.location()))
	return nil
}

// openFresh 创建新的活动文件并让指针指向它；指针失败仅上报
func (a *Appender) openFresh(now time.Time) error {
	f, path, err := a.ptr.create(now)
	if err != nil {
		return err
	}
	a.attach(f, path, 0, PeriodStart(a.cond.Period, now, a.cond.location()))
	if err := a.ptr.link(path); err != nil {
		a.report(&RotationError{Stage: StageLink, Path: a.pointer, Err: err})
	}
	return nil
}

// attach 切换到新的活动文件
func (a *Appender) attach(f File, path string, size int64, start time.Time) {
	a.file = f
	a.path = path
	a.size = size
	a.periodStart = start
	if a.bufferSize > 0 {
		if a.buf == nil {
			a.buf = bufio.NewWriterSize(f, a.bufferSize)
		} else {
			a.buf.Reset(f)
		}
	}
}

// detach 放弃当前活动文件句柄（已关闭或关闭失败）
func (a *Appender) detach() {
	a.file = nil
	if a.buf != nil {
		a.buf.Reset(io.Discard)
	}
}

func (a *Appender) out() io.Writer {
	if a.buf != nil {
		return a.buf
	}
	return a.file
}

// Write 实现 io.Writer 接口，使用时钟当前时间判断轮转
func (a *Appender) Write(p []byte) (int, error) {
	return a.WriteAt(p, a.clock())
}

// WriteAt 以 now 作为当前时间写入 p
//
// 写入前先判断轮转条件，需要时先轮转再写入，单次写入不会被拆分到两个文件。
// 轮转失败但仍有可写文件时，错误通过 OnError 上报，数据照常写入原文件；
// 没有可写文件时返回错误，下次写入会重新尝试打开。
// 零长度写入不做任何事。
func (a *Appender) WriteAt(p []byte, now time.Time) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if a.file == nil {
		if err := a.openFresh(now); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNoWritableFile, err)
		}
	}

	if trig := Evaluate(a.cond, a.periodStart, a.size, now, len(p)); trig != TriggerNone {
		if err := a.rotate(now, trig); err != nil {
			if a.file == nil {
				return 0, err
			}
			a.report(err)
		}
	} else if a.size == 0 && a.cond.Period != PeriodNone {
		loc := a.cond.location()
		if PeriodKey(a.cond.Period, now, loc) > PeriodKey(a.cond.Period, a.periodStart, loc) {
			a.rebase(now)
		}
	}

	n, err := a.out().Write(p)
	a.size += int64(n)
	if err != nil && a.buf != nil {
		return n, a.discardBuffer(err)
	}
	return n, err
}

// rebase 空文件进入新周期时不轮转，只更新周期起点
//
// 符号链接模式下文件名带创建时间戳，换成以 now 命名的新文件，
// 让归档名反映其中数据所属的周期。换名失败时继续使用原文件。
func (a *Appender) rebase(now time.Time) {
	start := PeriodStart(a.cond.Period, now, a.cond.location())
	if a.kind != PointerSymlink {
		a.periodStart = start
		return
	}

	old, oldPath := a.file, a.path
	f, path, err := a.ptr.create(now)
	if err != nil {
		a.periodStart = start
		a.report(&RotationError{Stage: StageOpen, Path: a.pointer, Err: err})
		return
	}
	a.attach(f, path, 0, start)
	if err := a.ptr.link(path); err != nil {
		a.report(&RotationError{Stage: StageLink, Path: a.pointer, Err: err})
	}
	if err := old.Close(); err != nil {
		a.report(&RotationError{Stage: StageClose, Path: oldPath, Err: err})
	}
	if err := a.fs.Remove(oldPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.report(&RotationError{Stage: StagePrune, Path: oldPath, Err: err})
	}
}

// discardBuffer 底层写入失败后清空缓冲，返回附带丢弃字节数的错误
//
// bufio.Writer 出错后会一直返回同一个错误，不清空则活动文件再也不可写。
// 未落盘的数据被丢弃，size 按文件实际大小修正。
func (a *Appender) discardBuffer(cause error) error {
	dropped := a.buf.Buffered()
	a.buf.Reset(a.file)
	if info, err := a.file.Stat(); err == nil {
		a.size = info.Size()
	} else {
		a.size = max(a.size-int64(dropped), 0)
	}
	if dropped == 0 {
		return cause
	}
	return fmt.Errorf("%w: %d buffered bytes dropped", cause, dropped)
}

// Flush 把缓冲数据写入活动文件；未启用缓冲时为空操作
func (a *Appender) Flush() error {
	if a.closed {
		return ErrClosed
	}
	return a.flush()
}

func (a *Appender) flush() error {
	if a.buf == nil || a.file == nil {
		return nil
	}
	if err := a.buf.Flush(); err != nil {
		return a.discardBuffer(err)
	}
	return nil
}

// Rotate 立即执行一次轮转，不论条件是否满足
func (a *Appender) Rotate() error {
	if a.closed {
		return ErrClosed
	}
	now := a.clock()
	if a.file == nil {
		// 上次轮转失败后没有活动文件，重新打开即完成切换
		if err := a.openFresh(now); err != nil {
			return fmt.Errorf("%w: %w", ErrNoWritableFile, err)
		}
		return nil
	}
	return a.rotate(now, TriggerManual)
}

// Close 刷新缓冲并关闭活动文件，不触发轮转
//
// 重复调用返回 [ErrClosed]。
func (a *Appender) Close() error {
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	if a.file == nil {
		return nil
	}
	err := a.flush()
	err = errors.Join(err, a.file.Close())
	a.detach()
	return err
}

// Condition 返回轮转条件
func (a *Appender) Condition() Condition { return a.cond }

// Folder 返回日志目录
func (a *Appender) Folder() string { return a.folder }

// Pointer 返回最新指针路径
func (a *Appender) Pointer() string { return a.pointer }

// Path 返回当前活动文件的路径
func (a *Appender) Path() string { return a.path }

// Size 返回当前活动文件已写入的字节数（含未落盘的缓冲）
func (a *Appender) Size() int64 { return a.size }

// PeriodStart 返回当前活动文件所属周期的起点
func (a *Appender) PeriodStart() time.Time { return a.periodStart }

// report 通过回调上报非致命错误，回调 panic 被隔离
func (a *Appender) report(err error) {
	if err == nil || a.onError == nil {
		return
	}
	defer func() { recover() }() //nolint:errcheck // recover 返回值无需检查
	a.onError(err)
}
