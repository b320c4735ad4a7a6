package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xroll/pkg/observability/xrotate"
)

// ReplaceAttrFunc 属性替换函数类型
//
// 用于字段重命名、脱敏、过滤。返回空 Key 的 Attr 时该属性被移除。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// ErrBuilderUsed 同一个 Builder 重复调用 Build
var ErrBuilderUsed = errors.New("xlog: builder already built")

// Builder 日志配置构建器
//
// 遇到第一个配置错误后，后续 Set 调用不再生效，Build 返回该错误。
// Builder 只能 Build 一次。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	replaceAttr ReplaceAttrFunc
	rotator     xrotate.Rotator
	onError     func(error)
	built       bool
	err         error
}

// New 创建配置构建器，默认输出到 stderr、Info 级别、text 格式
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("xlog: nil output")
		return b
	}
	b.output = w
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	if b.err != nil {
		return b
	}
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	if b.err != nil {
		return b
	}
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空字符串视为 text
func (b *Builder) SetFormat(format string) *Builder {
	if b.err != nil {
		return b
	}
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.err = fmt.Errorf("xlog: unknown format %q", format)
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetRotation 把日志写入按周期和大小轮转的文件
//
// 参数与 [xrotate.NewRolling] 相同。未通过 opts 指定 OnError 时，
// 轮转错误交给 [Builder.SetOnError] 设置的回调。
// 文件在 Build 返回的 cleanup 中关闭。
func (b *Builder) SetRotation(folder, prefix string, cond xrotate.Condition, maxFiles int, opts ...xrotate.Option) *Builder {
	if b.err != nil {
		return b
	}
	all := append([]xrotate.Option{xrotate.WithOnError(b.reportError)}, opts...)
	rotator, err := xrotate.NewRolling(folder, prefix, cond, maxFiles, all...)
	if err != nil {
		b.err = fmt.Errorf("xlog: rotation: %w", err)
		return b
	}
	return b.SetRotator(rotator)
}

// SetRotator 把日志写入已创建的 Rotator（如 [xrotate.Open] 的结果），cleanup 时关闭
func (b *Builder) SetRotator(r xrotate.Rotator) *Builder {
	if b.err != nil {
		return b
	}
	if r == nil {
		b.err = errors.New("xlog: nil rotator")
		return b
	}
	if b.rotator != nil {
		_ = b.rotator.Close()
	}
	b.rotator = r
	b.output = r
	return b
}

// SetOnError 设置内部错误回调
//
// 写日志失败（磁盘满、权限问题）和 SetRotation 创建的轮转器上报的错误都会调用此回调。
// 回调在写入路径同步执行，应保持轻量；回调 panic 被隔离。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// reportError 转发给 onError，允许 SetOnError 在 SetRotation 之后调用
func (b *Builder) reportError(err error) {
	if fn := b.onError; fn != nil {
		fn(err)
	}
}

// SetReplaceAttr 设置属性替换函数
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例，同时支持动态级别控制
//   - func() error: 清理函数，关闭轮转文件，可重复调用
//   - error: 配置错误
//
// 返回错误时已创建的轮转器会被关闭。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.built {
		return nil, nil, ErrBuilderUsed
	}
	b.built = true
	if b.err != nil {
		if b.rotator != nil {
			_ = b.rotator.Close()
		}
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	if b.replaceAttr != nil {
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}

	logger := &xlogger{
		handler:        handler,
		levelVar:       b.levelVar,
		onError:        b.reportError,
		errorCount:     new(atomic.Uint64),
		addSource:      b.addSource,
		inErrorHandler: new(atomic.Bool),
	}
	return logger, b.cleanup(), nil
}

func (b *Builder) cleanup() func() error {
	var once sync.Once
	var err error
	rotator := b.rotator
	return func() error {
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
