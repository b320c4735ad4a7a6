package xrun

import (
	"context"
	"log/slog"
	"os"
	"syscall"

	"github.com/omeyang/xroll/pkg/observability/xlog"
)

// Option Group 选项
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger: discardLogger{},
		name:   "xrun",
	}
}

// DefaultSignals 默认的终止信号：SIGINT、SIGTERM、SIGQUIT
//
// 不含 SIGHUP，日志进程通常把 SIGHUP 用于手动轮转（见 [OnSignal]）。
// 每次调用返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithLogger 设置记录服务启停的 logger，默认不记录
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，出现在日志的 group 属性中
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run 监听的终止信号，空列表表示 DefaultSignals
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁止 Run 监听终止信号
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}

// discardLogger 丢弃所有日志
type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...slog.Attr) {}
func (discardLogger) Info(context.Context, string, ...slog.Attr) {}
func (discardLogger) Warn(context.Context, string, ...slog.Attr) {}
func (discardLogger) Error(context.Context, string, ...slog.Attr) {}
func (discardLogger) Stack(context.Context, string, ...slog.Attr) {}
func (d discardLogger) With(...slog.Attr) xlog.Logger { return d }
func (d discardLogger) WithGroup(string) xlog.Logger { return d }
