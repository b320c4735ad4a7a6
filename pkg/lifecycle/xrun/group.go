package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xroll/pkg/observability/xlog"
)

// Group 基于 errgroup 的服务组
//
// 任一服务返回错误或调用 Cancel 时，所有服务的 ctx 被取消。
// Go、GoWithName、Cancel 可并发调用，Wait 只调用一次。
//
//	g, ctx := xrun.NewGroup(ctx)
//	g.GoWithName("writer", pump)
//	g.GoWithName("flusher", xrun.Ticker(time.Second, false, flush))
//	err := g.Wait()
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 ctx 在任一服务出错或 Cancel 时取消
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动服务 fn，fn 应在 ctx 取消后尽快返回
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并记录服务启停日志
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		log := g.opts.logger.With(slog.String("group", g.opts.name), slog.String("service", name))
		log.Debug(g.ctx, "service starting")
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(context.WithoutCancel(g.ctx), "service exited with error", xlog.Err(err))
		} else {
			log.Debug(context.WithoutCancel(g.ctx), "service stopped")
		}
		return err
	})
}

// Wait 等待所有服务返回
//
// 返回第一个非 nil 错误。Group 被取消时过滤 context.Canceled，
// 如果 Cancel 带有原因（如 *SignalError）则返回该原因。
// 服务自身返回的 context.Canceled（Group 未取消）原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := g.explicitCause()

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() == nil {
			return err
		}
		return cause
	}
	if err == nil {
		return cause
	}
	return err
}

// explicitCause 返回 Cancel 设置的非 Canceled 原因
func (g *Group) explicitCause() error {
	if g.causeCtx.Err() == nil {
		return nil
	}
	if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// Cancel 取消所有服务，cause 非 nil 时由 Wait 返回
//
// cause 不应包装 context.Canceled，否则会被 Wait 当作普通取消过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 ctx
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 运行 services 直到全部返回、任一出错或收到终止信号
//
// 收到信号时返回 *SignalError。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，支持选项
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(g.waitSignal(signals))
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

// waitSignal 收到第一个终止信号后以 *SignalError 取消 Group
func (g *Group) waitSignal(signals []os.Signal) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		defer signal.Stop(ch)

		select {
		case sig := <-ch:
			g.opts.logger.Info(ctx, "received signal",
				slog.String("group", g.opts.name),
				slog.String("signal", sig.String()),
			)
			g.cancel(&SignalError{Signal: sig})
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
