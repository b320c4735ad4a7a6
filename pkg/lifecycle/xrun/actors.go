package xrun

import (
	"context"
	"os"
	"os/signal"
	"time"
)

// Ticker 返回按 interval 周期执行 fn 的服务，fn 出错时服务返回该错误
//
// immediate 为 true 时启动后先执行一次。ctx 取消时返回 ctx.Err()。
//
//	g.Go(xrun.Ticker(time.Second, false, func(ctx context.Context) error {
//	    return rotator.Flush()
//	}))
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// OnSignal 返回每收到一次 signals 中的信号就执行 fn 的服务
//
// 用于 SIGHUP 触发手动轮转等场景。fn 出错时服务返回该错误，ctx 取消时返回 ctx.Err()。
// signals 为空时只等待 ctx 取消。
func OnSignal(fn func(ctx context.Context, sig os.Signal) error, signals ...os.Signal) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		if len(signals) == 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		defer signal.Stop(ch)

		for {
			select {
			case sig := <-ch:
				if err := fn(ctx, sig); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// WaitForDone 返回只等待 ctx 取消的服务，用于保持 Group 运行
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}
