// Package xrun 基于 errgroup 的进程生命周期管理。
//
// 任一服务返回错误、调用 Cancel 或收到终止信号时，所有服务的 ctx 被取消，
// 服务应监听 ctx.Done() 并退出。
//
//	err := xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithLogger(logger)},
//		pump,
//		xrun.Ticker(time.Second, false, flush),
//		xrun.OnSignal(rotate, syscall.SIGHUP),
//		watcher.Run,
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常退出
//	}
//
// # 退出原因
//
// Wait 返回第一个非 nil 错误。Group 被取消导致的 context.Canceled 不算错误；
// Cancel(cause) 的 cause 会被返回，终止信号对应 *SignalError。
package xrun
