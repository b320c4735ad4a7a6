package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xroll/pkg/config/xconf"
	"github.com/omeyang/xroll/pkg/lifecycle/xrun"
	"github.com/omeyang/xroll/pkg/observability/xlog"
	"github.com/omeyang/xroll/pkg/observability/xrotate"
)

// errInputClosed 标准输入读完，run 正常结束
var errInputClosed = errors.New("input closed")

// readBufferSize 读取标准输入的缓冲大小，更长的行分多次读取但只写入一次
const readBufferSize = 64 << 10

// cmdRun 执行 run 命令
func cmdRun(ctx context.Context, cmd *cli.Command) error {
	cfg, conf, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("watch") && conf == nil {
		return usagef("--watch requires --config")
	}
	interval := cmd.Duration("flush-interval")
	if interval <= 0 {
		return usagef("--flush-interval must be positive, got %s", interval)
	}

	logger, cleanup, err := xlog.New().
		SetOutput(cmd.Root().ErrWriter).
		SetFormat(cmd.String("log-format")).
		SetLevelString(initialLevel(cmd, conf)).
		Build()
	if err != nil {
		return &usageError{err: err}
	}
	defer func() { _ = cleanup() }()

	metrics := newRunMetrics()
	observer, err := metrics.observer()
	if err != nil {
		return err
	}
	defer func() {
		ctx := context.Background()
		if counts, err := metrics.counts(ctx); err != nil {
			logger.Warn(ctx, "collect metrics", xlog.Err(err))
		} else if len(counts) > 0 {
			logger.Info(ctx, "rotation summary", summaryAttrs(counts)...)
		}
		_ = metrics.shutdown(ctx)
	}()
	rotator, err := xrotate.Open(cfg,
		xrotate.WithOnError(xlog.RotationErrorHandler(logger)),
		xrotate.WithObserver(observer),
	)
	if err != nil {
		return asUsage(err)
	}
	defer func() {
		if err := rotator.Close(); err != nil && !errors.Is(err, xrotate.ErrClosed) {
			logger.Warn(context.Background(), "close rotator", xlog.Err(err))
		}
	}()

	logger.Info(ctx, "rotation started",
		xlog.Path(filepath.Join(cfg.Folder, cfg.Prefix)),
		slog.String("period", cfg.Period),
		slog.String("max_size", cfg.MaxSize),
		slog.Int("max_files", cfg.MaxFiles),
	)

	services := []func(context.Context) error{
		pumpLines(cmd.Root().Reader, rotator, func(err error) {
			logger.Warn(context.Background(), "write failed", xlog.Err(err))
		}),
		xrun.Ticker(interval, false, func(ctx context.Context) error {
			if err := rotator.Flush(); err != nil && !errors.Is(err, xrotate.ErrClosed) {
				logger.Warn(ctx, "flush failed", xlog.Err(err))
			}
			return nil
		}),
		xrun.OnSignal(func(ctx context.Context, _ os.Signal) error {
			logger.Info(ctx, "manual rotation requested")
			if err := rotator.Rotate(); err != nil {
				logger.Warn(ctx, "manual rotation failed", xlog.Err(err), xlog.Stage(string(xrotate.StageOf(err))))
			}
			return nil
		}, syscall.SIGHUP),
	}
	if cmd.Bool("watch") {
		w, err := xconf.Watch(conf, reloadHandler(cmd, logger, cfg))
		if err != nil {
			return err
		}
		services = append(services, w.Run)
	}

	err = xrun.RunWithOptions(ctx,
		[]xrun.Option{xrun.WithLogger(logger), xrun.WithName("xrotatectl")},
		services...,
	)
	switch {
	case err == nil, errors.Is(err, errInputClosed):
		logger.Debug(context.Background(), "input closed")
		return nil
	case errors.Is(err, xrun.ErrSignal):
		logger.Info(context.Background(), "stopping", slog.String("reason", err.Error()))
		return nil
	default:
		return err
	}
}

// initialLevel 诊断日志级别：--log-level 优先，其次配置文件的 log_level，默认 info
func initialLevel(cmd *cli.Command, conf xconf.Config) string {
	if level := cmd.String("log-level"); level != "" {
		return level
	}
	if conf != nil {
		if level := conf.Client().String("log_level"); level != "" {
			return level
		}
	}
	return "info"
}

// reloadHandler 配置重载回调：热更新 log_level，轮转参数变化只提示需要重启
func reloadHandler(cmd *cli.Command, logger xlog.LoggerWithLevel, applied xrotate.Config) xconf.WatchFunc {
	return func(c xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		if !cmd.IsSet("log-level") {
			if s := c.Client().String("log_level"); s != "" {
				level, err := xlog.ParseLevel(s)
				if err != nil {
					logger.Warn(ctx, "invalid log_level in config", xlog.Err(err))
				} else if level != logger.GetLevel() {
					logger.SetLevel(level)
					logger.Info(ctx, "log level updated", slog.String("level", level.String()))
				}
			}
		}

		var next xrotate.Config
		if err := c.Unmarshal("rotation", &next); err != nil {
			logger.Warn(ctx, "invalid rotation section", xlog.Err(err))
			return
		}
		applyFlags(cmd, &next)
		if next != applied {
			logger.Warn(ctx, "rotation settings changed, restart to apply")
		}
	}
}

// pumpLines 把 r 逐行写入 w，r 读完时返回 errInputClosed
//
// 读取在独立 goroutine 中进行，ctx 取消时服务立即返回，阻塞中的读取随进程退出。
// 写入失败交给 onWriteErr 并继续，w 已关闭时停止。
func pumpLines(r io.Reader, w io.Writer, onWriteErr func(error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() { done <- copyLines(w, r, onWriteErr) }()
		select {
		case err := <-done:
			if err != nil {
				return err
			}
			return errInputClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// copyLines 每行一次 Write，保证轮转不会把一行拆到两个文件
func copyLines(w io.Writer, r io.Reader, onWriteErr func(error)) error {
	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			if _, err := w.Write(line); err != nil {
				if errors.Is(err, xrotate.ErrClosed) {
					return err
				}
				onWriteErr(err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
