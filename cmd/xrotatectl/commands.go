package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xroll/pkg/config/xconf"
	"github.com/omeyang/xroll/pkg/observability/xrotate"
)

// usageError 参数或配置错误，退出码 2
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// asUsage 配置校验错误转为 usageError，其他错误原样返回
func asUsage(err error) error {
	if err != nil && errors.Is(err, xrotate.ErrInvalidConfig) {
		return &usageError{err: err}
	}
	return err
}

// onUsageError flag 解析失败时统一转为 usageError
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{err: err}
}

// isCLIUsageError 判断是否为 urfave/cli 自身产生的用法错误（如未知命令）
func isCLIUsageError(err error) bool {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"flag provided but not defined", "No help topic", "Required flag"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// 创建所有子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		createRunCommand(),
		createListCommand(),
		createPruneCommand(),
		createNextCommand(),
	}
}

// locationFlags 定位数据文件的公共 flag，每个命令各持一份
func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件（YAML/JSON），轮转参数位于 rotation 段",
		},
		&cli.StringFlag{
			Name:    "folder",
			Aliases: []string{"d"},
			Usage:   "日志目录",
		},
		&cli.StringFlag{
			Name:    "prefix",
			Aliases: []string{"p"},
			Usage:   "文件名前缀，同时是最新指针的名字",
		},
	}
}

// rotationFlags run 命令的轮转参数，显式指定时覆盖配置文件
func rotationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "period", Usage: "轮转周期：none/minutely/hourly/daily"},
		&cli.StringFlag{Name: "max-size", Usage: "单文件大小上限，如 100MiB"},
		&cli.IntFlag{Name: "max-files", Usage: "保留的数据文件数（含活动文件），0 不限制"},
		&cli.StringFlag{Name: "pointer", Usage: "最新指针方式：symlink/file"},
		&cli.BoolFlag{Name: "utc", Usage: "按 UTC 计算周期边界和时间戳"},
		&cli.StringFlag{Name: "backend", Usage: "轮转后端：rolling/lumberjack"},
		&cli.StringFlag{Name: "buffer-size", Usage: "写缓冲大小，如 64KiB"},
		&cli.StringFlag{Name: "file-mode", Usage: "新建文件的八进制权限，如 0640"},
	}
}

// createRunCommand 创建 run 子命令
func createRunCommand() *cli.Command {
	flags := append(locationFlags(), rotationFlags()...)
	flags = append(flags,
		&cli.DurationFlag{Name: "flush-interval", Usage: "缓冲刷新间隔", Value: time.Second},
		&cli.BoolFlag{Name: "watch", Usage: "监视配置文件，热更新 log_level"},
		&cli.StringFlag{Name: "log-level", Usage: "诊断日志级别：debug/info/warn/error"},
		&cli.StringFlag{Name: "log-format", Usage: "诊断日志格式：text/json", Value: "text"},
	)
	return &cli.Command{
		Name:         "run",
		Usage:        "把标准输入逐行写入轮转文件",
		Flags:        flags,
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdRun(ctx, cmd)
		},
	}
}

// createListCommand 创建 ls 子命令
func createListCommand() *cli.Command {
	return &cli.Command{
		Name:         "ls",
		Usage:        "列出数据文件，* 标记活动文件",
		Flags:        locationFlags(),
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return cmdList(cmd.Root().Writer, xrotate.OSFS(), cfg.Folder, cfg.Prefix)
		},
	}
}

// createPruneCommand 创建 prune 子命令
func createPruneCommand() *cli.Command {
	flags := append(locationFlags(),
		&cli.IntFlag{Name: "max-files", Usage: "保留的数据文件数（含活动文件），默认取配置文件"},
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "只打印将被删除的文件"},
	)
	return &cli.Command{
		Name:         "prune",
		Usage:        "离线执行保留策略",
		Flags:        flags,
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.MaxFiles == 0 {
				return usagef("--max-files is required")
			}
			return cmdPrune(cmd.Root().Writer, xrotate.OSFS(), cfg.Folder, cfg.Prefix, cfg.MaxFiles, cmd.Bool("dry-run"))
		},
	}
}

// createNextCommand 创建 next 子命令
func createNextCommand() *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "打印当前周期起点和下一个轮转边界",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "period", Usage: "轮转周期：minutely/hourly/daily", Value: "daily"},
			&cli.BoolFlag{Name: "utc", Usage: "按 UTC 计算"},
			&cli.StringFlag{Name: "at", Usage: "参考时间（RFC 3339），默认当前时间"},
		},
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			period, err := xrotate.ParsePeriod(cmd.String("period"))
			if err != nil {
				return &usageError{err: err}
			}
			now := time.Now()
			if at := cmd.String("at"); at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return usagef("--at: %w", err)
				}
			}
			loc := time.Local
			if cmd.Bool("utc") {
				loc = time.UTC
			}
			return cmdNext(cmd.Root().Writer, period, now, loc)
		},
	}
}

// resolveConfig 合并配置文件的 rotation 段和显式指定的 flag
//
// 返回的 xconf.Config 在未指定 --config 时为 nil。
func resolveConfig(cmd *cli.Command) (xrotate.Config, xconf.Config, error) {
	var (
		cfg  xrotate.Config
		conf xconf.Config
	)
	if path := cmd.String("config"); path != "" {
		var err error
		if conf, err = xconf.New(path); err != nil {
			return cfg, nil, &usageError{err: err}
		}
		if err := conf.Unmarshal("rotation", &cfg); err != nil {
			return cfg, nil, &usageError{err: err}
		}
	}
	applyFlags(cmd, &cfg)
	if cfg.Folder == "" {
		return cfg, nil, usagef("--folder is required")
	}
	if cfg.Prefix == "" {
		return cfg, nil, usagef("--prefix is required")
	}
	return cfg, conf, nil
}

// applyFlags 用显式指定的 flag 覆盖 cfg，命令没有定义的 flag 被跳过
func applyFlags(cmd *cli.Command, cfg *xrotate.Config) {
	strs := map[string]*string{
		"folder":      &cfg.Folder,
		"prefix":      &cfg.Prefix,
		"period":      &cfg.Period,
		"max-size":    &cfg.MaxSize,
		"pointer":     &cfg.Pointer,
		"backend":     &cfg.Backend,
		"buffer-size": &cfg.BufferSize,
		"file-mode":   &cfg.FileMode,
	}
	for name, field := range strs {
		if hasFlag(cmd, name) && cmd.IsSet(name) {
			*field = cmd.String(name)
		}
	}
	if hasFlag(cmd, "max-files") && cmd.IsSet("max-files") {
		cfg.MaxFiles = cmd.Int("max-files")
	}
	if hasFlag(cmd, "utc") && cmd.IsSet("utc") {
		cfg.UTC = cmd.Bool("utc")
	}
}

func hasFlag(cmd *cli.Command, name string) bool {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

// writef 写输出，忽略写错误（标准输出关闭时无处可报）
func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
