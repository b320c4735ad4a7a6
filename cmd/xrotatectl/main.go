// xrotatectl 是 xrotate 轮转引擎的命令行工具。
//
// 用法:
//
//	xrotatectl <命令> [命令参数]
//
// 命令:
//
//	run      把标准输入逐行写入轮转文件
//	ls       列出数据文件（旧的在前），* 标记最新指针指向的活动文件
//	prune    离线执行保留策略
//	next     打印当前周期起点和下一个轮转边界
//	help     显示帮助信息
//
// run 命令的信号:
//
//	SIGHUP                    立即轮转一次
//	SIGINT、SIGTERM、SIGQUIT  刷新缓冲并退出
//
// 观测:
//
//	run 结束时把轮转和清理的次数（按结果分类）写入诊断日志（info 级别）。
//	追踪 span 交给全局 TracerProvider，未注册时不导出。
//
// 退出码:
//
//	0: 成功
//	1: 执行失败
//	2: 参数或配置错误
//
// 示例:
//
//	myapp | xrotatectl run -d /var/log/myapp -p myapp.log --period daily --max-files 7
//	xrotatectl run -c /etc/xroll/config.yaml --watch
//	xrotatectl ls -d /var/log/myapp -p myapp.log
//	xrotatectl prune -d /var/log/myapp -p myapp.log --max-files 3 --dry-run
//	xrotatectl next --period hourly --utc
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息，可通过 -ldflags "-X main.Version=1.0.0" 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用
func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xrotatectl",
		Usage:     "按周期和大小轮转日志文件",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands:  createCommands(),
		// 由 run 统一映射退出码，不让 urfave/cli 直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				_, _ = fmt.Fprintln(stderr, err)
			}
		},
	}
}

// run 执行命令并返回退出码
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := createApp(stdin, stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		_, _ = fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		// flag 解析器已输出错误详情
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}
