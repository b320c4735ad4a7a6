package xlog

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// 常用属性 Key
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// KeyPath 文件路径
	KeyPath = "path"
	// KeyStage 轮转失败的步骤（close/seal/open/link/prune）
	KeyStage = "stage"
	// KeyTrigger 轮转触发原因（period/size/manual）
	KeyTrigger = "trigger"
	// KeyBytes 人类可读的字节数
	KeyBytes = "bytes"
)

// Err 创建错误属性，err 为 nil 时返回空属性（被 slog 忽略）
//
//	if err != nil {
//	    logger.Error(ctx, "rotate failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出如 "1.5s"
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Path 创建文件路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Stage 创建轮转步骤属性，空字符串返回空属性
func Stage(stage string) slog.Attr {
	if stage == "" {
		return slog.Attr{}
	}
	return slog.String(KeyStage, stage)
}

// Trigger 创建轮转触发原因属性
func Trigger(trigger string) slog.Attr {
	return slog.String(KeyTrigger, trigger)
}

// Bytes 创建字节数属性，以 IEC 单位输出（如 "10 MiB"）
func Bytes(n int64) slog.Attr {
	if n < 0 {
		return slog.Int64(KeyBytes, n)
	}
	return slog.String(KeyBytes, humanize.IBytes(uint64(n)))
}
