package xrotate

import (
	"errors"
	"fmt"
)

// 配置校验错误
//
// 所有配置错误都包装 [ErrInvalidConfig]，可统一用 errors.Is 判断。
var (
	// ErrInvalidConfig 配置无效（构造期致命错误）
	ErrInvalidConfig = errors.New("xrotate: invalid config")

	// ErrEmptyFolder 目录为空
	ErrEmptyFolder = fmt.Errorf("%w: folder is required", ErrInvalidConfig)

	// ErrEmptyPrefix 文件名前缀为空
	ErrEmptyPrefix = fmt.Errorf("%w: prefix is required", ErrInvalidConfig)

	// ErrInvalidPrefix 前缀必须是单个路径段（不含分隔符、不能是 . 或 ..）
	ErrInvalidPrefix = fmt.Errorf("%w: invalid prefix", ErrInvalidConfig)

	// ErrInvalidMaxFiles MaxFiles 值无效（必须在 0~1024 范围内）
	ErrInvalidMaxFiles = fmt.Errorf("%w: invalid max files", ErrInvalidConfig)

	// ErrInvalidMaxSize MaxSize 不能为负数
	ErrInvalidMaxSize = fmt.Errorf("%w: invalid max size", ErrInvalidConfig)

	// ErrInvalidPeriod 未知的轮转周期
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period", ErrInvalidConfig)

	// ErrInvalidFileMode FileMode 包含非权限位（仅允许低 9 位 0000~0777）
	ErrInvalidFileMode = fmt.Errorf("%w: invalid file mode", ErrInvalidConfig)

	// ErrInvalidPointer 未知的最新指针类型
	ErrInvalidPointer = fmt.Errorf("%w: invalid pointer kind", ErrInvalidConfig)

	// ErrInvalidBackend 未知的轮转后端
	ErrInvalidBackend = fmt.Errorf("%w: invalid backend", ErrInvalidConfig)

	// ErrEmptyFilename lumberjack 文件名为空
	ErrEmptyFilename = fmt.Errorf("%w: filename is required", ErrInvalidConfig)

	// ErrInvalidMaxBackups lumberjack MaxBackups 值无效
	ErrInvalidMaxBackups = fmt.Errorf("%w: invalid max backups", ErrInvalidConfig)

	// ErrInvalidMaxAge lumberjack MaxAgeDays 值无效
	ErrInvalidMaxAge = fmt.Errorf("%w: invalid max age", ErrInvalidConfig)

	// ErrNoCleanupPolicy lumberjack 的 MaxBackups 和 MaxAgeDays 不能同时为 0
	ErrNoCleanupPolicy = fmt.Errorf("%w: no cleanup policy", ErrInvalidConfig)
)

// 运行期错误
var (
	// ErrNameExhausted 同一秒内的归档名全部被占用（已尝试 MaxNameAttempts 个后缀）
	ErrNameExhausted = errors.New("xrotate: archive name exhausted")

	// ErrNoWritableFile 轮转失败且无法恢复任何可写文件
	ErrNoWritableFile = errors.New("xrotate: no writable file")

	// ErrClosed 轮转器已关闭
	ErrClosed = errors.New("xrotate: rotator is closed")
)

// Stage 标识轮转流程中的步骤
type Stage string

// 轮转步骤
const (
	StageClose Stage = "close"
	StageSeal  Stage = "seal"
	StageLink  Stage = "link"
	StagePrune Stage = "prune"
	StageOpen  Stage = "open"
)

// RotationError 轮转某一步骤失败
//
// Seal 失败时轮转被中止并恢复原文件；Link/Prune 失败不影响后续写入，
// 仅通过 OnError 回调上报。
type RotationError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *RotationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("xrotate: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("xrotate: %s %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap 返回底层错误
func (e *RotationError) Unwrap() error {
	return e.Err
}

// StageOf 返回 err 链中第一个 RotationError 的步骤，没有则返回空字符串
func StageOf(err error) Stage {
	var re *RotationError
	if errors.As(err, &re) {
		return re.Stage
	}
	return ""
}
