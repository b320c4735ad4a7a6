package xrotate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// 轮转后端
const (
	// BackendRolling 按周期和大小轮转，维护最新指针（默认）
	BackendRolling = "rolling"

	// BackendLumberjack 基于 lumberjack 的按大小轮转
	BackendLumberjack = "lumberjack"
)

// Config 轮转器的文件配置，字段带 koanf 标签，可直接由 xconf 反序列化
//
// 示例（YAML）：
//
//	backend: rolling
//	folder: /var/log/app
//	prefix: app.log
//	period: daily
//	max_size: 100MiB
//	max_files: 7
//	pointer: symlink
//	file_mode: "0640"
type Config struct {
	// Backend 轮转后端：rolling（默认）或 lumberjack
	Backend string `koanf:"backend"`

	// Folder 日志目录
	Folder string `koanf:"folder"`

	// Prefix 文件名前缀
	Prefix string `koanf:"prefix"`

	// Period 轮转周期：none/minutely/hourly/daily
	Period string `koanf:"period"`

	// MaxSize 单文件大小上限，支持 "10MiB"、"500KB"、"1048576" 等写法，空表示不限制
	MaxSize string `koanf:"max_size"`

	// MaxFiles 保留的数据文件数量（含活动文件），0 表示不限制
	MaxFiles int `koanf:"max_files"`

	// Pointer 最新指针方式：symlink（默认）或 file
	Pointer string `koanf:"pointer"`

	// UTC 为 true 时按 UTC 计算周期边界和归档时间戳，否则使用本地时区
	UTC bool `koanf:"utc"`

	// BufferSize 写缓冲大小，写法同 MaxSize，空表示不缓冲
	BufferSize string `koanf:"buffer_size"`

	// FileMode 八进制文件权限，如 "0640"，空表示 DefaultFileMode
	FileMode string `koanf:"file_mode"`
}

// ParseSize 解析人类可读的字节数，空字符串返回 0
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows int64", s)
	}
	return int64(n), nil
}

// ParseFileMode 解析八进制文件权限，空字符串返回 DefaultFileMode
func ParseFileMode(s string) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFileMode, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFileMode, s)
	}
	mode := os.FileMode(v)
	if mode&^os.FileMode(0o777) != 0 {
		return 0, fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed", ErrInvalidFileMode, mode)
	}
	return mode, nil
}

// Condition 返回配置对应的轮转条件
func (c Config) Condition() (Condition, error) {
	period, err := ParsePeriod(c.Period)
	if err != nil {
		return Condition{}, err
	}
	size, err := ParseSize(c.MaxSize)
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %q: %w", ErrInvalidMaxSize, c.MaxSize, err)
	}
	cond := Condition{Period: period, MaxSize: size}
	if c.UTC {
		cond.Location = time.UTC
	}
	return cond, cond.Validate()
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Folder == "" {
		return ErrEmptyFolder
	}
	if c.Prefix == "" {
		return ErrEmptyPrefix
	}
	if c.MaxFiles < 0 || c.MaxFiles > MaxFilesLimit {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxFiles, c.MaxFiles, MaxFilesLimit)
	}
	cond, err := c.Condition()
	if err != nil {
		return err
	}
	if _, err := ParsePointerKind(c.Pointer); err != nil {
		return err
	}
	if _, err := ParseSize(c.BufferSize); err != nil {
		return fmt.Errorf("%w: buffer size %q: %w", ErrInvalidConfig, c.BufferSize, err)
	}
	if _, err := ParseFileMode(c.FileMode); err != nil {
		return err
	}

	switch c.backend() {
	case BackendRolling:
		return nil
	case BackendLumberjack:
		if cond.Period != PeriodNone {
			return fmt.Errorf("%w: lumberjack backend only rotates by size, got period %s", ErrInvalidPeriod, cond.Period)
		}
		if c.MaxFiles == 1 {
			return fmt.Errorf("%w: lumberjack backend needs max_files 0 or >= 2", ErrInvalidMaxFiles)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
}

func (c Config) backend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b == "" {
		return BackendRolling
	}
	return b
}

// Open 按配置创建 Rotator
//
// opts 在配置项之后应用，可覆盖配置（如注入 WithOnError、WithObserver）。
// lumberjack 后端只使用 opts 中的 OnError、Observer 和 FileMode。
func Open(cfg Config, opts ...Option) (Rotator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cond, _ := cfg.Condition()
	pointer, _ := ParsePointerKind(cfg.Pointer)
	bufSize, _ := ParseSize(cfg.BufferSize)
	mode, _ := ParseFileMode(cfg.FileMode)
	if bufSize > maxBufferSize {
		return nil, fmt.Errorf("%w: buffer size %d, want 0~%d", ErrInvalidConfig, bufSize, maxBufferSize)
	}

	base := []Option{WithPointer(pointer), WithBufferSize(int(bufSize)), WithFileMode(mode)}
	all := append(base, opts...)

	if cfg.backend() == BackendLumberjack {
		return openLumberjack(cfg, cond, all)
	}
	return NewRolling(cfg.Folder, cfg.Prefix, cond, cfg.MaxFiles, all...)
}

// openLumberjack 把通用配置映射到 lumberjack：MaxFiles 含活动文件，备份数为 MaxFiles-1
func openLumberjack(cfg Config, cond Condition, opts []Option) (Rotator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	sizeMB := DefaultMaxSizeMB
	if cond.MaxSize > 0 {
		sizeMB = int((cond.MaxSize + (1 << 20) - 1) >> 20)
	}
	// MaxFiles 为 0 时不清理：lumberjack 在 MaxBackups 和 MaxAge 都为 0 时保留全部备份
	backups := 0
	if cfg.MaxFiles > 0 {
		backups = cfg.MaxFiles - 1
	}

	return NewLumberjack(filepath.Join(cfg.Folder, cfg.Prefix),
		WithMaxSizeMB(sizeMB),
		WithMaxBackups(backups),
		WithMaxAge(0),
		withKeepAllBackups(cfg.MaxFiles == 0),
		WithLocalTime(!cfg.UTC),
		WithLumberjackFileMode(o.fileMode),
		WithLumberjackOnError(o.onError),
		WithLumberjackObserver(o.observer),
	)
}
