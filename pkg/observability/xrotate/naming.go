package xrotate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"
)

const (
	// MaxNameAttempts 同一秒内生成归档名的最大尝试次数（含无后缀的首个名字）
	//
	// 依次尝试 <stamp>、<stamp>.1 … <stamp>.15，全部被占用时返回 ErrNameExhausted。
	MaxNameAttempts = 16

	// StampLayout 归档名中的时间戳格式：YYYYMMDD.HHMMSS
	StampLayout = "20060102.150405"
)

// errNameTaken 候选名已被占用，触发下一个后缀
var errNameTaken = errors.New("xrotate: archive name taken")

// ArchiveName 返回归档文件路径：folder/prefix.YYYYMMDD.HHMMSS[.n]
//
// ts 按其自身时区格式化，调用方负责先转换到条件配置的时区。
// n 为 0 时不带后缀。
func ArchiveName(folder, prefix string, ts time.Time, n int) string {
	name := prefix + "." + ts.Format(StampLayout)
	if n > 0 {
		name += "." + strconv.Itoa(n)
	}
	return filepath.Join(folder, name)
}

// LatestPointerName 返回最新指针路径 folder/prefix，在 Appender 生命周期内不变
func LatestPointerName(folder, prefix string) string {
	return filepath.Join(folder, prefix)
}

// Archive 解析后的归档文件名
type Archive struct {
	// Name 文件名（不含目录）
	Name string
	// Stamp 时间戳部分，YYYYMMDD.HHMMSS
	Stamp string
	// Index 同秒冲突后缀，无后缀为 0
	Index int
}

// Time 按 loc 解析时间戳
func (a Archive) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(StampLayout, a.Stamp, loc)
}

// Before 按时间先后比较；时间戳字段定宽补零，字典序即时间序，后缀按数值比较
func (a Archive) Before(b Archive) bool {
	if a.Stamp != b.Stamp {
		return a.Stamp < b.Stamp
	}
	return a.Index < b.Index
}

// ParseArchiveName 判断 name 是否为 prefix 的归档文件名
//
// 最新指针本身（name == prefix）不是归档。
func ParseArchiveName(prefix, name string) (Archive, bool) {
	rest, ok := strings.CutPrefix(name, prefix+".")
	if !ok || len(rest) < len(StampLayout) {
		return Archive{}, false
	}
	stamp := rest[:len(StampLayout)]
	if !isStamp(stamp) {
		return Archive{}, false
	}
	a := Archive{Name: name, Stamp: stamp}
	suffix := rest[len(StampLayout):]
	if suffix == "" {
		return a, true
	}
	digits, ok := strings.CutPrefix(suffix, ".")
	if !ok || digits == "" || digits[0] == '0' || !allDigits(digits) || len(digits) > 6 {
		return Archive{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Archive{}, false
	}
	a.Index = n
	return a, true
}

func isStamp(s string) bool {
	return len(s) == 15 && s[8] == '.' && allDigits(s[:8]) && allDigits(s[9:])
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// claimFunc 尝试占用 path；已被占用时返回 errNameTaken，其它错误终止尝试
type claimFunc func(path string) error

// claimArchiveName 为 ts 生成一个未被占用的归档名并交由 claim 占用
//
// 候选名依次为无后缀、.1、.2 …，最多 MaxNameAttempts 个，全部被占用时返回 ErrNameExhausted。
// 仅 errNameTaken 会换下一个候选名，其它错误立即返回。
func claimArchiveName(folder, prefix string, ts time.Time, claim claimFunc) (string, error) {
	attempt := 0
	path, err := retry.NewWithData[string](
		retry.Attempts(MaxNameAttempts),
		retry.DelayType(func(uint, error, retry.DelayContext) time.Duration { return 0 }),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errNameTaken) }),
		retry.LastErrorOnly(true),
	).Do(func() (string, error) {
		candidate := ArchiveName(folder, prefix, ts, attempt)
		attempt++
		if err := claim(candidate); err != nil {
			return "", err
		}
		return candidate, nil
	})
	if err != nil {
		if errors.Is(err, errNameTaken) {
			return "", fmt.Errorf("%w: %s (tried %d names)",
				ErrNameExhausted, ArchiveName(folder, prefix, ts, 0), MaxNameAttempts)
		}
		return "", err
	}
	return path, nil
}
