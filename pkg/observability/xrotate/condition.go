package xrotate

import (
	"fmt"
	"strings"
	"time"
)

// Period 按时间轮转的粒度
type Period int

// 支持的轮转周期
const (
	// PeriodNone 不按时间轮转
	PeriodNone Period = iota
	// PeriodMinutely 每分钟整点
	PeriodMinutely
	// PeriodHourly 每小时整点
	PeriodHourly
	// PeriodDaily 每天零点
	PeriodDaily
)

// String 返回周期的配置名
func (p Period) String() string {
	switch p {
	case PeriodNone:
		return "none"
	case PeriodMinutely:
		return "minutely"
	case PeriodHourly:
		return "hourly"
	case PeriodDaily:
		return "daily"
	default:
		return fmt.Sprintf("Period(%d)", int(p))
	}
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (p Period) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口，支持从配置文件直接反序列化
func (p *Period) UnmarshalText(data []byte) error {
	parsed, err := ParsePeriod(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Period) valid() bool {
	return p >= PeriodNone && p <= PeriodDaily
}

// ParsePeriod 解析周期名（大小写不敏感，自动 TrimSpace）
//
// 支持 none/minutely/hourly/daily 及别名 minute/hour/day，空字符串等价于 none。
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PeriodNone, nil
	case "minutely", "minute":
		return PeriodMinutely, nil
	case "hourly", "hour":
		return PeriodHourly, nil
	case "daily", "day":
		return PeriodDaily, nil
	default:
		return PeriodNone, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Condition 轮转条件
//
// 周期与大小任一满足即轮转；两者都未配置时永不轮转（单文件无限增长，合法配置）。
// Condition 是值类型，构造后不可变。
type Condition struct {
	// Period 按时间轮转的粒度，PeriodNone 表示不按时间轮转
	Period Period

	// MaxSize 单文件字节上限，0 表示不按大小轮转
	MaxSize int64

	// Location 计算周期边界和格式化归档时间戳使用的时区，nil 表示 time.Local
	Location *time.Location
}

// WithPeriod 返回设置了周期的副本
func (c Condition) WithPeriod(p Period) Condition {
	c.Period = p
	return c
}

// Daily 每天零点轮转
func (c Condition) Daily() Condition { return c.WithPeriod(PeriodDaily) }

// Hourly 每小时整点轮转
func (c Condition) Hourly() Condition { return c.WithPeriod(PeriodHourly) }

// Minutely 每分钟整点轮转
func (c Condition) Minutely() Condition { return c.WithPeriod(PeriodMinutely) }

// WithMaxSize 返回设置了大小上限的副本
func (c Condition) WithMaxSize(n int64) Condition {
	c.MaxSize = n
	return c
}

// In 返回使用指定时区的副本
func (c Condition) In(loc *time.Location) Condition {
	c.Location = loc
	return c
}

// location 返回生效的时区
func (c Condition) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Validate 校验条件
func (c Condition) Validate() error {
	if !c.Period.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, int(c.Period))
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("%w: got %d, must not be negative", ErrInvalidMaxSize, c.MaxSize)
	}
	return nil
}

// Trigger 触发轮转的原因（位掩码）
type Trigger uint8

// 触发原因
const (
	TriggerNone   Trigger = 0
	TriggerPeriod Trigger = 1 << iota
	TriggerSize
	// TriggerManual 手动调用 Rotate
	TriggerManual
)

// String 返回触发原因，多个原因以 + 连接
func (t Trigger) String() string {
	if t == TriggerNone {
		return "none"
	}
	var parts []string
	if t&TriggerPeriod != 0 {
		parts = append(parts, "period")
	}
	if t&TriggerSize != 0 {
		parts = append(parts, "size")
	}
	if t&TriggerManual != 0 {
		parts = append(parts, "manual")
	}
	return strings.Join(parts, "+")
}

// PeriodKey 将时间映射为周期键
//
// 键是 loc 下民用日期/小时/分钟相对 Unix 纪元的序号，同一周期内的时间键相同。
// 按键比较而非按时长比较，夏令时切换和闰秒都不会造成漂移。
// PeriodNone 恒返回 0。
func PeriodKey(p Period, t time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	switch p {
	case PeriodDaily:
		return day
	case PeriodHourly:
		return day*24 + int64(t.Hour())
	case PeriodMinutely:
		return (day*24+int64(t.Hour()))*60 + int64(t.Minute())
	default:
		return 0
	}
}

// PeriodStart 返回覆盖 t 的周期起点；PeriodNone 原样返回 t
func PeriodStart(p Period, t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, m, d := t.Date()
	switch p {
	case PeriodDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodHourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case PeriodMinutely:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
	default:
		return t
	}
}

// NextBoundary 返回 t 之后的下一个周期起点；PeriodNone 返回零值
func NextBoundary(p Period, t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	start := PeriodStart(p, t, loc)
	y, m, d := start.Date()
	switch p {
	case PeriodDaily:
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case PeriodHourly:
		return time.Date(y, m, d, start.Hour()+1, 0, 0, 0, loc)
	case PeriodMinutely:
		return time.Date(y, m, d, start.Hour(), start.Minute()+1, 0, 0, loc)
	default:
		return time.Time{}
	}
}

// Evaluate 判断在写入 incoming 字节前是否需要轮转，返回触发原因
//
// 纯函数，无副作用：
//   - 周期：now 的周期键严格大于 periodStart 的周期键时触发（时钟回拨不触发）
//   - 大小：currentSize+incoming > MaxSize 时触发，检查在写入前进行，单次写入不会被拆分
//   - 空文件（currentSize == 0）从不轮转，超大的首次写入直接落入空文件
func Evaluate(c Condition, periodStart time.Time, currentSize int64, now time.Time, incoming int) Trigger {
	if currentSize <= 0 {
		return TriggerNone
	}
	var t Trigger
	if c.Period != PeriodNone {
		loc := c.location()
		if PeriodKey(c.Period, now, loc) > PeriodKey(c.Period, periodStart, loc) {
			t |= TriggerPeriod
		}
	}
	if c.MaxSize > 0 && currentSize+int64(incoming) > c.MaxSize {
		t |= TriggerSize
	}
	return t
}

// ShouldRollover 是 Evaluate 的布尔形式
func ShouldRollover(c Condition, periodStart time.Time, currentSize int64, now time.Time, incoming int) bool {
	return Evaluate(c, periodStart, currentSize, now, incoming) != TriggerNone
}
