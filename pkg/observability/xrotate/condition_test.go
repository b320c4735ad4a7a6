package xrotate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Period
// =============================================================================

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input string
		want  Period
	}{
		{"", PeriodNone},
		{"none", PeriodNone},
		{"minutely", PeriodMinutely},
		{"minute", PeriodMinutely},
		{"Hourly", PeriodHourly},
		{" hour ", PeriodHourly},
		{"DAILY", PeriodDaily},
		{"day", PeriodDaily},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePeriod("weekly")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPeriodText(t *testing.T) {
	for _, p := range []Period{PeriodNone, PeriodMinutely, PeriodHourly, PeriodDaily} {
		text, err := p.MarshalText()
		require.NoError(t, err)

		var back Period
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}

	_, err := Period(42).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.Equal(t, "Period(42)", Period(42).String())

	var p Period
	assert.ErrorIs(t, p.UnmarshalText([]byte("fortnightly")), ErrInvalidPeriod)
}

// =============================================================================
// Condition
// =============================================================================

func TestConditionBuilders(t *testing.T) {
	base := Condition{}
	c := base.Daily().WithMaxSize(1024).In(time.UTC)

	assert.Equal(t, PeriodDaily, c.Period)
	assert.Equal(t, int64(1024), c.MaxSize)
	assert.Equal(t, time.UTC, c.Location)
	// 值类型，原值不变
	assert.Equal(t, Condition{}, base)

	assert.Equal(t, PeriodHourly, Condition{}.Hourly().Period)
	assert.Equal(t, PeriodMinutely, Condition{}.Minutely().Period)
	assert.Equal(t, time.Local, Condition{}.location())
}

func TestConditionValidate(t *testing.T) {
	assert.NoError(t, Condition{}.Validate())
	assert.NoError(t, Condition{}.Daily().WithMaxSize(10).Validate())
	assert.ErrorIs(t, Condition{MaxSize: -1}.Validate(), ErrInvalidMaxSize)
	assert.ErrorIs(t, Condition{Period: Period(9)}.Validate(), ErrInvalidPeriod)
}

func TestTriggerString(t *testing.T) {
	assert.Equal(t, "none", TriggerNone.String())
	assert.Equal(t, "period", TriggerPeriod.String())
	assert.Equal(t, "size", TriggerSize.String())
	assert.Equal(t, "manual", TriggerManual.String())
	assert.Equal(t, "period+size", (TriggerPeriod | TriggerSize).String())
}

// =============================================================================
// 周期键
// =============================================================================

func TestPeriodKey(t *testing.T) {
	loc := time.UTC
	t0 := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)
	t1 := time.Date(2024, 3, 11, 0, 0, 0, 0, loc)

	assert.Equal(t, PeriodKey(PeriodDaily, t0, loc)+1, PeriodKey(PeriodDaily, t1, loc))
	assert.Equal(t, PeriodKey(PeriodHourly, t0, loc)+1, PeriodKey(PeriodHourly, t1, loc))
	assert.Equal(t, PeriodKey(PeriodMinutely, t0, loc)+1, PeriodKey(PeriodMinutely, t1, loc))
	assert.Equal(t, int64(0), PeriodKey(PeriodNone, t1, loc))

	// 同一天内键相同
	noon := time.Date(2024, 3, 11, 12, 30, 0, 0, loc)
	assert.Equal(t, PeriodKey(PeriodDaily, t1, loc), PeriodKey(PeriodDaily, noon, loc))
	assert.NotEqual(t, PeriodKey(PeriodHourly, t1, loc), PeriodKey(PeriodHourly, noon, loc))

	// 纪元之前的日期也单调
	before := time.Date(1969, 12, 31, 0, 0, 0, 0, loc)
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, int64(-1), PeriodKey(PeriodDaily, before, loc))
	assert.Equal(t, int64(0), PeriodKey(PeriodDaily, epoch, loc))
}

func TestPeriodKeyUsesLocation(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*3600)
	// UTC 16:30 在 UTC+8 已是次日 00:30
	instant := time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC)
	earlier := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, PeriodKey(PeriodDaily, instant, time.UTC), PeriodKey(PeriodDaily, earlier, time.UTC))
	assert.Equal(t, PeriodKey(PeriodDaily, earlier, shanghai)+1, PeriodKey(PeriodDaily, instant, shanghai))
}

func TestPeriodKeyDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 2024-03-10 是 23 小时的一天，2024-11-03 是 25 小时的一天
	short := time.Date(2024, 3, 10, 0, 0, 0, 0, ny)
	assert.Equal(t, PeriodKey(PeriodDaily, short, ny), PeriodKey(PeriodDaily, short.Add(22*time.Hour+59*time.Minute), ny))
	assert.Equal(t, PeriodKey(PeriodDaily, short, ny)+1, PeriodKey(PeriodDaily, short.Add(23*time.Hour), ny))

	long := time.Date(2024, 11, 3, 0, 0, 0, 0, ny)
	assert.Equal(t, PeriodKey(PeriodDaily, long, ny), PeriodKey(PeriodDaily, long.Add(24*time.Hour+59*time.Minute), ny))
	assert.Equal(t, PeriodKey(PeriodDaily, long, ny)+1, PeriodKey(PeriodDaily, long.Add(25*time.Hour), ny))
}

func TestPeriodStartAndNextBoundary(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 12, 31, 23, 45, 30, 500, loc)

	tests := []struct {
		period    Period
		wantStart time.Time
		wantNext  time.Time
	}{
		{PeriodDaily, time.Date(2024, 12, 31, 0, 0, 0, 0, loc), time.Date(2025, 1, 1, 0, 0, 0, 0, loc)},
		{PeriodHourly, time.Date(2024, 12, 31, 23, 0, 0, 0, loc), time.Date(2025, 1, 1, 0, 0, 0, 0, loc)},
		{PeriodMinutely, time.Date(2024, 12, 31, 23, 45, 0, 0, loc), time.Date(2024, 12, 31, 23, 46, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			assert.True(t, tt.wantStart.Equal(PeriodStart(tt.period, now, loc)))
			assert.True(t, tt.wantNext.Equal(NextBoundary(tt.period, now, loc)))
		})
	}

	assert.True(t, now.Equal(PeriodStart(PeriodNone, now, loc)))
	assert.True(t, NextBoundary(PeriodNone, now, loc).IsZero())
}

// =============================================================================
// Evaluate
// =============================================================================

func TestEvaluate(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)
	day2 := time.Date(2024, 1, 2, 0, 0, 1, 0, loc)

	tests := []struct {
		name     string
		cond     Condition
		start    time.Time
		size     int64
		now      time.Time
		incoming int
		want     Trigger
	}{
		{name: "无条件永不轮转", cond: Condition{}, start: day1, size: 1 << 30, now: day2, incoming: 100, want: TriggerNone},
		{name: "同一周期", cond: Condition{}.Daily().In(loc), start: day1, size: 10, now: day1.Add(time.Hour), incoming: 1, want: TriggerNone},
		{name: "跨天", cond: Condition{}.Daily().In(loc), start: day1, size: 10, now: day2, incoming: 1, want: TriggerPeriod},
		{name: "时钟回拨", cond: Condition{}.Daily().In(loc), start: day2, size: 10, now: day1, incoming: 1, want: TriggerNone},
		{name: "恰好等于上限", cond: Condition{MaxSize: 10}, start: day1, size: 5, now: day1, incoming: 5, want: TriggerNone},
		{name: "超过上限", cond: Condition{MaxSize: 10}, start: day1, size: 5, now: day1, incoming: 6, want: TriggerSize},
		{name: "空文件不按大小轮转", cond: Condition{MaxSize: 10}, start: day1, size: 0, now: day1, incoming: 15, want: TriggerNone},
		{name: "空文件不按周期轮转", cond: Condition{}.Daily().In(loc), start: day1, size: 0, now: day2, incoming: 1, want: TriggerNone},
		{name: "两者同时满足", cond: Condition{MaxSize: 10}.Daily().In(loc), start: day1, size: 9, now: day2, incoming: 2, want: TriggerPeriod | TriggerSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.cond, tt.start, tt.size, tt.now, tt.incoming)
			assert.Equal(t, tt.want, got, "got %s", got)
			assert.Equal(t, tt.want != TriggerNone, ShouldRollover(tt.cond, tt.start, tt.size, tt.now, tt.incoming))
		})
	}
}

// FuzzPeriodKey 周期键随时间单调不减，且与 PeriodStart 一致
func FuzzPeriodKey(f *testing.F) {
	f.Add(int64(0), int64(1))
	f.Add(int64(1704067199), int64(1))
	f.Add(int64(-86400), int64(86400))
	f.Fuzz(func(t *testing.T, sec, delta int64) {
		if sec < -1<<40 || sec > 1<<40 || delta < 0 || delta > 1<<32 {
			return
		}
		a := time.Unix(sec, 0)
		b := time.Unix(sec+delta, 0)
		for _, p := range []Period{PeriodMinutely, PeriodHourly, PeriodDaily} {
			ka, kb := PeriodKey(p, a, time.UTC), PeriodKey(p, b, time.UTC)
			if kb < ka {
				t.Fatalf("%s key decreased: %d -> %d", p, ka, kb)
			}
			if PeriodKey(p, PeriodStart(p, a, time.UTC), time.UTC) != ka {
				t.Fatalf("%s start key mismatch at %v", p, a)
			}
			if PeriodKey(p, NextBoundary(p, a, time.UTC), time.UTC) != ka+1 {
				t.Fatalf("%s next boundary key mismatch at %v", p, a)
			}
		}
	})
}
