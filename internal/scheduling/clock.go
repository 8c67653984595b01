// Package scheduling 答辩排期的纯规则：时刻解析、工作日判断、区间重叠、
// 序号分配、派生时间与委员会就绪判定。不依赖存储，可直接单元测试。
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout 日期的外部表示
const DateLayout = "2006-01-02"

// Clock 一天内的时刻，单位为分钟（0 点起）
type Clock int

// ParseClock 解析 HH:MM 或 HH:MM:SS，秒必须为 0
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
		}
		nums[i] = n
	}

	if nums[0] > 23 || nums[1] > 59 || (len(nums) == 3 && nums[2] != 0) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return Clock(nums[0]*60 + nums[1]), nil
}

// MustParseClock 仅用于常量与测试
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String 输出 HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add 向后推移若干分钟
func (c Clock) Add(minutes int) Clock { return c + Clock(minutes) }

// ParseDate 解析 YYYY-MM-DD，结果为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Day 截断到日期，统一为 UTC 零点，便于比较
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate 输出 YYYY-MM-DD
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// IsWeekday 周一至周五
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WithinDays 判断 d 是否在闭区间 [from, to] 内（按日期比较）
func WithinDays(d, from, to time.Time) bool {
	d, from, to = Day(d), Day(from), Day(to)
	return !d.Before(from) && !d.After(to)
}
