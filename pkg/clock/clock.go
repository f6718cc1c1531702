package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── 日期与时刻工具 ──────────────────────────────────────────
//
// 考勤判定中所有"同一天"、"工时"、"迟到截止"的计算集中在本包，
// 全部为纯函数，便于对阈值边界做穷举测试。
// ─────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// Normalize 将时间归一化到当天零点（保留原时区）
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay 判断两个时间是否落在同一个日历日
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateKey 格式化为 "2006-01-02"，用作 map 键与接口参数
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate 解析 "2006-01-02" 为当天零点
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 %q: %w", s, err)
	}
	return t, nil
}

// ElapsedHours 计算两个时间点之间的小时数，负值归零
func ElapsedHours(from, to time.Time) float64 {
	h := to.Sub(from).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// DayElapsed 判断 date 所在的日历日是否已经完全过去
func DayElapsed(date, now time.Time) bool {
	return Normalize(now).After(Normalize(date))
}

// ── 截止时刻  ──

// ClockTime 一天内的时刻（如迟到截止 08:00），与具体日期无关
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock 解析 "HH:MM" 格式的时刻
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("时刻格式无效 %q，应为 HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("时刻格式无效 %q: 小时超出范围", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("时刻格式无效 %q: 分钟超出范围", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// On 返回该时刻在指定日历日上对应的时间点
func (ct ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, day.Location())
}

// String 格式化为 "08:00"
func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// AfterCutoff 判断签到时间是否晚于当日截止时刻
// 恰好等于截止时刻不算迟到
func AfterCutoff(checkIn time.Time, cutoff ClockTime) bool {
	return checkIn.After(cutoff.On(checkIn))
}

// ── 工作日 ──

// IsWorkday 判断是否工作日（周一至周五且非节假日）
// holidays 以 DateKey 为键
func IsWorkday(d time.Time, holidays map[string]bool) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays[DateKey(d)]
}

// NextWorkday 返回 d 之后的第一个工作日
func NextWorkday(d time.Time, holidays map[string]bool) time.Time {
	next := Normalize(d).AddDate(0, 0, 1)
	for !IsWorkday(next, holidays) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// WorkdaysBetween 统计 [from, to] 闭区间内的工作日数量
func WorkdaysBetween(from, to time.Time, holidays map[string]bool) int {
	from = Normalize(from)
	to = Normalize(to)
	if to.Before(from) {
		return 0
	}
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d, holidays) {
			count++
		}
	}
	return count
}
