package service

import (
	"time"

	"placetrack/backend/internal/model"
	"placetrack/backend/pkg/clock"
)

// ── 日状态判定策略 ──────────────────────────────────────────
//
// Classify 是纯函数：同样的输入永远得到同样的日状态，
// 没有任何 IO 或全局状态，阈值边界可以被穷举测试。
// ─────────────────────────────────────────────────────────────

// PolicyThresholds 判定与异常检测所需的全部阈值
// 由 PolicyService 从数据库单行配置（缺省回落到进程配置）解析而来
type PolicyThresholds struct {
	LateCutoff               clock.ClockTime // 迟到判定截止时刻
	MinFullDayHours          float64         // 计为全天的最低工时
	AbsenceRequestWindowDays int             // 请假允许补报的最大天数
	OpenRecordTimeoutHours   float64         // 未签退记录判定为 incomplete 的时限
	LateRatio                float64         // 迟到比例阈值
	AbsenceRatio             float64         // 无故缺勤比例阈值
	IncompleteThreshold      int             // incomplete 天数绝对阈值
	ConsecutiveAbsenceDays   int             // 连续缺勤天数阈值
}

// ClassifyInput 单日考勤事件的原始要素
type ClassifyInput struct {
	Date             time.Time  // 记录所属日历日（零点）
	CheckInTime      *time.Time // 签到时间
	CheckOutTime     *time.Time // 签退时间
	HoursWorked      float64    // 已计算的工时
	IsAbsenceRequest bool       // 记录是否来源于请假申请
	ExcuseGranted    bool       // 请假是否已获批准
	Now              time.Time  // 判定时刻
}

// Classify 将单日原始事件映射为日状态，规则按序匹配，先中先得：
//
//  1. 请假且已批准                     → excused_absence
//  2. 请假未批准；或当日已过且无签到   → absent
//  3. 已签到未签退                     → incomplete
//     （超过时限后由读取路径把 is_incomplete 置位固化）
//  4. 签到签退齐全，工时 < 全天下限    → half_day
//  5. 工时达标且签到不晚于截止时刻     → present_on_time
//  6. 其余（工时达标但签到迟于截止）   → present_late
func Classify(in ClassifyInput, p PolicyThresholds) model.DayStatus {
	if in.IsAbsenceRequest {
		if in.ExcuseGranted {
			return model.DayStatusExcusedAbsence
		}
		return model.DayStatusAbsent
	}

	if in.CheckInTime == nil {
		// 当日尚未结束时不提前定罪；已结束无签到即缺勤
		if clock.DayElapsed(in.Date, in.Now) {
			return model.DayStatusAbsent
		}
		return model.DayStatusIncomplete
	}

	if in.CheckOutTime == nil {
		return model.DayStatusIncomplete
	}

	if in.HoursWorked < p.MinFullDayHours {
		return model.DayStatusHalfDay
	}

	if !clock.AfterCutoff(*in.CheckInTime, p.LateCutoff) {
		return model.DayStatusPresentOnTime
	}

	return model.DayStatusPresentLate
}

// ClassifyPunctuality 判定签到准点性；恰好等于截止时刻计为准点
func ClassifyPunctuality(checkIn time.Time, cutoff clock.ClockTime) model.Punctuality {
	if clock.AfterCutoff(checkIn, cutoff) {
		return model.PunctualityLate
	}
	return model.PunctualityOnTime
}

// StaleOpen 判断未签退记录是否已超过时限，应固化为 incomplete
func StaleOpen(rec *model.AttendanceRecord, p PolicyThresholds, now time.Time) bool {
	if !rec.IsOpen() {
		return false
	}
	return clock.ElapsedHours(*rec.CheckInTime, now) > p.OpenRecordTimeoutHours
}
