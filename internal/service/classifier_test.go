package service

import (
	"testing"
	"time"

	"placetrack/backend/internal/model"
	"placetrack/backend/pkg/clock"
)

// ── 测试辅助 ──

func testThresholds() PolicyThresholds {
	cutoff, _ := clock.ParseClock("08:00")
	return PolicyThresholds{
		LateCutoff:               cutoff,
		MinFullDayHours:          6.0,
		AbsenceRequestWindowDays: 7,
		OpenRecordTimeoutHours:   24.0,
		LateRatio:                0.3,
		AbsenceRatio:             0.2,
		IncompleteThreshold:      3,
		ConsecutiveAbsenceDays:   3,
	}
}

func dayAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

// ── Classify 测试 ──

func TestClassify_FullLifecycle(t *testing.T) {
	p := testThresholds()
	day := clock.Normalize(dayAt(0, 0))

	tests := []struct {
		name string
		in   ClassifyInput
		want model.DayStatus
	}{
		{
			name: "准点签到且工时达标",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(7, 55)),
				CheckOutTime: timePtr(dayAt(16, 0)),
				HoursWorked:  8.08,
				Now:          dayAt(16, 0),
			},
			want: model.DayStatusPresentOnTime,
		},
		{
			name: "恰好截止时刻签到计为准点",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(8, 0)),
				CheckOutTime: timePtr(dayAt(16, 0)),
				HoursWorked:  8.0,
				Now:          dayAt(16, 0),
			},
			want: model.DayStatusPresentOnTime,
		},
		{
			name: "超过截止时刻一分钟即迟到",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(8, 1)),
				CheckOutTime: timePtr(dayAt(16, 1)),
				HoursWorked:  8.0,
				Now:          dayAt(16, 1),
			},
			want: model.DayStatusPresentLate,
		},
		{
			name: "工时恰好达到下限计为全天",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(8, 0)),
				CheckOutTime: timePtr(dayAt(14, 0)),
				HoursWorked:  6.0,
				Now:          dayAt(14, 0),
			},
			want: model.DayStatusPresentOnTime,
		},
		{
			name: "工时低于下限计为半天",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(8, 0)),
				CheckOutTime: timePtr(dayAt(13, 59)),
				HoursWorked:  5.98,
				Now:          dayAt(13, 59),
			},
			want: model.DayStatusHalfDay,
		},
		{
			name: "迟到且工时不足时半天优先于迟到",
			in: ClassifyInput{
				Date:         day,
				CheckInTime:  timePtr(dayAt(10, 0)),
				CheckOutTime: timePtr(dayAt(13, 0)),
				HoursWorked:  3.0,
				Now:          dayAt(13, 0),
			},
			want: model.DayStatusHalfDay,
		},
		{
			name: "已签到未签退为未完成",
			in: ClassifyInput{
				Date:        day,
				CheckInTime: timePtr(dayAt(8, 0)),
				Now:         dayAt(15, 0),
			},
			want: model.DayStatusIncomplete,
		},
		{
			name: "当日未结束且无签到不提前定罪",
			in: ClassifyInput{
				Date: day,
				Now:  dayAt(15, 0),
			},
			want: model.DayStatusIncomplete,
		},
		{
			name: "当日已过且无签到为缺勤",
			in: ClassifyInput{
				Date: day,
				Now:  dayAt(15, 0).AddDate(0, 0, 1),
			},
			want: model.DayStatusAbsent,
		},
		{
			name: "请假未批准为缺勤",
			in: ClassifyInput{
				Date:             day,
				IsAbsenceRequest: true,
				Now:              dayAt(15, 0),
			},
			want: model.DayStatusAbsent,
		},
		{
			name: "请假已批准为准假缺勤",
			in: ClassifyInput{
				Date:             day,
				IsAbsenceRequest: true,
				ExcuseGranted:    true,
				Now:              dayAt(15, 0),
			},
			want: model.DayStatusExcusedAbsence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in, p)
			if got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}
}

func TestClassify_CustomCutoff(t *testing.T) {
	p := testThresholds()
	cutoff, _ := clock.ParseClock("09:30")
	p.LateCutoff = cutoff
	day := clock.Normalize(dayAt(0, 0))

	in := ClassifyInput{
		Date:         day,
		CheckInTime:  timePtr(dayAt(9, 15)),
		CheckOutTime: timePtr(dayAt(17, 0)),
		HoursWorked:  7.75,
		Now:          dayAt(17, 0),
	}
	if got := Classify(in, p); got != model.DayStatusPresentOnTime {
		t.Errorf("09:30 截止下 09:15 签到应为准点，实际 %s", got)
	}
}

// ── ClassifyPunctuality 测试 ──

func TestClassifyPunctuality(t *testing.T) {
	cutoff, _ := clock.ParseClock("08:00")

	if got := ClassifyPunctuality(dayAt(8, 0), cutoff); got != model.PunctualityOnTime {
		t.Errorf("恰好 08:00 签到应为准点，实际 %s", got)
	}
	if got := ClassifyPunctuality(dayAt(8, 5), cutoff); got != model.PunctualityLate {
		t.Errorf("08:05 签到应为迟到，实际 %s", got)
	}
	if got := ClassifyPunctuality(dayAt(7, 30), cutoff); got != model.PunctualityOnTime {
		t.Errorf("07:30 签到应为准点，实际 %s", got)
	}
}

// ── StaleOpen 测试 ──

func TestStaleOpen(t *testing.T) {
	p := testThresholds()
	checkIn := dayAt(8, 0)

	open := &model.AttendanceRecord{
		Date:        clock.Normalize(checkIn),
		CheckInTime: &checkIn,
	}

	if StaleOpen(open, p, checkIn.Add(12*time.Hour)) {
		t.Error("未超过时限的未签退记录不应判定为超时")
	}
	if !StaleOpen(open, p, checkIn.Add(25*time.Hour)) {
		t.Error("超过 24 小时的未签退记录应判定为超时")
	}

	checkOut := checkIn.Add(8 * time.Hour)
	closed := &model.AttendanceRecord{
		Date:         clock.Normalize(checkIn),
		CheckInTime:  &checkIn,
		CheckOutTime: &checkOut,
	}
	if StaleOpen(closed, p, checkIn.Add(48*time.Hour)) {
		t.Error("已签退记录不应判定为超时")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
