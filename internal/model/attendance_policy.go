package model

// AttendancePolicy 考勤规则配置表 — 对应 attendance_policies（单行强类型）
// 运行时可由管理员调整，覆盖进程启动时的配置默认值
type AttendancePolicy struct {
	Singleton                bool    `gorm:"primaryKey;default:true"            json:"-"`
	ExpectedStartTime        string  `gorm:"type:time;not null;default:'08:00'" json:"expected_start_time"`
	MinFullDayHours          float64 `gorm:"not null;default:6"                 json:"min_full_day_hours"`
	AbsenceRequestWindowDays int     `gorm:"not null;default:7"                 json:"absence_request_window_days"`
	OpenRecordTimeoutHours   float64 `gorm:"not null;default:24"                json:"open_record_timeout_hours"`
	LateRatio                float64 `gorm:"not null;default:0.3"               json:"late_ratio"`
	AbsenceRatio             float64 `gorm:"not null;default:0.2"               json:"absence_ratio"`
	IncompleteThreshold      int     `gorm:"not null;default:3"                 json:"incomplete_threshold"`
	ConsecutiveAbsenceDays   int     `gorm:"not null;default:3"                 json:"consecutive_absence_days"`
	BaseModel
}

// TableName 指定表名
func (AttendancePolicy) TableName() string { return "attendance_policies" }
