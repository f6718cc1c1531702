package model

import "time"

// ── 封闭枚举类型 ──────────────────────────────────────────
//
// 日状态与审批状态使用强类型常量而非自由字符串，
// 非法状态在入口处即被 Valid() 拦截。
// ─────────────────────────────────────────────────────────

// DayStatus 单个日历日的考勤结论
// incomplete 兼作进行中状态：已签到未签退的当日记录即为 incomplete，
// 此时 is_incomplete 仍为 false；超时未签退被认定后才置 true
type DayStatus string

const (
	DayStatusPresentOnTime  DayStatus = "present_on_time"
	DayStatusPresentLate    DayStatus = "present_late"
	DayStatusHalfDay        DayStatus = "half_day"
	DayStatusAbsent         DayStatus = "absent"
	DayStatusExcusedAbsence DayStatus = "excused_absence"
	DayStatusIncomplete     DayStatus = "incomplete"
)

// Valid 判断是否为受支持的日状态
func (s DayStatus) Valid() bool {
	switch s {
	case DayStatusPresentOnTime, DayStatusPresentLate, DayStatusHalfDay,
		DayStatusAbsent, DayStatusExcusedAbsence, DayStatusIncomplete:
		return true
	default:
		return false
	}
}

// Legacy 旧版三值状态投影（present | late | absent）
// 仅在 API 边界派生输出，不作为第二份数据源存储
func (s DayStatus) Legacy() string {
	switch s {
	case DayStatusPresentLate:
		return "late"
	case DayStatusAbsent, DayStatusExcusedAbsence:
		return "absent"
	default:
		return "present"
	}
}

// ApprovalStatus 审批流转状态，与日状态相互独立
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
	ApprovalNeedsReview ApprovalStatus = "needs_review"
)

// Valid 判断是否为受支持的审批状态
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalNeedsReview:
		return true
	default:
		return false
	}
}

// CanTransitionTo 审批状态机
//
//	pending      → approved | rejected | needs_review
//	needs_review → approved | rejected | needs_review
//	approved / rejected 为终态，仅允许经 reclassify 重新进入 needs_review
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	switch s {
	case ApprovalPending, ApprovalNeedsReview:
		return next == ApprovalApproved || next == ApprovalRejected || next == ApprovalNeedsReview
	case ApprovalApproved, ApprovalRejected:
		return next == ApprovalNeedsReview
	default:
		return false
	}
}

// Punctuality 签到准点性
type Punctuality string

const (
	PunctualityOnTime Punctuality = "on_time"
	PunctualityLate   Punctuality = "late"
)

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// 自然键 (student_id, date) 唯一；记录只做状态流转，从不物理删除
type AttendanceRecord struct {
	AttendanceRecordID string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                    json:"attendance_record_id"`
	StudentID          string      `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_student_date,priority:1" json:"student_id"`
	PlacementID        string      `gorm:"type:uuid;not null"                                                json:"placement_id"`
	Date               time.Time   `gorm:"type:date;not null;uniqueIndex:uq_attendance_student_date,priority:2" json:"date"`
	CheckInTime        *time.Time  `json:"check_in_time,omitempty"`
	CheckOutTime       *time.Time  `json:"check_out_time,omitempty"`
	HoursWorked        float64     `gorm:"not null;default:0"                      json:"hours_worked"` // 冗余派生，签退时重算
	Location           string      `gorm:"type:varchar(200);not null;default:''"   json:"location"`     // 学生自报，不做真实性校验
	Notes              string      `gorm:"type:varchar(500);not null;default:''"   json:"notes"`
	Punctuality        Punctuality `gorm:"type:varchar(10);not null;default:''"    json:"punctuality"`
	DayStatus          DayStatus   `gorm:"type:varchar(20);not null"               json:"day_status"`
	ApprovalStatus     ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"approval_status"`
	AbsenceReason      string      `gorm:"type:varchar(500);not null;default:''"   json:"absence_reason"` // 仅请假来源的记录填写
	ReviewedBy         *string     `gorm:"type:uuid"                               json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time  `json:"reviewed_at,omitempty"`
	SupervisorComment  string      `gorm:"type:varchar(500);not null;default:''"   json:"supervisor_comment"`
	IsLateEntry        bool        `gorm:"not null;default:false"                  json:"is_late_entry"` // 冗余派生
	IsIncomplete       bool        `gorm:"not null;default:false"                  json:"is_incomplete"` // 冗余派生；仅超时认定后为 true，进行中记录为 false
	BaseModel
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// IsAbsenceOrigin 判断记录是否来源于请假申请（而非现场签到）
func (r *AttendanceRecord) IsAbsenceOrigin() bool {
	return r.AbsenceReason != "" && r.CheckInTime == nil
}

// IsOpen 判断是否为已签到未签退的记录
func (r *AttendanceRecord) IsOpen() bool {
	return r.CheckInTime != nil && r.CheckOutTime == nil
}
