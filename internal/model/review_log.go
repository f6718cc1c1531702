package model

import "time"

// 审批动作常量
const (
	ReviewActionAcknowledge = "acknowledge"
	ReviewActionApprove     = "approve"
	ReviewActionReject      = "reject"
	ReviewActionReclassify  = "reclassify"
)

// ReviewLog 审批操作流水表 — 对应 attendance_review_logs
// 记录每一次审阅动作的前后状态，用作审计追溯
type ReviewLog struct {
	ReviewLogID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"review_log_id"`
	AttendanceRecordID string    `gorm:"type:uuid;not null"                             json:"attendance_record_id"`
	ReviewerID         string    `gorm:"type:uuid;not null"                             json:"reviewer_id"`
	Action             string    `gorm:"type:varchar(20);not null"                      json:"action"`
	OldDayStatus       DayStatus `gorm:"type:varchar(20);not null;default:''"           json:"old_day_status"`
	NewDayStatus       DayStatus `gorm:"type:varchar(20);not null;default:''"           json:"new_day_status"`
	OldApprovalStatus  ApprovalStatus `gorm:"type:varchar(20);not null;default:''"      json:"old_approval_status"`
	NewApprovalStatus  ApprovalStatus `gorm:"type:varchar(20);not null;default:''"      json:"new_approval_status"`
	Comment            string    `gorm:"type:varchar(500);not null;default:''"          json:"comment"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ReviewLog) TableName() string { return "attendance_review_logs" }
