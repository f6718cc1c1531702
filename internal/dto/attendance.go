package dto

// ── 考勤模块 DTO ──

// CheckInRequest 签到请求
type CheckInRequest struct {
	PlacementID string `json:"placement_id" binding:"required,uuid"`
	Location    string `json:"location"     binding:"omitempty,max=200"`
	Notes       string `json:"notes"        binding:"omitempty,max=500"`
}

// CheckOutRequest 签退请求
type CheckOutRequest struct {
	Location string `json:"location" binding:"omitempty,max=200"`
	Notes    string `json:"notes"    binding:"omitempty,max=500"`
}

// AbsenceRequestRequest 请假申请
type AbsenceRequestRequest struct {
	PlacementID string `json:"placement_id" binding:"required,uuid"`
	Date        string `json:"date"         binding:"required"` // "2024-03-04"
	Reason      string `json:"reason"       binding:"required,max=500"`
}

// ReviewRequest 审批动作请求（approve / reject / acknowledge）
// comment 是否必填由各动作的业务规则决定，统一在 Service 层校验
type ReviewRequest struct {
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// ReclassifyRequest 状态改判请求
type ReclassifyRequest struct {
	DayStatus string `json:"day_status" binding:"required"`
	Comment   string `json:"comment"    binding:"omitempty,max=500"`
}

// MarkAbsenteesRequest 批量缺勤标记触发请求
// date 缺省为今天；student_ids 缺省时按在册名单扫描
type MarkAbsenteesRequest struct {
	Date       string   `json:"date"        binding:"omitempty"`
	StudentIDs []string `json:"student_ids" binding:"omitempty,dive,uuid"`
}

// DateRangeRequest 日期区间查询参数
type DateRangeRequest struct {
	From string `form:"from" binding:"omitempty"`
	To   string `form:"to"   binding:"omitempty"`
}

// AttendanceResponse 考勤记录响应
// status 为旧版三值投影（present|late|absent），仅派生输出
type AttendanceResponse struct {
	ID                string  `json:"id"`
	StudentID         string  `json:"student_id"`
	PlacementID       string  `json:"placement_id"`
	Date              string  `json:"date"`
	CheckInTime       *string `json:"check_in_time,omitempty"`
	CheckOutTime      *string `json:"check_out_time,omitempty"`
	HoursWorked       float64 `json:"hours_worked"`
	Location          string  `json:"location"`
	Notes             string  `json:"notes"`
	Punctuality       string  `json:"punctuality"`
	DayStatus         string  `json:"day_status"`
	Status            string  `json:"status"`
	ApprovalStatus    string  `json:"approval_status"`
	AbsenceReason     string  `json:"absence_reason,omitempty"`
	ReviewedBy        *string `json:"reviewed_by,omitempty"`
	ReviewedAt        *string `json:"reviewed_at,omitempty"`
	SupervisorComment string  `json:"supervisor_comment,omitempty"`
	IsLateEntry       bool    `json:"is_late_entry"`
	// day_status=incomplete 且 is_incomplete=false 表示当日仍在进行中
	// （已签到未签退且未超时）；is_incomplete=true 才是最终认定
	IsIncomplete bool   `json:"is_incomplete"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// MarkResultResponse 批量缺勤标记的单个学生结果
type MarkResultResponse struct {
	StudentID string `json:"student_id"`
	Outcome   string `json:"outcome"` // created | skipped | failed
	Error     string `json:"error,omitempty"`
}

// MarkAbsenteesResponse 批量缺勤标记汇总结果
type MarkAbsenteesResponse struct {
	Date    string               `json:"date"`
	Created int                  `json:"created"`
	Skipped int                  `json:"skipped"`
	Failed  int                  `json:"failed"`
	Results []MarkResultResponse `json:"results"`
}

// ReviewLogResponse 审批流水响应
type ReviewLogResponse struct {
	ID                string `json:"id"`
	ReviewerID        string `json:"reviewer_id"`
	Action            string `json:"action"`
	OldDayStatus      string `json:"old_day_status,omitempty"`
	NewDayStatus      string `json:"new_day_status,omitempty"`
	OldApprovalStatus string `json:"old_approval_status,omitempty"`
	NewApprovalStatus string `json:"new_approval_status,omitempty"`
	Comment           string `json:"comment,omitempty"`
	CreatedAt         string `json:"created_at"`
}
