package dto

// ── 考勤规则配置 DTO ──

// UpdatePolicyRequest 更新考勤规则请求（全部可选，未提供的字段保持不变）
type UpdatePolicyRequest struct {
	ExpectedStartTime        *string  `json:"expected_start_time"         binding:"omitempty"`
	MinFullDayHours          *float64 `json:"min_full_day_hours"          binding:"omitempty,gt=0,lte=24"`
	AbsenceRequestWindowDays *int     `json:"absence_request_window_days" binding:"omitempty,min=0,max=90"`
	OpenRecordTimeoutHours   *float64 `json:"open_record_timeout_hours"   binding:"omitempty,gt=0,lte=168"`
	LateRatio                *float64 `json:"late_ratio"                  binding:"omitempty,gt=0,lt=1"`
	AbsenceRatio             *float64 `json:"absence_ratio"               binding:"omitempty,gt=0,lt=1"`
	IncompleteThreshold      *int     `json:"incomplete_threshold"        binding:"omitempty,min=0,max=100"`
	ConsecutiveAbsenceDays   *int     `json:"consecutive_absence_days"    binding:"omitempty,min=1,max=30"`
}

// PolicyResponse 考勤规则响应
type PolicyResponse struct {
	ExpectedStartTime        string  `json:"expected_start_time"`
	MinFullDayHours          float64 `json:"min_full_day_hours"`
	AbsenceRequestWindowDays int     `json:"absence_request_window_days"`
	OpenRecordTimeoutHours   float64 `json:"open_record_timeout_hours"`
	LateRatio                float64 `json:"late_ratio"`
	AbsenceRatio             float64 `json:"absence_ratio"`
	IncompleteThreshold      int     `json:"incomplete_threshold"`
	ConsecutiveAbsenceDays   int     `json:"consecutive_absence_days"`
	UpdatedAt                string  `json:"updated_at"`
}
