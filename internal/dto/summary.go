package dto

// ── 汇总与异常检测 DTO ──

// AnomalyResponse 行为异常项
type AnomalyResponse struct {
	Type        string `json:"type"`     // frequent_lateness | high_absence_rate | frequent_incomplete_days | consecutive_absences
	Severity    string `json:"severity"` // low | medium | high
	Description string `json:"description"`
}

// SummaryResponse 学生考勤汇总响应
type SummaryResponse struct {
	StudentID            string            `json:"student_id"`
	From                 string            `json:"from"`
	To                   string            `json:"to"`
	TotalExpectedDays    int               `json:"total_expected_days"`
	DayStatusCounts      map[string]int    `json:"day_status_counts"`
	ApprovalStatusCounts map[string]int    `json:"approval_status_counts"`
	CompletionPercentage float64           `json:"completion_percentage"`
	PunctualityRate      float64           `json:"punctuality_rate"`
	Anomalies            []AnomalyResponse `json:"anomalies"`
}
