package handler

import "placetrack/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
	Summary    *SummaryHandler
	Holiday    *HolidayHandler
	Policy     *PolicyHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Attendance, svc.AbsenceMarker),
		Summary:    NewSummaryHandler(svc.Summary),
		Holiday:    NewHolidayHandler(svc.Holiday),
		Policy:     NewPolicyHandler(svc.Policy),
		Export:     NewExportHandler(svc.Export),
	}
}
