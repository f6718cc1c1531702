package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/service"
	pkgerrors "placetrack/backend/pkg/errors"
	"placetrack/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	markerSvc     service.AbsenceMarkerService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, markerSvc service.AbsenceMarkerService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, markerSvc: markerSvc}
}

// CheckIn 学生签到
// POST /api/v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CheckIn(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// CheckOut 学生签退
// POST /api/v1/attendance/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CheckOut(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// SubmitAbsenceRequest 学生提交请假申请
// POST /api/v1/attendance/absence-requests
func (h *AttendanceHandler) SubmitAbsenceRequest(c *gin.Context) {
	var req dto.AbsenceRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.SubmitAbsenceRequest(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// GetRecord 获取单条考勤记录
// GET /api/v1/attendance/records/:id
func (h *AttendanceHandler) GetRecord(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	result, err := h.attendanceSvc.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	// 学生只能查看自己的记录
	if !h.canAccessStudent(c, result.StudentID) {
		return
	}

	response.OK(c, result)
}

// ListStudentRecords 查询学生考勤历史
// GET /api/v1/attendance/students/:studentID/records?from=&to=
func (h *AttendanceHandler) ListStudentRecords(c *gin.Context) {
	studentID := c.Param("studentID")
	if studentID == "" {
		response.BadRequest(c, 10001, "学生ID不能为空")
		return
	}
	if !h.canAccessStudent(c, studentID) {
		return
	}

	var q dto.DateRangeRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ListByStudent(c.Request.Context(), studentID, q.From, q.To)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// ListPlacementRecords 查询实习单位考勤
// GET /api/v1/attendance/placements/:placementID/records?from=&to=
func (h *AttendanceHandler) ListPlacementRecords(c *gin.Context) {
	placementID := c.Param("placementID")
	if placementID == "" {
		response.BadRequest(c, 10001, "实习单位ID不能为空")
		return
	}

	var q dto.DateRangeRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ListByPlacement(c.Request.Context(), placementID, q.From, q.To)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// ListReviewLogs 查询记录的审批流水
// GET /api/v1/attendance/records/:id/review-logs
func (h *AttendanceHandler) ListReviewLogs(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	logs, err := h.attendanceSvc.ListReviewLogs(c.Request.Context(), id)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// Acknowledge 确认记录（软确认，不改变审批状态）
// POST /api/v1/attendance/records/:id/acknowledge
func (h *AttendanceHandler) Acknowledge(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Acknowledge(c.Request.Context(), id, reviewerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// Approve 批准记录（请假获批转为准假缺勤）
// POST /api/v1/attendance/records/:id/approve
func (h *AttendanceHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Approve(c.Request.Context(), id, reviewerID, req.Comment)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 驳回记录（必须附意见）
// POST /api/v1/attendance/records/:id/reject
func (h *AttendanceHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Reject(c.Request.Context(), id, reviewerID, req.Comment)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// Reclassify 改判日状态（进入 needs_review 等待二次复核）
// POST /api/v1/attendance/records/:id/reclassify
func (h *AttendanceHandler) Reclassify(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "记录ID不能为空")
		return
	}

	var req dto.ReclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Reclassify(c.Request.Context(), id, reviewerID, model.DayStatus(req.DayStatus), req.Comment)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// MarkAbsentees 批量缺勤标记（协调员手动触发）
// POST /api/v1/attendance/mark-absentees
func (h *AttendanceHandler) MarkAbsentees(c *gin.Context) {
	var req dto.MarkAbsenteesRequest
	// 请求体全部字段可缺省（日期默认今天），允许空请求体触发
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.markerSvc.MarkAbsentees(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// canAccessStudent 学生只能访问自己的数据；其他角色不受限
func (h *AttendanceHandler) canAccessStudent(c *gin.Context, studentID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role != "student" {
		return true
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return false
	}
	if callerID != studentID {
		response.Forbidden(c, 10003, "无权限访问他人考勤数据")
		return false
	}
	return true
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 12001, "考勤记录不存在")
	case errors.Is(err, service.ErrDuplicateCheckIn):
		response.Conflict(c, 12002, "当日已完成签退，不可重复签到")
	case errors.Is(err, service.ErrNoOpenCheckIn):
		response.BadRequest(c, 12003, "当日无未签退的签到记录")
	case errors.Is(err, service.ErrCheckOutBeforeCheckIn):
		response.BadRequest(c, 12004, "签退时间不能早于签到时间")
	case errors.Is(err, service.ErrAbsenceDateTooOld):
		response.BadRequest(c, 12005, "请假日期超出允许补报窗口")
	case errors.Is(err, service.ErrRecordAlreadyExists):
		response.Conflict(c, 12006, "该日期已存在考勤记录")
	case errors.Is(err, service.ErrMissingComment):
		response.BadRequest(c, 12007, "审批意见不能为空")
	case errors.Is(err, service.ErrInvalidDayStatus):
		response.BadRequest(c, 12008, "无效的考勤日状态")
	case errors.Is(err, service.ErrApprovalTransition):
		response.Conflict(c, 12009, "当前审批状态不允许此操作")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 10001, "日期区间无效")
	case errors.Is(err, service.ErrFutureMarkDate):
		response.BadRequest(c, 12010, "不能标记未来日期的缺勤")
	case errors.Is(err, service.ErrNotWorkday):
		response.BadRequest(c, 12011, "目标日期为非工作日，无需标记")
	case errors.Is(err, pkgerrors.ErrConcurrentCreate):
		response.Conflict(c, 12012, "记录已被并发创建，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
