package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/service"
	"placetrack/backend/pkg/response"
)

// SummaryHandler 考勤汇总模块 HTTP 处理器
type SummaryHandler struct {
	summarySvc service.SummaryService
}

// NewSummaryHandler 创建 SummaryHandler
func NewSummaryHandler(summarySvc service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc}
}

// GetStudentSummary 查询学生考勤汇总与异常
// GET /api/v1/attendance/students/:studentID/summary?from=&to=
func (h *SummaryHandler) GetStudentSummary(c *gin.Context) {
	studentID := c.Param("studentID")
	if studentID == "" {
		response.BadRequest(c, 10001, "学生ID不能为空")
		return
	}

	// 学生只能查看自己的汇总
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	if role == "student" {
		callerID, ok := MustGetUserID(c)
		if !ok {
			return
		}
		if callerID != studentID {
			response.Forbidden(c, 10003, "无权限访问他人考勤数据")
			return
		}
	}

	var q dto.DateRangeRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.summarySvc.Summarize(c.Request.Context(), studentID, q.From, q.To)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate):
			response.BadRequest(c, 10001, "日期格式无效，应为 YYYY-MM-DD")
		case errors.Is(err, service.ErrInvalidDateRange):
			response.BadRequest(c, 10001, "日期区间无效")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}
