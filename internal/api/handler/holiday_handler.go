package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/service"
	"placetrack/backend/pkg/response"
)

// HolidayHandler 节假日模块 HTTP 处理器
type HolidayHandler struct {
	holidaySvc service.HolidayService
}

// NewHolidayHandler 创建 HolidayHandler
func NewHolidayHandler(holidaySvc service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidaySvc: holidaySvc}
}

// ListHolidays 查询节假日
// GET /api/v1/holidays?from=&to=
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	var q dto.DateRangeRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.holidaySvc.List(c.Request.Context(), q.From, q.To)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// CreateHoliday 新增节假日
// POST /api/v1/holidays
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.holidaySvc.Create(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteHoliday 删除节假日
// DELETE /api/v1/holidays/:id
func (h *HolidayHandler) DeleteHoliday(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "节假日ID不能为空")
		return
	}

	if err := h.holidaySvc.Delete(c.Request.Context(), id); err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportICS 从 iCalendar 导入节假日
// POST /api/v1/holidays/import-ics
func (h *HolidayHandler) ImportICS(c *gin.Context) {
	var req dto.ImportHolidayICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.holidaySvc.ImportICS(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleHolidayError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *HolidayHandler) handleHolidayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHolidayNotFound):
		response.NotFound(c, 14001, "节假日不存在")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 10001, "日期区间无效")
	case errors.Is(err, service.ErrICSSourceMissing):
		response.BadRequest(c, 14002, "需提供 ICS 地址或内容")
	case errors.Is(err, service.ErrICSNoEvents):
		response.BadRequest(c, 14003, "ICS 中未找到可导入的全天事件")
	default:
		response.InternalError(c)
	}
}
