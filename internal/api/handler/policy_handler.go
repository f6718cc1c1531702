package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/service"
	"placetrack/backend/pkg/response"
)

// PolicyHandler 考勤规则配置 HTTP 处理器
type PolicyHandler struct {
	policySvc service.PolicyService
}

// NewPolicyHandler 创建 PolicyHandler
func NewPolicyHandler(policySvc service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policySvc: policySvc}
}

// GetPolicy 查询当前生效的考勤规则
// GET /api/v1/attendance/policy
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	result, err := h.policySvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// UpdatePolicy 更新考勤规则（仅管理员）
// PUT /api/v1/attendance/policy
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.policySvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		if errors.Is(err, service.ErrPolicyInvalidCutoff) {
			response.BadRequest(c, 15001, "迟到截止时刻格式无效，应为 HH:MM")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
