package handler

import (
	"github.com/gin-gonic/gin"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/service"
	"defense-scheduler/pkg/response"
)

// AvailabilityHandler 可用性查询 HTTP 处理器
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// AvailableSlots 仍有空余序号的时段
// GET /api/v1/availability/slots?term=&as_of=
func (h *AvailabilityHandler) AvailableSlots(c *gin.Context) {
	var req dto.AvailabilityScope
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	slots, err := h.availabilitySvc.AvailableSlots(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// AvailableTribunals 评委可加入的答辩；user 缺省为当前用户
// GET /api/v1/availability/tribunals?user=&term=&as_of=
func (h *AvailabilityHandler) AvailableTribunals(c *gin.Context) {
	if c.Query("user") == "" {
		userID, ok := MustGetUserID(c)
		if !ok {
			return
		}
		q := c.Request.URL.Query()
		q.Set("user", userID)
		c.Request.URL.RawQuery = q.Encode()
	}

	var req dto.AvailableTribunalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	tribunals, err := h.availabilitySvc.AvailableTribunalsFor(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tribunals})
}

// ReadyTribunals GET /api/v1/availability/ready?track=&term=
func (h *AvailabilityHandler) ReadyTribunals(c *gin.Context) {
	var req dto.ReadyTribunalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	tribunals, err := h.availabilitySvc.ReadyTribunals(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tribunals})
}
