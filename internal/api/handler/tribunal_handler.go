package handler

import (
	"github.com/gin-gonic/gin"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/service"
	"defense-scheduler/pkg/response"
)

// TribunalHandler 答辩放置 HTTP 处理器
type TribunalHandler struct {
	tribunalSvc service.TribunalService
}

// NewTribunalHandler 创建 TribunalHandler
func NewTribunalHandler(tribunalSvc service.TribunalService) *TribunalHandler {
	return &TribunalHandler{tribunalSvc: tribunalSvc}
}

// ListTribunals GET /api/v1/tribunals?slot_id=&track_id=&semester_id=
func (h *TribunalHandler) ListTribunals(c *gin.Context) {
	var req dto.TribunalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	tribunals, err := h.tribunalSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tribunals})
}

// GetTribunal GET /api/v1/tribunals/:id
func (h *TribunalHandler) GetTribunal(c *gin.Context) {
	tribunal, err := h.tribunalSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, tribunal)
}

// PlaceTribunal 将答辩放入时段
// POST /api/v1/tribunals
func (h *TribunalHandler) PlaceTribunal(c *gin.Context) {
	var req dto.CreateTribunalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tribunal, err := h.tribunalSvc.Place(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, tribunal)
}

// UpdateTribunal 调整序号或时段
// PATCH /api/v1/tribunals/:id
func (h *TribunalHandler) UpdateTribunal(c *gin.Context) {
	var req dto.UpdateTribunalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tribunal, err := h.tribunalSvc.UpdatePlacement(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, tribunal)
}

// MoveTribunal POST /api/v1/tribunals/:id/move
func (h *TribunalHandler) MoveTribunal(c *gin.Context) {
	var req dto.MoveTribunalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tribunal, err := h.tribunalSvc.Move(c.Request.Context(), c.Param("id"), req.SlotID, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, tribunal)
}

// RemoveTribunal DELETE /api/v1/tribunals/:id
func (h *TribunalHandler) RemoveTribunal(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.tribunalSvc.Remove(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}
