package handler

import (
	"github.com/gin-gonic/gin"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/service"
	"defense-scheduler/pkg/response"
)

// CommitteeHandler 委员会分配 HTTP 处理器
type CommitteeHandler struct {
	committeeSvc service.CommitteeService
}

// NewCommitteeHandler 创建 CommitteeHandler
func NewCommitteeHandler(committeeSvc service.CommitteeService) *CommitteeHandler {
	return &CommitteeHandler{committeeSvc: committeeSvc}
}

// AssignRole 分配委员会角色；教师只能为自己认领
// POST /api/v1/committees
func (h *CommitteeHandler) AssignRole(c *gin.Context) {
	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	assignment, err := h.committeeSvc.Assign(c.Request.Context(), &req, caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, assignment)
}

// Unassign DELETE /api/v1/committees/:id
func (h *CommitteeHandler) Unassign(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.committeeSvc.Unassign(c.Request.Context(), c.Param("id"), caller); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListMembers GET /api/v1/tribunals/:id/committee
func (h *CommitteeHandler) ListMembers(c *gin.Context) {
	members, err := h.committeeSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// GetStaffing 人数、就绪与满员状态
// GET /api/v1/tribunals/:id/staffing
func (h *CommitteeHandler) GetStaffing(c *gin.Context) {
	staffing, err := h.committeeSvc.Staffing(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, staffing)
}
