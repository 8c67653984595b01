package handler

import (
	"github.com/gin-gonic/gin"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/service"
	"defense-scheduler/pkg/response"
)

// TrackHandler 方向分组 HTTP 处理器
type TrackHandler struct {
	trackSvc service.TrackService
}

// NewTrackHandler 创建 TrackHandler
func NewTrackHandler(trackSvc service.TrackService) *TrackHandler {
	return &TrackHandler{trackSvc: trackSvc}
}

// ListTracks GET /api/v1/tracks?semester_id=
func (h *TrackHandler) ListTracks(c *gin.Context) {
	var req dto.TrackListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	tracks, err := h.trackSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tracks})
}

// GetTrack GET /api/v1/tracks/:id
func (h *TrackHandler) GetTrack(c *gin.Context) {
	track, err := h.trackSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, track)
}

// CreateTrack POST /api/v1/tracks
func (h *TrackHandler) CreateTrack(c *gin.Context) {
	var req dto.CreateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	track, err := h.trackSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, track)
}

// UpdateTrack PATCH /api/v1/tracks/:id
func (h *TrackHandler) UpdateTrack(c *gin.Context) {
	var req dto.UpdateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	track, err := h.trackSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, track)
}

// DeleteTrack DELETE /api/v1/tracks/:id
func (h *TrackHandler) DeleteTrack(c *gin.Context) {
	if err := h.trackSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}
