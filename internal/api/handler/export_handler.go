package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportSchedule 导出学期答辩安排
// GET /api/v1/export/schedule?semester_id=xxx
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportSchedule(c.Request.Context(), req.SemesterID)
	if err != nil {
		handleError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExportCalendar 导出评委日历
// GET /api/v1/export/calendar?user=&semester_id=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	body, filename, err := h.calendarSvc.Export(c.Request.Context(), &req, caller)
	if err != nil {
		handleError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, icsContentType, []byte(body))
}

// attachment 设置下载响应头
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
}
