package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"defense-scheduler/internal/service"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester     *SemesterHandler
	Track        *TrackHandler
	Slot         *SlotHandler
	Tribunal     *TribunalHandler
	Committee    *CommitteeHandler
	Availability *AvailabilityHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合，loc 用于解析"今天"
func NewHandler(svc *service.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	now := func() time.Time { return time.Now().In(loc) }
	return &Handler{
		Semester:     NewSemesterHandler(svc.Semester, now),
		Track:        NewTrackHandler(svc.Track),
		Slot:         NewSlotHandler(svc.Slot),
		Tribunal:     NewTribunalHandler(svc.Tribunal),
		Committee:    NewCommitteeHandler(svc.Committee),
		Availability: NewAvailabilityHandler(svc.Availability),
		Export:       NewExportHandler(svc.Export, svc.Calendar),
	}
}

// ── 错误码 ──

const (
	codeBadRequest   = 10001
	codeValidation   = 40001
	codeForbidden    = 40301
	codeNotFound     = 40401
	codeConflict     = 40901
	codeDependency   = 40902
	codeInvalidDates = 40002
)

// handleError 按错误类别映射 HTTP 状态码，未归类错误一律 500
func handleError(c *gin.Context, err error) {
	var (
		ve *pkgerrors.ValidationError
		de *pkgerrors.DatesError
	)
	switch {
	case errors.As(err, &ve):
		response.ValidationFailed(c, codeValidation, "validation failed", ve.FieldMap())
	case errors.As(err, &de):
		c.JSON(http.StatusBadRequest, response.Response{
			Code:    codeInvalidDates,
			Message: de.Reason,
			Details: strings.Join(de.Dates, ", "),
			Errors:  map[string]string{"dates": de.Error()},
		})
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, codeValidation, err.Error())
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, codeForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrDependency):
		response.Conflict(c, codeDependency, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, codeConflict, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindError 将 binding 校验失败转为字段级错误响应
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(c, codeBadRequest, "malformed request")
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonFieldName(fe)] = describeTag(fe)
	}
	response.ValidationFailed(c, codeBadRequest, "invalid parameters", fields)
}

// jsonFieldName 将 StartTime 这类字段名转为 start_time
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "clock":
		return "must be HH:MM"
	case "isodate":
		return "must be YYYY-MM-DD"
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
