package dto

// ExportScheduleRequest 导出学期答辩安排
type ExportScheduleRequest struct {
	SemesterID string `form:"semester_id" binding:"required,uuid"`
}

// CalendarRequest 评委日历导出
type CalendarRequest struct {
	UserID     string `form:"user"        binding:"omitempty,uuid"` // 缺省为当前用户
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
}
