package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期答辩策略请求
type CreateSemesterRequest struct {
	Name              string `json:"name"               binding:"required,min=2,max=100"`
	StartDate         string `json:"start_date"         binding:"required,isodate"` // "2025-02-03"
	EndDate           string `json:"end_date"           binding:"required,isodate"`
	PresentationStart string `json:"presentation_start" binding:"required,isodate"`
	PresentationEnd   string `json:"presentation_end"   binding:"required,isodate"`
	DailyStart        string `json:"daily_start"        binding:"required,clock"` // "09:00"
	DailyEnd          string `json:"daily_end"          binding:"required,clock"`
	DurationMinutes   int    `json:"duration_minutes"   binding:"required,min=1,max=480"`
	MinCommittee      int    `json:"min_committee"      binding:"required,min=1"`
	MaxCommittee      int    `json:"max_committee"      binding:"required,min=1"`
}

// UpdateSemesterRequest 更新学期请求，仅更新非空字段
type UpdateSemesterRequest struct {
	Name              *string `json:"name"               binding:"omitempty,min=2,max=100"`
	StartDate         *string `json:"start_date"         binding:"omitempty,isodate"`
	EndDate           *string `json:"end_date"           binding:"omitempty,isodate"`
	PresentationStart *string `json:"presentation_start" binding:"omitempty,isodate"`
	PresentationEnd   *string `json:"presentation_end"   binding:"omitempty,isodate"`
	DailyStart        *string `json:"daily_start"        binding:"omitempty,clock"`
	DailyEnd          *string `json:"daily_end"          binding:"omitempty,clock"`
	DurationMinutes   *int    `json:"duration_minutes"   binding:"omitempty,min=1,max=480"`
	MinCommittee      *int    `json:"min_committee"      binding:"omitempty,min=1"`
	MaxCommittee      *int    `json:"max_committee"      binding:"omitempty,min=1"`
}

// CurrentSemesterRequest 按日期解析当前学期
type CurrentSemesterRequest struct {
	AsOf string `form:"as_of" binding:"omitempty,isodate"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	PresentationStart string `json:"presentation_start"`
	PresentationEnd   string `json:"presentation_end"`
	DailyStart        string `json:"daily_start"`
	DailyEnd          string `json:"daily_end"`
	DurationMinutes   int    `json:"duration_minutes"`
	MinCommittee      int    `json:"min_committee"`
	MaxCommittee      int    `json:"max_committee"`
	Version           int    `json:"version"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// SemesterBrief 学期简要信息
type SemesterBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
