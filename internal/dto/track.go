package dto

// ── 答辩分组 DTO ──

// CreateTrackRequest 创建分组请求
type CreateTrackRequest struct {
	Title      string `json:"title"       binding:"required,min=1,max=100"`
	SemesterID string `json:"semester_id" binding:"required,uuid"`
}

// UpdateTrackRequest 更新分组请求
type UpdateTrackRequest struct {
	Title      *string `json:"title"       binding:"omitempty,min=1,max=100"`
	SemesterID *string `json:"semester_id" binding:"omitempty,uuid"`
}

// TrackListRequest 分组列表查询参数
type TrackListRequest struct {
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
}

// TrackResponse 分组信息响应
type TrackResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	SemesterID string         `json:"semester_id"`
	Semester   *SemesterBrief `json:"semester,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// TrackBrief 分组简要信息
type TrackBrief struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
