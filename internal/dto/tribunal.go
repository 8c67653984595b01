package dto

// ── 答辩放置 DTO ──

// CreateTribunalRequest 放置答辩请求，index 缺省时自动分配最小空闲序号
type CreateTribunalRequest struct {
	DefenseID string `json:"defense_id" binding:"required,uuid"`
	SlotID    string `json:"slot_id"    binding:"required,uuid"`
	Index     *int   `json:"index"      binding:"omitempty,min=1"`
}

// UpdateTribunalRequest 调整序号和/或迁移到其他时段
type UpdateTribunalRequest struct {
	SlotID *string `json:"slot_id" binding:"omitempty,uuid"`
	Index  *int    `json:"index"   binding:"omitempty,min=1"`
}

// MoveTribunalRequest 迁移到其他时段，序号自动分配
type MoveTribunalRequest struct {
	SlotID string `json:"slot_id" binding:"required,uuid"`
}

// TribunalListRequest 答辩列表查询参数
type TribunalListRequest struct {
	SlotID     string `form:"slot_id"     binding:"omitempty,uuid"`
	TrackID    string `form:"track_id"    binding:"omitempty,uuid"`
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
}

// AvailableTribunalsRequest 评委可加入的答辩
type AvailableTribunalsRequest struct {
	UserID string `form:"user" binding:"required,uuid"`
	AvailabilityScope
}

// ReadyTribunalsRequest 已就绪答辩筛选
type ReadyTribunalsRequest struct {
	TrackID    string `form:"track" binding:"omitempty,uuid"`
	SemesterID string `form:"term"  binding:"omitempty,uuid"`
}

// TribunalResponse 答辩放置信息响应
type TribunalResponse struct {
	ID        string              `json:"id"`
	DefenseID string              `json:"defense_id"`
	Title     string              `json:"title,omitempty"`
	SlotID    string              `json:"slot_id"`
	Index     int                 `json:"index"`
	Date      string              `json:"date"`
	Room      string              `json:"room"`
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Committee []CommitteeResponse `json:"committee"`
	Staffing  StaffingResponse    `json:"staffing"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

// TribunalBrief 答辩简要信息（嵌入时段详情）
type TribunalBrief struct {
	ID        string `json:"id"`
	DefenseID string `json:"defense_id"`
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
