package dto

// ── 时段模块 DTO ──

// CreateSlotRequest 创建时段请求
type CreateSlotRequest struct {
	TrackID   string `json:"track_id"   binding:"required,uuid"`
	Date      string `json:"date"       binding:"required,isodate"`
	StartTime string `json:"start_time" binding:"required,clock"`
	EndTime   string `json:"end_time"   binding:"required,clock"`
	Room      string `json:"room"       binding:"required,min=1,max=100"`
	Capacity  *int   `json:"capacity"   binding:"omitempty,min=1,max=50"` // 缺省取配置默认值
}

// UpdateSlotRequest 部分更新时段，校验基于合并后的最终状态
type UpdateSlotRequest struct {
	TrackID   *string `json:"track_id"   binding:"omitempty,uuid"`
	Date      *string `json:"date"       binding:"omitempty,isodate"`
	StartTime *string `json:"start_time" binding:"omitempty,clock"`
	EndTime   *string `json:"end_time"   binding:"omitempty,clock"`
	Room      *string `json:"room"       binding:"omitempty,min=1,max=100"`
	Capacity  *int    `json:"capacity"   binding:"omitempty,min=1,max=50"`
}

// SlotListRequest 时段列表查询参数
type SlotListRequest struct {
	SemesterID string `form:"semester_id" binding:"omitempty,uuid"`
	TrackID    string `form:"track_id"    binding:"omitempty,uuid"`
	Date       string `form:"date"        binding:"omitempty,isodate"`
	Room       string `form:"room"        binding:"omitempty,max=100"`
}

// AvailabilityScope 可用性查询范围：指定学期，或按日期解析当前学期
type AvailabilityScope struct {
	SemesterID string `form:"term"  binding:"omitempty,uuid"`
	AsOf       string `form:"as_of" binding:"omitempty,isodate"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID        string          `json:"id"`
	TrackID   string          `json:"track_id"`
	Track     *TrackBrief     `json:"track,omitempty"`
	Date      string          `json:"date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Room      string          `json:"room"`
	Capacity  int             `json:"capacity"`
	Occupied  int             `json:"occupied"`
	IsFull    bool            `json:"is_full"`
	Version   int             `json:"version"`
	Tribunals []TribunalBrief `json:"tribunals,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}
