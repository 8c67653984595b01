package dto

// ── 委员会分配 DTO ──

// AssignRoleRequest 分配委员会角色
type AssignRoleRequest struct {
	TribunalID string `json:"tribunal_id" binding:"required,uuid"`
	UserID     string `json:"user_id"     binding:"required,uuid"`
	Role       string `json:"role"        binding:"required,oneof=president secretary vocal"`
}

// CommitteeResponse 委员会成员
type CommitteeResponse struct {
	ID         string `json:"id"`
	TribunalID string `json:"tribunal_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	Role       string `json:"role"`
	CreatedAt  string `json:"created_at"`
}

// StaffingResponse 委员会配备状态
type StaffingResponse struct {
	Count int    `json:"count"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Ready bool   `json:"ready"`
	Full  bool   `json:"full"`
	State string `json:"state"` // unstaffed | partially_staffed | ready | full
	Rule  string `json:"rule"`  // quorum | composition
}
