package model

import "defense-scheduler/internal/scheduling"

// CommitteeAssignment 委员会成员角色分配，对应 committee_assignments
type CommitteeAssignment struct {
	AssignmentID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	TribunalID   string          `gorm:"type:uuid;not null;index"                       json:"tribunal_id"`
	UserID       string          `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Role         scheduling.Role `gorm:"type:varchar(20);not null"                      json:"role"` // president | secretary | vocal
	BaseModel

	// 关联
	User     *User     `gorm:"foreignKey:UserID;references:UserID"         json:"user,omitempty"`
	Tribunal *Tribunal `gorm:"foreignKey:TribunalID;references:TribunalID" json:"tribunal,omitempty"`
}

// TableName 指定表名
func (CommitteeAssignment) TableName() string { return "committee_assignments" }
