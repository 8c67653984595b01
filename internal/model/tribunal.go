package model

// Tribunal 答辩放置：一场答辩在时段内的序号位置，对应 tribunals
type Tribunal struct {
	TribunalID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tribunal_id"`
	DefenseID  string `gorm:"type:uuid;not null;uniqueIndex"                 json:"defense_id"`
	SlotID     string `gorm:"type:uuid;not null;index"                       json:"slot_id"`
	Index      int    `gorm:"column:index;not null"                          json:"index"` // 1-based
	BaseModel

	// 关联
	Slot       *Slot                 `gorm:"foreignKey:SlotID;references:SlotID"       json:"slot,omitempty"`
	Defense    *Defense              `gorm:"foreignKey:DefenseID;references:DefenseID" json:"defense,omitempty"`
	Committees []CommitteeAssignment `gorm:"foreignKey:TribunalID"                     json:"committees,omitempty"`
}

// TableName 指定表名
func (Tribunal) TableName() string { return "tribunals" }
