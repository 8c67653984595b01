package model

import "time"

// Defense 待答辩论文，对应 defenses，由外部论文系统维护，本服务只读
type Defense struct {
	DefenseID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"defense_id"`
	Title     string    `gorm:"type:varchar(255);not null"                     json:"title"`
	AuthorID  *string   `gorm:"type:uuid"                                      json:"author_id,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (Defense) TableName() string { return "defenses" }
