package model

// Track 答辩分组（按主题划分时段），对应 tracks
type Track struct {
	TrackID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"track_id"`
	Title      string `gorm:"type:varchar(100);not null"                     json:"title"`
	SemesterID string `gorm:"type:uuid;not null;index"                       json:"semester_id"`
	BaseModel

	// 关联
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (Track) TableName() string { return "tracks" }
