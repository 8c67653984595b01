package model

import (
	"time"

	"defense-scheduler/internal/scheduling"
)

// Slot 教室时段，对应 slots
// EndTime 在存在答辩后由放置操作重算，不以录入值为准
type Slot struct {
	SlotID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	TrackID   string    `gorm:"type:uuid;not null;index"                       json:"track_id"`
	Date      time.Time `gorm:"type:date;not null"                             json:"date"`
	StartTime string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime   string    `gorm:"type:time;not null"                             json:"end_time"`
	Room      string    `gorm:"type:varchar(100);not null"                     json:"room"`
	Capacity  int       `gorm:"not null;default:2"                             json:"capacity"`
	VersionedModel

	// 关联
	Track     *Track     `gorm:"foreignKey:TrackID;references:TrackID" json:"track,omitempty"`
	Tribunals []Tribunal `gorm:"foreignKey:SlotID"                     json:"tribunals,omitempty"`
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// Window 时段起止时刻
func (s *Slot) Window() (start, end scheduling.Clock, err error) {
	if start, err = scheduling.ParseClock(s.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = scheduling.ParseClock(s.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// DateString YYYY-MM-DD
func (s *Slot) DateString() string { return scheduling.FormatDate(s.Date) }
