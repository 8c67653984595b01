package model

import (
	"time"

	"defense-scheduler/internal/scheduling"
)

// Semester 学期答辩策略表，对应 semesters
type Semester struct {
	SemesterID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name              string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate         time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate           time.Time `gorm:"type:date;not null"                             json:"end_date"`
	PresentationStart time.Time `gorm:"type:date;not null"                             json:"presentation_start"`
	PresentationEnd   time.Time `gorm:"type:date;not null"                             json:"presentation_end"`
	DailyStart        string    `gorm:"type:time;not null"                             json:"daily_start"`
	DailyEnd          string    `gorm:"type:time;not null"                             json:"daily_end"`
	DurationMinutes   int       `gorm:"not null"                                       json:"duration_minutes"` // 单场答辩标准时长
	MinCommittee      int       `gorm:"not null;default:3"                             json:"min_committee"`
	MaxCommittee      int       `gorm:"not null;default:5"                             json:"max_committee"`
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// DailyBounds 每日可排时间范围
func (s *Semester) DailyBounds() (start, end scheduling.Clock, err error) {
	if start, err = scheduling.ParseClock(s.DailyStart); err != nil {
		return 0, 0, err
	}
	if end, err = scheduling.ParseClock(s.DailyEnd); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// InPresentationWindow 日期是否落在答辩窗口内
func (s *Semester) InPresentationWindow(d time.Time) bool {
	return scheduling.WithinDays(d, s.PresentationStart, s.PresentationEnd)
}

// Covers 日期是否在学期范围内
func (s *Semester) Covers(d time.Time) bool {
	return scheduling.WithinDays(d, s.StartDate, s.EndDate)
}
