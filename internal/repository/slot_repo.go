package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"defense-scheduler/internal/model"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
)

// SlotFilter 时段列表筛选条件，零值字段不参与筛选
type SlotFilter struct {
	SemesterID string
	TrackID    string
	Room       string
	Date       *time.Time
}

// SlotRepository 时段数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	// GetForUpdate 以 SELECT ... FOR UPDATE 读取，须在事务内调用
	GetForUpdate(ctx context.Context, id string) (*model.Slot, error)
	List(ctx context.Context, filter SlotFilter) ([]model.Slot, error)
	// ListByRoomDate 同教室同日期的其他时段，excludeID 为空时不排除
	ListByRoomDate(ctx context.Context, room string, date time.Time, excludeID string) ([]model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id string) error
	CountByTrack(ctx context.Context, trackID string) (int64, error)
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(slot).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Preload("Track").
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) GetForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) List(ctx context.Context, filter SlotFilter) ([]model.Slot, error) {
	var slots []model.Slot
	db := r.db.WithContext(ctx).Model(&model.Slot{})

	if filter.SemesterID != "" {
		db = db.Joins("JOIN tracks ON tracks.track_id = slots.track_id").
			Where("tracks.semester_id = ?", filter.SemesterID)
	}
	if filter.TrackID != "" {
		db = db.Where("slots.track_id = ?", filter.TrackID)
	}
	if filter.Room != "" {
		db = db.Where("slots.room = ?", filter.Room)
	}
	if filter.Date != nil {
		db = db.Where("slots.date = ?", scheduling.FormatDate(*filter.Date))
	}

	err := db.Select("slots.*").
		Preload("Track").
		Order("slots.date ASC, slots.start_time ASC, slots.room ASC").
		Find(&slots).Error
	return slots, err
}

func (r *slotRepo) ListByRoomDate(ctx context.Context, room string, date time.Time, excludeID string) ([]model.Slot, error) {
	var slots []model.Slot
	db := r.db.WithContext(ctx).
		Where("room = ? AND date = ?", room, scheduling.FormatDate(date))
	if excludeID != "" {
		db = db.Where("slot_id <> ?", excludeID)
	}
	err := db.Order("start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *slotRepo) Update(ctx context.Context, slot *model.Slot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("slot_id = ? AND version = ?", slot.SlotID, oldVersion).
		Updates(map[string]interface{}{
			"track_id":   slot.TrackID,
			"date":       scheduling.FormatDate(slot.Date),
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"room":       slot.Room,
			"capacity":   slot.Capacity,
			"updated_by": slot.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version = oldVersion + 1
	return nil
}

func (r *slotRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("slot_id = ?", id).
		Delete(&model.Slot{}).Error
}

func (r *slotRepo) CountByTrack(ctx context.Context, trackID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("track_id = ?", trackID).
		Count(&count).Error
	return count, err
}
