package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"defense-scheduler/internal/model"
)

// TribunalFilter 答辩列表筛选条件，零值字段不参与筛选
type TribunalFilter struct {
	SlotID     string
	TrackID    string
	SemesterID string
	IDs        []string
}

// TribunalRepository 答辩放置数据访问接口
type TribunalRepository interface {
	Create(ctx context.Context, tribunal *model.Tribunal) error
	// GetByID 预加载 Slot、Defense 与委员会成员
	GetByID(ctx context.Context, id string) (*model.Tribunal, error)
	GetForUpdate(ctx context.Context, id string) (*model.Tribunal, error)
	GetByDefense(ctx context.Context, defenseID string) (*model.Tribunal, error)
	List(ctx context.Context, filter TribunalFilter) ([]model.Tribunal, error)
	// ListBySlot 仅返回放置信息，按序号升序
	ListBySlot(ctx context.Context, slotID string) ([]model.Tribunal, error)
	Update(ctx context.Context, tribunal *model.Tribunal) error
	Delete(ctx context.Context, id string) error
	CountBySlot(ctx context.Context, slotID string) (int64, error)
	// CountBySlots 批量统计各时段已占用数，未出现的时段为 0
	CountBySlots(ctx context.Context, slotIDs []string) (map[string]int, error)
}

type tribunalRepo struct {
	db *gorm.DB
}

// NewTribunalRepo 创建 TribunalRepository 实例
func NewTribunalRepo(db *gorm.DB) TribunalRepository {
	return &tribunalRepo{db: db}
}

func (r *tribunalRepo) Create(ctx context.Context, tribunal *model.Tribunal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(tribunal).Error
}

func (r *tribunalRepo) GetByID(ctx context.Context, id string) (*model.Tribunal, error) {
	var tribunal model.Tribunal
	err := r.db.WithContext(ctx).
		Preload("Slot.Track.Semester").
		Preload("Defense").
		Preload("Committees.User").
		Where("tribunal_id = ?", id).
		First(&tribunal).Error
	if err != nil {
		return nil, err
	}
	return &tribunal, nil
}

func (r *tribunalRepo) GetForUpdate(ctx context.Context, id string) (*model.Tribunal, error) {
	var tribunal model.Tribunal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tribunal_id = ?", id).
		First(&tribunal).Error
	if err != nil {
		return nil, err
	}
	return &tribunal, nil
}

func (r *tribunalRepo) GetByDefense(ctx context.Context, defenseID string) (*model.Tribunal, error) {
	var tribunal model.Tribunal
	err := r.db.WithContext(ctx).
		Where("defense_id = ?", defenseID).
		First(&tribunal).Error
	if err != nil {
		return nil, err
	}
	return &tribunal, nil
}

func (r *tribunalRepo) List(ctx context.Context, filter TribunalFilter) ([]model.Tribunal, error) {
	var tribunals []model.Tribunal
	db := r.db.WithContext(ctx).
		Model(&model.Tribunal{}).
		Joins("JOIN slots ON slots.slot_id = tribunals.slot_id")

	if filter.SemesterID != "" {
		db = db.Joins("JOIN tracks ON tracks.track_id = slots.track_id").
			Where("tracks.semester_id = ?", filter.SemesterID)
	}
	if filter.TrackID != "" {
		db = db.Where("slots.track_id = ?", filter.TrackID)
	}
	if filter.SlotID != "" {
		db = db.Where("tribunals.slot_id = ?", filter.SlotID)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return tribunals, nil
		}
		db = db.Where("tribunals.tribunal_id IN ?", filter.IDs)
	}

	err := db.Select("tribunals.*").
		Preload("Slot.Track.Semester").
		Preload("Defense").
		Preload("Committees.User").
		Order("slots.date ASC, slots.start_time ASC, slots.room ASC, tribunals.index ASC").
		Find(&tribunals).Error
	return tribunals, err
}

func (r *tribunalRepo) ListBySlot(ctx context.Context, slotID string) ([]model.Tribunal, error) {
	var tribunals []model.Tribunal
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("index ASC").
		Find(&tribunals).Error
	return tribunals, err
}

func (r *tribunalRepo) Update(ctx context.Context, tribunal *model.Tribunal) error {
	return r.db.WithContext(ctx).
		Model(&model.Tribunal{}).
		Where("tribunal_id = ?", tribunal.TribunalID).
		Updates(map[string]interface{}{
			"slot_id":    tribunal.SlotID,
			"index":      tribunal.Index,
			"updated_by": tribunal.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *tribunalRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("tribunal_id = ?", id).
		Delete(&model.Tribunal{}).Error
}

func (r *tribunalRepo) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Tribunal{}).
		Where("slot_id = ?", slotID).
		Count(&count).Error
	return count, err
}

func (r *tribunalRepo) CountBySlots(ctx context.Context, slotIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SlotID string
		Count  int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Tribunal{}).
		Select("slot_id, COUNT(*) AS count").
		Where("slot_id IN ?", slotIDs).
		Group("slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SlotID] = row.Count
	}
	return counts, nil
}
