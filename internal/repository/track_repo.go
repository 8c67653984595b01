package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"defense-scheduler/internal/model"
)

// TrackRepository 答辩分组数据访问接口
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id string) (*model.Track, error)
	GetForUpdate(ctx context.Context, id string) (*model.Track, error)
	List(ctx context.Context, semesterID string) ([]model.Track, error)
	Update(ctx context.Context, track *model.Track) error
	Delete(ctx context.Context, id string) error
	CountBySemester(ctx context.Context, semesterID string) (int64, error)
}

type trackRepo struct {
	db *gorm.DB
}

// NewTrackRepo 创建 TrackRepository 实例
func NewTrackRepo(db *gorm.DB) TrackRepository {
	return &trackRepo{db: db}
}

func (r *trackRepo) Create(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

func (r *trackRepo) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Preload("Semester").
		Where("track_id = ?", id).
		First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *trackRepo) GetForUpdate(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("track_id = ?", id).
		First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *trackRepo) List(ctx context.Context, semesterID string) ([]model.Track, error) {
	var tracks []model.Track
	db := r.db.WithContext(ctx)
	if semesterID != "" {
		db = db.Where("semester_id = ?", semesterID)
	}
	err := db.Order("title ASC").Find(&tracks).Error
	return tracks, err
}

func (r *trackRepo) Update(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).
		Model(&model.Track{}).
		Where("track_id = ?", track.TrackID).
		Updates(map[string]interface{}{
			"title":       track.Title,
			"semester_id": track.SemesterID,
			"updated_by":  track.UpdatedBy,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *trackRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("track_id = ?", id).
		Delete(&model.Track{}).Error
}

func (r *trackRepo) CountBySemester(ctx context.Context, semesterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Track{}).
		Where("semester_id = ?", semesterID).
		Count(&count).Error
	return count, err
}
