package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"defense-scheduler/internal/model"
)

// CommitteeRepository 委员会分配数据访问接口
type CommitteeRepository interface {
	Create(ctx context.Context, assignment *model.CommitteeAssignment) error
	GetByID(ctx context.Context, id string) (*model.CommitteeAssignment, error)
	ListByTribunal(ctx context.Context, tribunalID string) ([]model.CommitteeAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]model.CommitteeAssignment, error)
	Delete(ctx context.Context, id string) error
	CountByTribunal(ctx context.Context, tribunalID string) (int64, error)
}

type committeeRepo struct {
	db *gorm.DB
}

// NewCommitteeRepo 创建 CommitteeRepository 实例
func NewCommitteeRepo(db *gorm.DB) CommitteeRepository {
	return &committeeRepo{db: db}
}

func (r *committeeRepo) Create(ctx context.Context, assignment *model.CommitteeAssignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(assignment).Error
}

func (r *committeeRepo) GetByID(ctx context.Context, id string) (*model.CommitteeAssignment, error) {
	var assignment model.CommitteeAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *committeeRepo) ListByTribunal(ctx context.Context, tribunalID string) ([]model.CommitteeAssignment, error) {
	var assignments []model.CommitteeAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("tribunal_id = ?", tribunalID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *committeeRepo) ListByUser(ctx context.Context, userID string) ([]model.CommitteeAssignment, error) {
	var assignments []model.CommitteeAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&assignments).Error
	return assignments, err
}

func (r *committeeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		Delete(&model.CommitteeAssignment{}).Error
}

func (r *committeeRepo) CountByTribunal(ctx context.Context, tribunalID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CommitteeAssignment{}).
		Where("tribunal_id = ?", tribunalID).
		Count(&count).Error
	return count, err
}
