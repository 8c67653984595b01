package repository

import (
	"context"

	"gorm.io/gorm"

	"defense-scheduler/internal/model"
)

// DefenseRepository 答辩论文只读访问接口
type DefenseRepository interface {
	GetByID(ctx context.Context, id string) (*model.Defense, error)
}

type defenseRepo struct {
	db *gorm.DB
}

// NewDefenseRepo 创建 DefenseRepository 实例
func NewDefenseRepo(db *gorm.DB) DefenseRepository {
	return &defenseRepo{db: db}
}

func (r *defenseRepo) GetByID(ctx context.Context, id string) (*model.Defense, error) {
	var defense model.Defense
	err := r.db.WithContext(ctx).
		Where("defense_id = ?", id).
		First(&defense).Error
	if err != nil {
		return nil, err
	}
	return &defense, nil
}
