package repository

import (
	"dms_orgsync/internal/model"
	"fmt"

	"gorm.io/gorm"
)

// OrgPositionRepository 职位目录仓库。职位只会被创建，不会被删除。
type OrgPositionRepository interface {
	Create(position *model.OrgPosition) error
	FindByCode(code string) (*model.OrgPosition, error)
	FindAll() ([]model.OrgPosition, error)
}

type orgPositionRepository struct {
	db *gorm.DB
}

func NewOrgPositionRepository(db *gorm.DB) OrgPositionRepository {
	return &orgPositionRepository{db: db}
}

func (r *orgPositionRepository) Create(position *model.OrgPosition) error {
	if position == nil {
		return fmt.Errorf("position is nil")
	}
	if position.Code == "" {
		return fmt.Errorf("position code is required")
	}
	return r.db.Create(position).Error
}

func (r *orgPositionRepository) FindByCode(code string) (*model.OrgPosition, error) {
	if code == "" {
		return nil, fmt.Errorf("position code is required")
	}

	var position model.OrgPosition
	if err := r.db.Where("code = ?", code).First(&position).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *orgPositionRepository) FindAll() ([]model.OrgPosition, error) {
	var positions []model.OrgPosition
	if err := r.db.Order("level ASC").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
