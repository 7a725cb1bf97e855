package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgPosition 对应 org_positions 表，是职位目录。Level 越小越高级。
type OrgPosition struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Level     int       `gorm:"not null;default:0" json:"level"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (OrgPosition) TableName() string {
	return "org_positions"
}

func (p *OrgPosition) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
