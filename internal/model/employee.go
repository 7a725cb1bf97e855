package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeStatus 描述组织架构中一个席位的占用状态。
type EmployeeStatus string

const (
	// EmployeeStatusActive 席位已关联到某个 User
	EmployeeStatusActive EmployeeStatus = "ACTIVE"
	// EmployeeStatusVacant 空缺席位，UserID 为空
	EmployeeStatusVacant EmployeeStatus = "VACANT"
)

// Employee 对应 employees 表，是组织架构树的节点。
// 通过 ManagerID 自引用构成树；Manager 关联只用于建表时生成外键约束，业务代码不加载它。
type Employee struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	EmployeeCode string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"employeeCode"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255)" json:"email"`
	Phone        string         `gorm:"type:varchar(32)" json:"phone"`
	UserID       *string        `gorm:"type:varchar(36);index" json:"userId"`
	PositionID   string         `gorm:"type:varchar(36);not null;index" json:"positionId"`
	ManagerID    *string        `gorm:"type:varchar(36);index" json:"managerId"`
	Manager      *Employee      `gorm:"foreignKey:ManagerID;constraint:OnDelete:RESTRICT" json:"-"`
	Status       EmployeeStatus `gorm:"type:varchar(16);not null;default:'ACTIVE'" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// EmployeeNode 是组织架构树的展示节点。
// 与 Employee 的区别：
//   - 附带职位编码和层级深度（根节点为 0）
//   - 增加 Children 字段，用于嵌套下属
type EmployeeNode struct {
	ID           string          `json:"id"`
	EmployeeCode string          `json:"employeeCode"`
	Name         string          `json:"name"`
	PositionCode string          `json:"positionCode"`
	Status       EmployeeStatus  `json:"status"`
	ManagerID    *string         `json:"managerId"`
	Depth        int             `json:"depth"`
	Children     []*EmployeeNode `json:"children"`
}

// TableName 指定 GORM 使用的表名
func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
