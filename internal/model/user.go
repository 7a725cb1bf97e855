package model

import "time"

// User 对应账号子系统的 users 表。同步流程只读取，不写入。
// ManagerID 指向另一个 User，构成汇报链（可能是森林）。
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	EmployeeCode *string   `gorm:"type:varchar(64);uniqueIndex" json:"employeeCode"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Username     string    `gorm:"type:varchar(255);not null;unique" json:"username"`
	Email        string    `gorm:"type:varchar(255)" json:"email"`
	Phone        string    `gorm:"type:varchar(32)" json:"phone"`
	Role         string    `gorm:"type:varchar(32);index" json:"role"`
	ManagerID    *string   `gorm:"type:varchar(36);index" json:"managerId"`
	Manager      *User     `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (User) TableName() string {
	return "users"
}
