package repository

import (
	"dms_orgsync/internal/model"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// UserRepository 定义同步流程对 users 表的只读访问。
type UserRepository interface {
	// FindActiveWithManager 返回全部启用账号，并预加载直属上级
	FindActiveWithManager() ([]model.User, error)
	// FindActiveByRole 按角色（大小写不敏感）查找启用账号
	FindActiveByRole(role string) ([]model.User, error)
	FindByEmail(email string) (*model.User, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindActiveWithManager() ([]model.User, error) {
	var users []model.User
	if err := r.db.
		Preload("Manager").
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) FindActiveByRole(role string) ([]model.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return nil, fmt.Errorf("role is required")
	}

	var users []model.User
	if err := r.db.
		Where("UPPER(role) = ? AND is_active = ?", role, true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByEmail 按邮箱查找账号，找不到时返回 gorm.ErrRecordNotFound。
func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
