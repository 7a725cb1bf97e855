package repository

import (
	"dms_orgsync/internal/model"
	"fmt"

	"gorm.io/gorm"
)

// EmployeeRepository 定义组织架构节点（employees 表）的持久化操作。
// 节点通过 ManagerID 自引用构成树。
type EmployeeRepository interface {
	Create(employee *model.Employee) error
	// Update 覆盖席位的全部业务字段（编码、姓名、联系方式、用户、职位、上级、状态）
	Update(employee *model.Employee) error
	// SetManager 只修改上级引用，managerID 为 nil 表示升为根节点
	SetManager(employeeID string, managerID *string) error

	// DeleteAll 删除全部节点，返回删除行数。
	// 自引用外键存在时部分数据库无法一次删除，调用方需要先 ClearManagers 再重试。
	DeleteAll() (int64, error)
	// ClearManagers 把所有节点的 manager_id 置空，解除自引用
	ClearManagers() (int64, error)

	FindAll() ([]model.Employee, error)
	FindByID(id string) (*model.Employee, error)
	FindByCode(code string) (*model.Employee, error)
	FindByUserID(userID string) (*model.Employee, error)
	// FindFirstByPositionID 按编码顺序返回该职位下的第一个节点
	FindFirstByPositionID(positionID string) (*model.Employee, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(employee *model.Employee) error {
	if employee == nil {
		return fmt.Errorf("employee is nil")
	}
	if employee.EmployeeCode == "" {
		return fmt.Errorf("employee code is required")
	}
	if employee.PositionID == "" {
		return fmt.Errorf("position id is required")
	}
	return r.db.Create(employee).Error
}

// Update 使用 Select 显式列出字段，确保 nil 的 user_id/manager_id 也会被写成 NULL。
// 如果 ID 不存在，返回 gorm.ErrRecordNotFound。
func (r *employeeRepository) Update(employee *model.Employee) error {
	if employee == nil {
		return fmt.Errorf("employee is nil")
	}
	if employee.ID == "" {
		return fmt.Errorf("employee id is required")
	}

	tx := r.db.Model(&model.Employee{}).
		Where("id = ?", employee.ID).
		Select("employee_code", "name", "email", "phone", "user_id", "position_id", "manager_id", "status").
		Updates(employee)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *employeeRepository) SetManager(employeeID string, managerID *string) error {
	if employeeID == "" {
		return fmt.Errorf("employee id is required")
	}

	tx := r.db.Model(&model.Employee{}).
		Where("id = ?", employeeID).
		Update("manager_id", managerID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *employeeRepository) DeleteAll() (int64, error) {
	res := r.db.Where("1 = 1").Delete(&model.Employee{})
	return res.RowsAffected, res.Error
}

func (r *employeeRepository) ClearManagers() (int64, error) {
	res := r.db.Model(&model.Employee{}).
		Where("manager_id IS NOT NULL").
		Update("manager_id", nil)
	return res.RowsAffected, res.Error
}

func (r *employeeRepository) FindAll() ([]model.Employee, error) {
	var employees []model.Employee
	if err := r.db.Order("employee_code ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *employeeRepository) FindByID(id string) (*model.Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("employee id is required")
	}

	var employee model.Employee
	if err := r.db.Where("id = ?", id).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindByCode(code string) (*model.Employee, error) {
	if code == "" {
		return nil, fmt.Errorf("employee code is required")
	}

	var employee model.Employee
	if err := r.db.Where("employee_code = ?", code).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindByUserID(userID string) (*model.Employee, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	var employee model.Employee
	if err := r.db.Where("user_id = ?", userID).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindFirstByPositionID(positionID string) (*model.Employee, error) {
	if positionID == "" {
		return nil, fmt.Errorf("position id is required")
	}

	var employee model.Employee
	if err := r.db.
		Where("position_id = ?", positionID).
		Order("employee_code ASC").
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}
