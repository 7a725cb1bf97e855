package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dms_orgsync/internal/model"

	"gorm.io/gorm"
)

// memStore 是三个仓库共享的内存数据，employees 的删除模拟自引用外键的 RESTRICT 行为。
type memStore struct {
	users     []model.User
	positions map[string]*model.OrgPosition
	employees map[string]*model.Employee
	seq       int
}

func newMemStore(users ...model.User) *memStore {
	return &memStore{
		users:     users,
		positions: map[string]*model.OrgPosition{},
		employees: map[string]*model.Employee{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) employeeByCode(code string) *model.Employee {
	for _, e := range m.employees {
		if e.EmployeeCode == code {
			return e
		}
	}
	return nil
}

func (m *memStore) positionCode(id string) string {
	for code, p := range m.positions {
		if p.ID == id {
			return code
		}
	}
	return ""
}

// snapshot 返回与 id 无关的表内容，用于比较两次同步结果。
func (m *memStore) snapshot() []string {
	rows := make([]string, 0, len(m.employees))
	for _, e := range m.employees {
		manager := "<root>"
		if e.ManagerID != nil {
			manager = m.employees[*e.ManagerID].EmployeeCode
		}
		user := "<none>"
		if e.UserID != nil {
			user = *e.UserID
		}
		rows = append(rows, strings.Join([]string{
			e.EmployeeCode, e.Name, user, m.positionCode(e.PositionID), manager, string(e.Status),
		}, "|"))
	}
	sort.Strings(rows)
	return rows
}

type fakeUserRepo struct {
	store         *memStore
	findByEmailFn func(email string) (*model.User, error)
}

func (f *fakeUserRepo) FindActiveWithManager() ([]model.User, error) {
	byID := make(map[string]model.User, len(f.store.users))
	for _, u := range f.store.users {
		byID[u.ID] = u
	}
	var out []model.User
	for _, u := range f.store.users {
		if !u.IsActive {
			continue
		}
		if u.ManagerID != nil {
			if m, ok := byID[*u.ManagerID]; ok {
				manager := m
				u.Manager = &manager
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) FindActiveByRole(role string) ([]model.User, error) {
	var out []model.User
	for _, u := range f.store.users {
		if u.IsActive && NormalizeRole(u.Role) == NormalizeRole(role) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(email)
	}
	for _, u := range f.store.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePositionRepo struct {
	store        *memStore
	findByCodeFn func(code string) (*model.OrgPosition, error)
}

func (f *fakePositionRepo) Create(p *model.OrgPosition) error {
	if _, ok := f.store.positions[p.Code]; ok {
		return errors.New("duplicate position code")
	}
	if p.ID == "" {
		p.ID = "pos-" + strings.ToLower(p.Code)
	}
	cp := *p
	f.store.positions[p.Code] = &cp
	return nil
}

func (f *fakePositionRepo) FindByCode(code string) (*model.OrgPosition, error) {
	if f.findByCodeFn != nil {
		return f.findByCodeFn(code)
	}
	if p, ok := f.store.positions[code]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePositionRepo) FindAll() ([]model.OrgPosition, error) {
	out := make([]model.OrgPosition, 0, len(f.store.positions))
	for _, p := range f.store.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

type fakeEmployeeRepo struct {
	store *memStore

	createFn        func(e *model.Employee) error
	deleteAllFn     func() (int64, error)
	clearManagersFn func() (int64, error)

	deleteAllCalls     int
	clearManagersCalls int
	updateCalls        int
}

func (f *fakeEmployeeRepo) Create(e *model.Employee) error {
	if f.createFn != nil {
		if err := f.createFn(e); err != nil {
			return err
		}
	}
	if f.store.employeeByCode(e.EmployeeCode) != nil {
		return errors.New("duplicate employee code " + e.EmployeeCode)
	}
	if e.ID == "" {
		e.ID = f.store.nextID("emp")
	}
	cp := *e
	f.store.employees[e.ID] = &cp
	return nil
}

func (f *fakeEmployeeRepo) Update(e *model.Employee) error {
	f.updateCalls++
	if _, ok := f.store.employees[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *e
	f.store.employees[e.ID] = &cp
	return nil
}

func (f *fakeEmployeeRepo) SetManager(employeeID string, managerID *string) error {
	e, ok := f.store.employees[employeeID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if managerID == nil {
		e.ManagerID = nil
		return nil
	}
	id := *managerID
	e.ManagerID = &id
	return nil
}

// DeleteAll 默认行为：只要还有节点引用上级就失败，模拟一次性删除自引用表时的外键报错。
func (f *fakeEmployeeRepo) DeleteAll() (int64, error) {
	f.deleteAllCalls++
	if f.deleteAllFn != nil {
		return f.deleteAllFn()
	}
	for _, e := range f.store.employees {
		if e.ManagerID != nil {
			return 0, errors.New("foreign key constraint fails")
		}
	}
	n := int64(len(f.store.employees))
	f.store.employees = map[string]*model.Employee{}
	return n, nil
}

func (f *fakeEmployeeRepo) ClearManagers() (int64, error) {
	f.clearManagersCalls++
	if f.clearManagersFn != nil {
		return f.clearManagersFn()
	}
	var n int64
	for _, e := range f.store.employees {
		if e.ManagerID != nil {
			e.ManagerID = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeEmployeeRepo) FindAll() ([]model.Employee, error) {
	out := make([]model.Employee, 0, len(f.store.employees))
	for _, e := range f.store.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}

func (f *fakeEmployeeRepo) FindByID(id string) (*model.Employee, error) {
	if e, ok := f.store.employees[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepo) FindByCode(code string) (*model.Employee, error) {
	if e := f.store.employeeByCode(code); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepo) FindByUserID(userID string) (*model.Employee, error) {
	all, _ := f.FindAll()
	for _, e := range all {
		if e.UserID != nil && *e.UserID == userID {
			found := e
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepo) FindFirstByPositionID(positionID string) (*model.Employee, error) {
	all, _ := f.FindAll()
	for _, e := range all {
		if e.PositionID == positionID {
			found := e
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRepos struct {
	store     *memStore
	users     *fakeUserRepo
	positions *fakePositionRepo
	employees *fakeEmployeeRepo
}

func newFakeRepos(users ...model.User) *fakeRepos {
	store := newMemStore(users...)
	return &fakeRepos{
		store:     store,
		users:     &fakeUserRepo{store: store},
		positions: &fakePositionRepo{store: store},
		employees: &fakeEmployeeRepo{store: store},
	}
}

func (r *fakeRepos) syncService(policy *RolePolicy) OrgSyncService {
	return NewOrgSyncService(r.users, r.positions, r.employees, policy)
}

func (r *fakeRepos) employeeForUser(userID string) *model.Employee {
	for _, e := range r.store.employees {
		if e.UserID != nil && *e.UserID == userID {
			return e
		}
	}
	return nil
}

func strPtr(v string) *string {
	return &v
}

func activeUser(id, role string, managerID *string) model.User {
	return model.User{
		ID:        id,
		Name:      "User " + id,
		Username:  "user" + id,
		Email:     "user" + id + "@dms.vn",
		Role:      role,
		ManagerID: managerID,
		IsActive:  true,
	}
}
