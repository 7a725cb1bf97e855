package service

import (
	"errors"
	"fmt"
	"strings"

	"dms_orgsync/internal/model"
	"dms_orgsync/internal/repository"
	"dms_orgsync/pkg/log"

	"gorm.io/gorm"
)

// OrgSyncService 负责从账号目录推导组织架构树（employees 表）。
// 三种入口：
// 1. FullResync：清空并按 users 重建，幂等。
// 2. BuildChart：按调用方给定的席位列表创建或更新节点，可声明空缺席位，不删除任何数据。
// 3. LinkRole：只为缺少节点的账号补建节点、补齐缺失的关联，只增不改。
// 所有操作都是顺序执行，不包事务，中途失败后重新执行即可。
type OrgSyncService interface {
	FullResync() (*SyncReport, error)
	BuildChart(seats []ChartSeat) (*ChartReport, error)
	LinkRole(opts LinkOptions) (*LinkReport, error)
}

// SyncReport 是一次全量同步的结果统计。
type SyncReport struct {
	Deleted          int64
	PositionsCreated int
	Created          int
	Skipped          int
	Linked           int
	Roots            int
}

// ChartSeat 描述一个手工声明的席位。
// ManagerID 优先于 ManagerCode；LinkedEmail 为空或找不到账号时席位为 VACANT。
type ChartSeat struct {
	Code         string  `yaml:"code"`
	Name         string  `yaml:"name"`
	PositionCode string  `yaml:"position"`
	ManagerID    *string `yaml:"manager_id"`
	ManagerCode  string  `yaml:"manager"`
	LinkedEmail  string  `yaml:"email"`
}

// ChartReport 是 BuildChart 的结果统计。
type ChartReport struct {
	Created int
	Updated int
	Active  int
	Vacant  int
}

// LinkOptions 控制增量挂接。
// ManagerPositionCodes 按优先级排列，越靠前越具体。
type LinkOptions struct {
	Role                 string
	PositionCode         string
	ManagerPositionCodes []string
}

// DefaultLinkOptions 把新增的 TDV 账号挂到第一个 SS 下，没有 SS 时挂到 ASM 下。
func DefaultLinkOptions() LinkOptions {
	return LinkOptions{
		Role:                 "TDV",
		PositionCode:         PositionTDV,
		ManagerPositionCodes: []string{PositionSS, PositionASM},
	}
}

// LinkReport 是 LinkRole 的结果统计。
type LinkReport struct {
	Created   int
	Updated   int
	Unchanged int
	// Skipped 按编码匹配到的节点已关联其他账号
	Skipped int
}

type orgSyncService struct {
	userRepo     repository.UserRepository
	positionRepo repository.OrgPositionRepository
	employeeRepo repository.EmployeeRepository
	policy       *RolePolicy
}

// NewOrgSyncService 创建同步服务，policy 为 nil 时使用 DefaultRolePolicy。
func NewOrgSyncService(
	userRepo repository.UserRepository,
	positionRepo repository.OrgPositionRepository,
	employeeRepo repository.EmployeeRepository,
	policy *RolePolicy,
) OrgSyncService {
	if policy == nil {
		policy = DefaultRolePolicy()
	}
	return &orgSyncService{
		userRepo:     userRepo,
		positionRepo: positionRepo,
		employeeRepo: employeeRepo,
		policy:       policy,
	}
}

func (s *orgSyncService) ready() bool {
	return s.userRepo != nil && s.positionRepo != nil && s.employeeRepo != nil
}

// FullResync 全量重建组织架构。
// 步骤：
// 1. 读取全部启用账号（含直属上级），按白名单筛选并检查汇报链是否有环，有环则在任何写操作之前拒绝。
// 2. 补齐职位目录。
// 3. 清空 employees 表（失败时先断开上级引用再删）。
// 4. 第一遍为每个入选账号创建节点，记录 userID -> employeeID。
// 5. 第二遍挂接上级：上级也入选时才挂，否则该节点成为根节点。
func (s *orgSyncService) FullResync() (*SyncReport, error) {
	if !s.ready() {
		return nil, ErrInternal
	}
	report := &SyncReport{}

	users, err := s.userRepo.FindActiveWithManager()
	if err != nil {
		return nil, fmt.Errorf("load active users: %w", err)
	}
	log.Infow("Loaded active users", "count", len(users), "allowed_roles", s.policy.AllowedRoles())

	included := make([]model.User, 0, len(users))
	for _, u := range users {
		if !s.policy.Allowed(u.Role) {
			report.Skipped++
			log.Debugw("Skipping user with excluded role", "user_id", u.ID, "username", u.Username, "role", u.Role)
			continue
		}
		included = append(included, u)
	}
	if err := detectManagerCycle(included); err != nil {
		return nil, err
	}

	positionIDs, created, err := s.ensurePositions()
	if err != nil {
		return nil, err
	}
	report.PositionsCreated = created

	deleted, err := s.teardown()
	if err != nil {
		return nil, err
	}
	report.Deleted = deleted

	employeeByUser := make(map[string]string, len(included))
	for _, u := range included {
		positionCode, mapped := s.policy.PositionFor(u.Role)
		if !mapped {
			log.Warnw("Role has no position mapping, using fallback", "user_id", u.ID, "role", u.Role, "position", positionCode)
		}

		userID := u.ID
		employee := &model.Employee{
			EmployeeCode: deriveEmployeeCode(u),
			Name:         displayName(u),
			Email:        u.Email,
			Phone:        u.Phone,
			UserID:       &userID,
			PositionID:   positionIDs[positionCode],
			Status:       model.EmployeeStatusActive,
		}
		if err := s.employeeRepo.Create(employee); err != nil {
			return nil, fmt.Errorf("create employee for user %s: %w", u.ID, err)
		}
		employeeByUser[u.ID] = employee.ID
		report.Created++
		log.Infow("Created employee", "code", employee.EmployeeCode, "name", employee.Name, "position", positionCode)
	}

	for _, u := range included {
		employeeID := employeeByUser[u.ID]
		if u.ManagerID == nil || *u.ManagerID == "" {
			report.Roots++
			continue
		}
		managerEmployeeID, ok := employeeByUser[*u.ManagerID]
		if !ok {
			// 上级被白名单过滤或已停用：该节点提升为根节点，这是预期行为
			report.Roots++
			fields := []interface{}{"user_id", u.ID, "manager_id", *u.ManagerID}
			if u.Manager != nil {
				fields = append(fields, "manager_role", u.Manager.Role, "manager_active", u.Manager.IsActive)
			}
			log.Infow("Manager not in org tree, employee becomes a root", fields...)
			continue
		}
		if err := s.employeeRepo.SetManager(employeeID, &managerEmployeeID); err != nil {
			return nil, fmt.Errorf("link employee for user %s: %w", u.ID, err)
		}
		report.Linked++
	}

	log.Infow("Full resync completed",
		"deleted", report.Deleted,
		"positions_created", report.PositionsCreated,
		"created", report.Created,
		"skipped", report.Skipped,
		"linked", report.Linked,
		"roots", report.Roots,
	)
	return report, nil
}

// teardown 两阶段清空：直接删除失败（自引用外键）时先把 manager_id 全部置空再删一次。
func (s *orgSyncService) teardown() (int64, error) {
	deleted, err := s.employeeRepo.DeleteAll()
	if err == nil {
		log.Infow("Deleted existing employees", "count", deleted)
		return deleted, nil
	}
	log.Warnw("Deleting employees failed, clearing manager links and retrying", "error", err)

	if _, err := s.employeeRepo.ClearManagers(); err != nil {
		return 0, fmt.Errorf("%w: clear manager links: %w", ErrTeardownFailed, err)
	}
	deleted, err = s.employeeRepo.DeleteAll()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTeardownFailed, err)
	}
	log.Infow("Deleted existing employees after clearing manager links", "count", deleted)
	return deleted, nil
}

// ensurePositions 补齐 PositionCatalog 中缺失的职位，返回 code -> id 以及新建数量。
func (s *orgSyncService) ensurePositions() (map[string]string, int, error) {
	ids := make(map[string]string, len(PositionCatalog))
	created := 0
	for level, spec := range PositionCatalog {
		position, err := s.positionRepo.FindByCode(spec.Code)
		if err == nil && position != nil {
			ids[spec.Code] = position.ID
			continue
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("find position %s: %w", spec.Code, err)
		}

		position = &model.OrgPosition{
			Code:     spec.Code,
			Name:     spec.Name,
			Level:    level,
			IsActive: true,
		}
		if err := s.positionRepo.Create(position); err != nil {
			return nil, 0, fmt.Errorf("create position %s: %w", spec.Code, err)
		}
		ids[spec.Code] = position.ID
		created++
		log.Infow("Created position", "code", spec.Code, "level", level)
	}
	return ids, created, nil
}

// BuildChart 按席位列表创建或更新节点。
// 席位按顺序处理，因此 ManagerCode 可以引用同一批次中排在前面的席位。
// 同样的输入重复执行得到同样的结果。
func (s *orgSyncService) BuildChart(seats []ChartSeat) (*ChartReport, error) {
	if !s.ready() {
		return nil, ErrInternal
	}

	positionIDs, _, err := s.ensurePositions()
	if err != nil {
		return nil, err
	}

	report := &ChartReport{}
	for i, seat := range seats {
		code := strings.TrimSpace(seat.Code)
		name := strings.TrimSpace(seat.Name)
		positionCode := NormalizeRole(seat.PositionCode)
		if code == "" || name == "" || positionCode == "" {
			return nil, fmt.Errorf("seat #%d: %w", i+1, ErrInvalidInput)
		}

		positionID, ok := positionIDs[positionCode]
		if !ok {
			return nil, fmt.Errorf("seat %s: %w: %s", code, ErrPositionNotFound, positionCode)
		}

		employee, err := s.employeeRepo.FindByCode(code)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find employee %s: %w", code, err)
		}
		isNew := employee == nil

		managerID, err := s.resolveSeatManager(code, seat)
		if err != nil {
			return nil, err
		}
		if !isNew && managerID != nil {
			if err := s.checkManagerChain(employee, *managerID); err != nil {
				return nil, err
			}
		}

		linked, err := s.resolveLinkedUser(code, seat.LinkedEmail)
		if err != nil {
			return nil, err
		}
		if isNew {
			employee = &model.Employee{EmployeeCode: code}
		}

		employee.Name = name
		employee.PositionID = positionID
		employee.ManagerID = managerID
		if linked != nil {
			userID := linked.ID
			employee.UserID = &userID
			employee.Email = linked.Email
			employee.Phone = linked.Phone
			employee.Status = model.EmployeeStatusActive
			report.Active++
		} else {
			employee.UserID = nil
			employee.Email = ""
			employee.Phone = ""
			employee.Status = model.EmployeeStatusVacant
			report.Vacant++
		}

		if isNew {
			if err := s.employeeRepo.Create(employee); err != nil {
				return nil, fmt.Errorf("create employee %s: %w", code, err)
			}
			report.Created++
			log.Infow("Created seat", "code", code, "position", positionCode, "status", employee.Status)
		} else {
			if err := s.employeeRepo.Update(employee); err != nil {
				return nil, fmt.Errorf("update employee %s: %w", code, err)
			}
			report.Updated++
			log.Infow("Updated seat", "code", code, "position", positionCode, "status", employee.Status)
		}
	}

	log.Infow("Org chart construction completed",
		"created", report.Created,
		"updated", report.Updated,
		"active", report.Active,
		"vacant", report.Vacant,
	)
	return report, nil
}

func (s *orgSyncService) resolveSeatManager(code string, seat ChartSeat) (*string, error) {
	if seat.ManagerID != nil {
		if id := strings.TrimSpace(*seat.ManagerID); id != "" {
			if _, err := s.employeeRepo.FindByID(id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("seat %s: %w: %s", code, ErrManagerNotFound, id)
				}
				return nil, fmt.Errorf("find manager %s: %w", id, err)
			}
			return &id, nil
		}
	}

	managerCode := strings.TrimSpace(seat.ManagerCode)
	if managerCode == "" {
		return nil, nil
	}
	if managerCode == code {
		return nil, fmt.Errorf("seat %s manages itself: %w", code, ErrInvalidInput)
	}

	manager, err := s.employeeRepo.FindByCode(managerCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("seat %s: %w: %s", code, ErrManagerNotFound, managerCode)
		}
		return nil, fmt.Errorf("find manager %s: %w", managerCode, err)
	}
	managerID := manager.ID
	return &managerID, nil
}

// checkManagerChain 从新上级开始沿 manager_id 向上走，走回席位自身说明会形成环。
// 新建的席位还没有 id，不会被任何节点引用，无需检查。
func (s *orgSyncService) checkManagerChain(employee *model.Employee, managerID string) error {
	if managerID == employee.ID {
		return fmt.Errorf("seat %s manages itself: %w", employee.EmployeeCode, ErrInvalidInput)
	}

	visited := map[string]struct{}{}
	chain := []string{employee.EmployeeCode}
	cur := managerID
	for cur != "" {
		if _, seen := visited[cur]; seen {
			// 上方已有的环与本席位无关，交给 tree 报告
			return nil
		}
		visited[cur] = struct{}{}

		manager, err := s.employeeRepo.FindByID(cur)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("find manager %s: %w", cur, err)
		}
		chain = append(chain, manager.EmployeeCode)
		if manager.ID == employee.ID {
			return fmt.Errorf("%w: %s", ErrManagerCycle, strings.Join(chain, " -> "))
		}
		if manager.ManagerID == nil {
			return nil
		}
		cur = *manager.ManagerID
	}
	return nil
}

// resolveLinkedUser 找不到邮箱对应的账号只记警告，席位按空缺处理。
func (s *orgSyncService) resolveLinkedUser(code, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnw("Linked user not found, seat will be vacant", "code", code, "email", email)
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}
	return user, nil
}

// LinkRole 为指定角色中尚未进入组织架构的账号补建节点。
// 只处理启用账号，停用账号不会被补建。
// 已存在的节点只补齐空的 user_id / manager_id，已有值从不覆盖。
func (s *orgSyncService) LinkRole(opts LinkOptions) (*LinkReport, error) {
	if !s.ready() {
		return nil, ErrInternal
	}
	role := NormalizeRole(opts.Role)
	positionCode := NormalizeRole(opts.PositionCode)
	if role == "" || positionCode == "" {
		return nil, ErrInvalidInput
	}

	position, err := s.positionRepo.FindByCode(positionCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, positionCode)
		}
		return nil, fmt.Errorf("find position %s: %w", positionCode, err)
	}

	manager, err := s.findDefaultManager(opts.ManagerPositionCodes)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		log.Warnw("No manager employee found, new employees will be roots", "manager_positions", opts.ManagerPositionCodes)
	}

	users, err := s.userRepo.FindActiveByRole(role)
	if err != nil {
		return nil, fmt.Errorf("load users with role %s: %w", role, err)
	}

	report := &LinkReport{}
	for _, u := range users {
		employee, err := s.findEmployeeForUser(u)
		if err != nil {
			return nil, err
		}

		if employee != nil && employee.UserID != nil && *employee.UserID != "" && *employee.UserID != u.ID {
			report.Skipped++
			log.Warnw("Employee code is linked to another user, skipping",
				"code", employee.EmployeeCode, "user_id", u.ID, "linked_user_id", *employee.UserID)
			continue
		}

		if employee == nil {
			userID := u.ID
			employee = &model.Employee{
				EmployeeCode: deriveEmployeeCode(u),
				Name:         displayName(u),
				Email:        u.Email,
				Phone:        u.Phone,
				UserID:       &userID,
				PositionID:   position.ID,
				Status:       model.EmployeeStatusActive,
			}
			if manager != nil {
				managerID := manager.ID
				employee.ManagerID = &managerID
			}
			if err := s.employeeRepo.Create(employee); err != nil {
				return nil, fmt.Errorf("create employee for user %s: %w", u.ID, err)
			}
			report.Created++
			log.Infow("Created employee", "code", employee.EmployeeCode, "user_id", u.ID)
			continue
		}

		changed := false
		if employee.UserID == nil || *employee.UserID == "" {
			userID := u.ID
			employee.UserID = &userID
			employee.Status = model.EmployeeStatusActive
			changed = true
		}
		if (employee.ManagerID == nil || *employee.ManagerID == "") && manager != nil && manager.ID != employee.ID {
			managerID := manager.ID
			employee.ManagerID = &managerID
			changed = true
		}
		if !changed {
			report.Unchanged++
			continue
		}
		if err := s.employeeRepo.Update(employee); err != nil {
			return nil, fmt.Errorf("update employee %s: %w", employee.EmployeeCode, err)
		}
		report.Updated++
		log.Infow("Filled missing links", "code", employee.EmployeeCode, "user_id", u.ID)
	}

	log.Infow("Incremental linkage completed",
		"role", role,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
	)
	return report, nil
}

// findDefaultManager 按优先级返回第一个有人占用的上级职位节点，全部没有时返回 nil。
func (s *orgSyncService) findDefaultManager(codes []string) (*model.Employee, error) {
	for _, code := range codes {
		code = NormalizeRole(code)
		if code == "" {
			continue
		}
		position, err := s.positionRepo.FindByCode(code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("find position %s: %w", code, err)
		}
		manager, err := s.employeeRepo.FindFirstByPositionID(position.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("find manager with position %s: %w", code, err)
		}
		return manager, nil
	}
	return nil, nil
}

// findEmployeeForUser 先按 user_id 匹配，再按员工编码匹配。
// 按编码匹配到的节点可能属于其他账号，由调用方判断。
func (s *orgSyncService) findEmployeeForUser(u model.User) (*model.Employee, error) {
	employee, err := s.employeeRepo.FindByUserID(u.ID)
	if err == nil {
		return employee, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find employee by user %s: %w", u.ID, err)
	}

	employee, err = s.employeeRepo.FindByCode(deriveEmployeeCode(u))
	if err == nil {
		return employee, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find employee by code for user %s: %w", u.ID, err)
	}
	return nil, nil
}

// deriveEmployeeCode 优先使用账号上的员工编码，缺失时由用户名（再不行由 id 前 8 位）派生。
func deriveEmployeeCode(u model.User) string {
	if u.EmployeeCode != nil {
		if code := strings.TrimSpace(*u.EmployeeCode); code != "" {
			return code
		}
	}
	if username := strings.TrimSpace(u.Username); username != "" {
		return "EMP_" + strings.ToUpper(username)
	}
	id := u.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "EMP_" + strings.ToUpper(id)
}

func displayName(u model.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}

// detectManagerCycle 检查入选账号之间的汇报链。只考虑上级也入选的边，
// 因为被过滤掉的上级不会出现在组织架构树里。
func detectManagerCycle(users []model.User) error {
	parent := make(map[string]string, len(users))
	for _, u := range users {
		parent[u.ID] = ""
	}
	for _, u := range users {
		if u.ManagerID == nil {
			continue
		}
		if _, ok := parent[*u.ManagerID]; ok {
			parent[u.ID] = *u.ManagerID
		}
	}

	const (
		unvisited = iota
		inPath
		done
	)
	state := make(map[string]int, len(users))
	for _, u := range users {
		if state[u.ID] != unvisited {
			continue
		}
		var path []string
		cur := u.ID
		for cur != "" && state[cur] == unvisited {
			state[cur] = inPath
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur != "" && state[cur] == inPath {
			// 从 cur 第一次出现的位置截取出环
			start := 0
			for i, id := range path {
				if id == cur {
					start = i
					break
				}
			}
			return fmt.Errorf("%w: %s", ErrManagerCycle, strings.Join(append(path[start:], cur), " -> "))
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return nil
}
