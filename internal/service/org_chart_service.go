package service

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"dms_orgsync/internal/model"
	"dms_orgsync/internal/repository"
)

// OrgChartService 读取已落库的组织架构并构建树。
type OrgChartService interface {
	GetTree() ([]*model.EmployeeNode, error)
	// Render 以缩进文本输出整棵树，每行：编码 姓名 [职位] (状态)
	Render(w io.Writer) error
}

type orgChartService struct {
	employeeRepo repository.EmployeeRepository
	positionRepo repository.OrgPositionRepository
}

func NewOrgChartService(employeeRepo repository.EmployeeRepository, positionRepo repository.OrgPositionRepository) OrgChartService {
	return &orgChartService{employeeRepo: employeeRepo, positionRepo: positionRepo}
}

// GetTree 构建组织架构森林。
// 实现分三步：
// 1. 创建所有节点并放入 map（id -> node）
// 2. 按 manager 关系挂子节点；上级为空或指向不存在的节点时作为根节点
// 3. 从根节点迭代遍历计算深度，遍历不到的节点说明存在环，直接报错
func (s *orgChartService) GetTree() ([]*model.EmployeeNode, error) {
	if s.employeeRepo == nil || s.positionRepo == nil {
		return nil, ErrInternal
	}

	employees, err := s.employeeRepo.FindAll()
	if err != nil {
		return nil, err
	}
	positions, err := s.positionRepo.FindAll()
	if err != nil {
		return nil, err
	}
	positionCodes := make(map[string]string, len(positions))
	for _, p := range positions {
		positionCodes[p.ID] = p.Code
	}

	nodes := make(map[string]*model.EmployeeNode, len(employees))
	for _, e := range employees {
		nodes[e.ID] = &model.EmployeeNode{
			ID:           e.ID,
			EmployeeCode: e.EmployeeCode,
			Name:         e.Name,
			PositionCode: positionCodes[e.PositionID],
			Status:       e.Status,
			ManagerID:    e.ManagerID,
			Children:     []*model.EmployeeNode{},
		}
	}

	roots := make([]*model.EmployeeNode, 0)
	for _, e := range employees {
		node := nodes[e.ID]
		if e.ManagerID != nil && *e.ManagerID != "" {
			if parent, ok := nodes[*e.ManagerID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	visited := make(map[string]struct{}, len(nodes))
	stack := make([]*model.EmployeeNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[node.ID]; seen {
			return nil, fmt.Errorf("%w: %s visited twice", ErrEmployeeCycle, node.EmployeeCode)
		}
		visited[node.ID] = struct{}{}
		for i := len(node.Children) - 1; i >= 0; i-- {
			child := node.Children[i]
			child.Depth = node.Depth + 1
			stack = append(stack, child)
		}
	}

	if len(visited) != len(nodes) {
		unreached := make([]string, 0, len(nodes)-len(visited))
		for id, node := range nodes {
			if _, ok := visited[id]; !ok {
				unreached = append(unreached, node.EmployeeCode)
			}
		}
		sort.Strings(unreached)
		return nil, fmt.Errorf("%w: %s", ErrEmployeeCycle, strings.Join(unreached, ", "))
	}
	return roots, nil
}

func (s *orgChartService) Render(w io.Writer) error {
	roots, err := s.GetTree()
	if err != nil {
		return err
	}

	var walk func(nodes []*model.EmployeeNode) error
	walk = func(nodes []*model.EmployeeNode) error {
		for _, n := range nodes {
			position := n.PositionCode
			if position == "" {
				position = "?"
			}
			if _, err := fmt.Fprintf(w, "%s%s %s [%s] (%s)\n",
				strings.Repeat("  ", n.Depth), n.EmployeeCode, n.Name, position, n.Status); err != nil {
				return err
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(roots)
}
