package service

import (
	"sort"
	"strings"
)

// 职位编码
const (
	PositionCEO    = "CEO"
	PositionBUHead = "BU_HEAD"
	PositionRSM    = "RSM"
	PositionASM    = "ASM"
	PositionSS     = "SS"
	PositionTDV    = "TDV"
)

// PositionSpec 是职位目录中的一项，Level 取其在 PositionCatalog 中的下标。
type PositionSpec struct {
	Code string
	Name string
}

// PositionCatalog 按资历从高到低排列，顺序即 Level。
var PositionCatalog = []PositionSpec{
	{Code: PositionCEO, Name: "Chief Executive Officer"},
	{Code: PositionBUHead, Name: "Business Unit Head"},
	{Code: PositionRSM, Name: "Regional Sales Manager"},
	{Code: PositionASM, Name: "Area Sales Manager"},
	{Code: PositionSS, Name: "Sales Supervisor"},
	{Code: PositionTDV, Name: "Medical Representative"},
}

// defaultRolePositions 是角色到职位的映射表。
// 不在表中但在白名单里的角色落到 fallback 职位。
var defaultRolePositions = map[string]string{
	"CEO":     PositionCEO,
	"BU_HEAD": PositionBUHead,
	"RSM":     PositionRSM,
	"ASM":     PositionASM,
	"SS":      PositionSS,
	"TDV":     PositionTDV,
	"ADMIN":   PositionBUHead,
	"QL":      PositionASM,
	"TSM":     PositionSS,
}

// RolePolicy 决定哪些账号进入组织架构，以及进入后占用哪个职位。
// DRIVER、KT、IT、仓库、财务等业务角色不在白名单内，同步时直接跳过。
type RolePolicy struct {
	allowed  map[string]struct{}
	mapping  map[string]string
	fallback string
}

// DefaultRolePolicy 返回默认白名单 {CEO, BU_HEAD, RSM, ASM, SS, TSM, TDV, ADMIN, QL}。
func DefaultRolePolicy() *RolePolicy {
	p := &RolePolicy{
		allowed:  make(map[string]struct{}, len(defaultRolePositions)),
		mapping:  make(map[string]string, len(defaultRolePositions)),
		fallback: PositionTDV,
	}
	for role, position := range defaultRolePositions {
		p.allowed[role] = struct{}{}
		p.mapping[role] = position
	}
	return p
}

// WithExtraRoles 返回一个追加了白名单角色的副本，追加的角色没有映射，会落到 fallback 职位。
func (p *RolePolicy) WithExtraRoles(roles ...string) *RolePolicy {
	cp := &RolePolicy{
		allowed:  make(map[string]struct{}, len(p.allowed)+len(roles)),
		mapping:  make(map[string]string, len(p.mapping)),
		fallback: p.fallback,
	}
	for role := range p.allowed {
		cp.allowed[role] = struct{}{}
	}
	for role, position := range p.mapping {
		cp.mapping[role] = position
	}
	for _, role := range roles {
		if r := NormalizeRole(role); r != "" {
			cp.allowed[r] = struct{}{}
		}
	}
	return cp
}

// Allowed 判断角色是否在白名单内（大小写不敏感）。
func (p *RolePolicy) Allowed(role string) bool {
	_, ok := p.allowed[NormalizeRole(role)]
	return ok
}

// PositionFor 返回角色对应的职位编码；mapped 为 false 表示使用了 fallback。
func (p *RolePolicy) PositionFor(role string) (code string, mapped bool) {
	if position, ok := p.mapping[NormalizeRole(role)]; ok {
		return position, true
	}
	return p.fallback, false
}

// AllowedRoles 返回排序后的白名单，用于日志输出。
func (p *RolePolicy) AllowedRoles() []string {
	roles := make([]string, 0, len(p.allowed))
	for role := range p.allowed {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// NormalizeRole 去除首尾空白并转大写。
func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
