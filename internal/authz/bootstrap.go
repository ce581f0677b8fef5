package authz

import "fmt"

// 预置角色
const (
	RoleReadonlyAuditor  = "readonly_auditor"
	RoleAffiliateManager = "affiliate_manager"
	RoleCommissionAdmin  = "commission_admin"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     RoleAffiliateManager,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/affiliates", Action: "POST"},
				{Object: "/admin/affiliates/:id/tier", Action: "PUT"},
			},
		},
		{
			Role:     RoleCommissionAdmin,
			Inherits: []string{RoleAffiliateManager},
			Policies: []Policy{
				{Object: "/admin/commission-tiers", Action: "PUT"},
				{Object: "/admin/authz/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}

// BootstrapOperators 为尚未分配角色的操作人写入配置中的初始角色
// 已存在的分配保持不变，运行期调整不会被重启覆盖
func (s *Service) BootstrapOperators(operatorRoles map[string][]string) error {
	for operator, roles := range operatorRoles {
		current, err := s.GetOperatorRoles(operator)
		if err != nil {
			return err
		}
		if len(current) > 0 {
			continue
		}
		if err := s.SetOperatorRoles(operator, roles); err != nil {
			return fmt.Errorf("bootstrap operator %s failed: %w", operator, err)
		}
	}
	return nil
}
