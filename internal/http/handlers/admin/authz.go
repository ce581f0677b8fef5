package admin

import (
	"github.com/affiliate-next/internal/authz"
	handlershared "github.com/affiliate-next/internal/http/handlers/shared"
	"github.com/affiliate-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

var authzErrorRules = []handlershared.MappedError{
	{Target: authz.ErrInvalidInput, Code: response.CodeBadRequest},
	{Target: authz.ErrUnavailable, Code: response.CodeServiceUnavailable},
}

// SetOperatorRolesRequest 设置操作人角色请求
type SetOperatorRolesRequest struct {
	Roles []string `json:"roles"`
}

// AuthzRole 角色及其直连策略
type AuthzRole struct {
	Role     string         `json:"role"`
	Policies []authz.Policy `json:"policies"`
}

// OperatorAuthz 操作人授权视图
type OperatorAuthz struct {
	Operator string         `json:"operator"`
	Roles    []string       `json:"roles"`
	Policies []authz.Policy `json:"policies"`
}

// ListAuthzRoles 列出角色与策略
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		handlershared.RespondMappedError(c, err, authzErrorRules, "authz role list failed")
		return
	}
	result := make([]AuthzRole, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			handlershared.RespondMappedError(c, err, authzErrorRules, "authz role list failed")
			return
		}
		result = append(result, AuthzRole{Role: role, Policies: policies})
	}
	response.Success(c, result)
}

// GetOperatorAuthz 查询操作人角色与生效策略
func (h *Handler) GetOperatorAuthz(c *gin.Context) {
	h.respondOperatorAuthz(c, c.Param("operator"))
}

// SetOperatorRoles 覆盖设置操作人角色
func (h *Handler) SetOperatorRoles(c *gin.Context) {
	var req SetOperatorRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	operator := c.Param("operator")
	if err := h.AuthzService.SetOperatorRoles(operator, req.Roles); err != nil {
		handlershared.RespondMappedError(c, err, authzErrorRules, "operator role update failed")
		return
	}
	handlershared.RequestLog(c).Infow("admin_operator_roles_updated",
		"operator", operator,
		"roles", req.Roles,
	)
	h.respondOperatorAuthz(c, operator)
}

func (h *Handler) respondOperatorAuthz(c *gin.Context, operator string) {
	roles, err := h.AuthzService.GetOperatorRoles(operator)
	if err != nil {
		handlershared.RespondMappedError(c, err, authzErrorRules, "operator authz fetch failed")
		return
	}
	policies, err := h.AuthzService.GetOperatorPolicies(operator)
	if err != nil {
		handlershared.RespondMappedError(c, err, authzErrorRules, "operator authz fetch failed")
		return
	}
	response.Success(c, OperatorAuthz{Operator: operator, Roles: roles, Policies: policies})
}
