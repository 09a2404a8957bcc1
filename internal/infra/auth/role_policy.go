package auth

import (
	"crypto/subtle"

	"lecturehall/config"
	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/service"
)

// configRolePolicy promotes the first account and invite code holders to admin.
type configRolePolicy struct {
	firstAccountIsAdmin bool
	inviteCode          string
}

// NewRolePolicy builds the role policy from auth configuration.
func NewRolePolicy(cfg *config.Config) service.RolePolicy {
	policy := &configRolePolicy{}
	if cfg != nil && cfg.Auth != nil {
		policy.firstAccountIsAdmin = cfg.Auth.FirstAccountIsAdmin
		policy.inviteCode = cfg.Auth.AdminInviteCode
	}

	return policy
}

// AssignRole returns admin when either promotion rule matches, user otherwise.
func (p *configRolePolicy) AssignRole(req service.RoleRequest) entity.Role {
	if p.firstAccountIsAdmin && req.IsFirstAccount {
		return entity.RoleAdmin
	}

	if p.inviteCode != "" && req.InviteCode != "" &&
		subtle.ConstantTimeCompare([]byte(p.inviteCode), []byte(req.InviteCode)) == 1 {
		return entity.RoleAdmin
	}

	return entity.RoleUser
}
