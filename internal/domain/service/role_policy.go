package service

import "lecturehall/internal/domain/entity"

// RoleRequest describes the facts available when a new account is created.
type RoleRequest struct {
	IsFirstAccount bool
	InviteCode     string
}

// RolePolicy decides the role of a new account. It is evaluated once, at creation.
type RolePolicy interface {
	AssignRole(req RoleRequest) entity.Role
}
