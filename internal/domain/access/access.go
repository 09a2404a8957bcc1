// Package access decides which roles may perform which operations.
package access

import (
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"

	"github.com/pkg/errors"
)

// Operation names a guarded action.
type Operation string

const (
	OpReadContent   Operation = "content:read"
	OpManageFolders Operation = "folders:manage"
	OpManageAssets  Operation = "assets:manage"
	OpReadIdentity  Operation = "identity:read"
)

var policy = map[entity.Role]map[Operation]bool{
	entity.RoleUser: {
		OpReadContent:  true,
		OpReadIdentity: true,
	},
	entity.RoleAdmin: {
		OpReadContent:   true,
		OpManageFolders: true,
		OpManageAssets:  true,
		OpReadIdentity:  true,
	},
}

// Can reports whether role may perform op. Unknown roles and operations are denied.
func Can(role entity.Role, op Operation) bool {
	return policy[role][op]
}

// Authorize checks a resolved session against op.
// A nil session is Unauthenticated; a session whose role is denied is Forbidden.
func Authorize(session *entity.Session, op Operation) error {
	if session == nil {
		return errors.Wrapf(domainerrors.ErrUnauthenticated, "%s requires a session", op)
	}

	if !Can(session.Role, op) {
		return errors.Wrapf(domainerrors.ErrForbidden, "role %q may not %s", session.Role, op)
	}

	return nil
}
