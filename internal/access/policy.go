// Package access decides which actions a principal may perform on a booking.
//
// Roles form a closed set. Handlers and services never compare role strings;
// they ask this package.
package access

import (
	"errors"
	"strings"

	"github.com/example/lab-scheduler/internal/catalog"
)

// ErrPermissionDenied is returned when the principal may not perform the action.
var ErrPermissionDenied = errors.New("access: permission denied")

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleTeacher     Role = "teacher"
	RoleCoordinator Role = "coordinator"
)

// legacyAdminRole is the administrator role name stored by earlier deployments.
const legacyAdminRole = "proati"

// ParseRole maps a stored or submitted role name onto the closed set.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RoleAdmin), legacyAdminRole:
		return RoleAdmin, true
	case string(RoleTeacher):
		return RoleTeacher, true
	case string(RoleCoordinator):
		return RoleCoordinator, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleCoordinator
}

// Action is an operation on a booking.
type Action string

const (
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionComplete Action = "complete"
	ActionView     Action = "view"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID        string
	Role          Role
	AssignedClass string
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Target is the grade and class an action writes to.
type Target struct {
	GradeID    int
	GradeClass string
}

// CanAct reports whether principal may perform action on target.
func CanAct(principal Principal, action Action, target Target) bool {
	switch principal.Role {
	case RoleAdmin:
		return isKnownAction(action)
	case RoleCoordinator:
		return action == ActionView
	case RoleTeacher:
		switch action {
		case ActionView:
			return true
		case ActionCreate, ActionEdit, ActionDelete, ActionComplete:
			return ownsClass(principal, target)
		}
	}
	return false
}

// Authorize is CanAct returning ErrPermissionDenied on refusal.
func Authorize(principal Principal, action Action, target Target) error {
	if CanAct(principal, action, target) {
		return nil
	}
	return ErrPermissionDenied
}

// CanManageUsers reports whether the principal may list and register users.
func CanManageUsers(principal Principal) bool {
	return principal.Role == RoleAdmin
}

// CanBroadcast reports whether the principal may send notifications to other users.
func CanBroadcast(principal Principal) bool {
	return principal.Role == RoleAdmin
}

func ownsClass(principal Principal, target Target) bool {
	gradeID, class, ok := catalog.ResolveClassCode(principal.AssignedClass)
	if !ok {
		return false
	}
	return gradeID == target.GradeID && strings.EqualFold(class, strings.TrimSpace(target.GradeClass))
}

func isKnownAction(action Action) bool {
	switch action {
	case ActionCreate, ActionEdit, ActionDelete, ActionComplete, ActionView:
		return true
	default:
		return false
	}
}
