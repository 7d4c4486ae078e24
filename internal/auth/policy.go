package auth

import (
	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

// Policy holds the role rules for leave operations. Each method switches
// over the closed Role set; unknown roles are always denied.
type Policy struct{}

func (Policy) CanViewAllRequests(role coreUser.Role) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return false
	default:
		return false
	}
}

// CanDecide covers both approve and reject.
func (Policy) CanDecide(role coreUser.Role) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return false
	default:
		return false
	}
}

func (Policy) CanViewRequest(role coreUser.Role, callerID, ownerID string) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return callerID == ownerID
	default:
		return false
	}
}

func (Policy) CanDeleteRequest(role coreUser.Role, callerID, ownerID string, pending bool) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return callerID == ownerID && pending
	default:
		return false
	}
}

// CanManageUsers also gates setting balances of other users.
func (Policy) CanManageUsers(role coreUser.Role) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return false
	default:
		return false
	}
}

// CanAccessUser gates reading and editing another user's profile.
func (Policy) CanAccessUser(role coreUser.Role, callerID, userID string) bool {
	switch role {
	case coreUser.RoleManager:
		return true
	case coreUser.RoleEmployee:
		return callerID == userID
	default:
		return false
	}
}
