// Package authz decides whether a role may act on a school's data. It is the
// single source of truth for permissions: adding a role means adding table
// rows, not new branches in handlers.
package authz

import (
	"school-service/internal/model"
)

// Resource is the entity class an operation acts on.
type Resource string

const (
	ResourceSchool    Resource = "school"
	ResourceGrade     Resource = "grade"
	ResourceClassroom Resource = "classroom"
	ResourceStudent   Resource = "student"
	ResourceStaff     Resource = "staff"
)

// Action is the operation class performed on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Scope limits which schools an allowed action may target.
type Scope int

const (
	// ScopeNone denies the action entirely.
	ScopeNone Scope = iota
	// ScopeOwnSchool allows the action only when the session's school matches
	// the target school.
	ScopeOwnSchool
	// ScopeAny allows the action on any school.
	ScopeAny
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision with a caller-visible reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

type permission struct {
	Resource Resource
	Action   Action
}

// every grants all actions on a resource at the given scope.
func every(r Resource, s Scope) map[permission]Scope {
	m := make(map[permission]Scope)
	for _, a := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList} {
		m[permission{r, a}] = s
	}
	return m
}

func merge(ms ...map[permission]Scope) map[permission]Scope {
	out := make(map[permission]Scope)
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// policy is the (role, resource, action) -> scope table. Roles absent from the
// table, and permissions absent from a role's row, are denied. Staff roles
// (teacher, cafeteria_staff, security, hr) hold no management permissions; they
// are read-surface-only elsewhere in the system.
var policy = map[model.Role]map[permission]Scope{
	model.RoleSuperadmin: merge(
		every(ResourceSchool, ScopeAny),
		every(ResourceGrade, ScopeAny),
		every(ResourceClassroom, ScopeAny),
		every(ResourceStudent, ScopeAny),
		every(ResourceStaff, ScopeAny),
	),
	model.RoleSchoolAdmin: merge(
		every(ResourceGrade, ScopeOwnSchool),
		every(ResourceClassroom, ScopeOwnSchool),
		every(ResourceStudent, ScopeOwnSchool),
		every(ResourceStaff, ScopeOwnSchool),
		map[permission]Scope{
			// School admins may look at their own school but never create,
			// reshape or remove schools.
			{ResourceSchool, ActionRead}: ScopeOwnSchool,
			{ResourceSchool, ActionList}: ScopeOwnSchool,
		},
	),
}

// Authorize decides whether role, bound to sessionSchoolID, may perform action
// on resource for the school identified by targetSchoolID.
//
// The caller resolves targetSchoolID before invoking Authorize: from the
// request payload for creates, and from the stored entity for everything else.
// A nil targetSchoolID means the operation is not scoped to a single school
// (e.g. listing all schools) and is only allowed at ScopeAny.
//
// Authorize is a pure function: no I/O, deterministic given its inputs.
func Authorize(role model.Role, sessionSchoolID *uint, resource Resource, action Action, targetSchoolID *uint) Decision {
	perms, ok := policy[role]
	if !ok {
		return Deny("insufficient permissions")
	}
	scope, ok := perms[permission{resource, action}]
	if !ok || scope == ScopeNone {
		return Deny("insufficient permissions")
	}
	if scope == ScopeAny {
		return Allow
	}
	// ScopeOwnSchool: both sides must be present and equal.
	if sessionSchoolID == nil || targetSchoolID == nil {
		return Deny("cannot access other schools")
	}
	if *sessionSchoolID != *targetSchoolID {
		return Deny("cannot access other schools")
	}
	return Allow
}
