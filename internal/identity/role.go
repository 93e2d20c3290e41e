package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. RoleSuperAdmin is a universal
// bypass role: it passes every authorization check regardless of the
// allow-list in force.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleHR         Role = "hr"
	RoleEmployee   Role = "employee"
)

// Roles lists every valid role.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent, RoleHR, RoleEmployee}

var codePrefixes = map[Role]string{
	RoleSuperAdmin: "SUP",
	RoleAdmin:      "ADM",
	RoleTeacher:    "TEA",
	RoleStudent:    "STU",
	RoleHR:         "HR",
	RoleEmployee:   "EMP",
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(s)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return role, nil
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := codePrefixes[r]
	return ok
}

// CodePrefix returns the prefix used for generated human-readable codes,
// e.g. STU for students (STU-0004).
func (r Role) CodePrefix() string {
	return codePrefixes[r]
}

// Authorize passes when the role is contained in the allow-list.
// super_admin passes unconditionally; every controller relies on this
// single function instead of re-deriving the bypass rule.
func Authorize(role Role, allowed ...Role) error {
	if role == RoleSuperAdmin {
		return nil
	}
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return ErrForbidden
}

// InstituteType tags an institute and determines which member roles it may
// hold.
type InstituteType string

const (
	TypeSchool   InstituteType = "school"
	TypeCollege  InstituteType = "college"
	TypeCoaching InstituteType = "coaching"
	TypeCompany  InstituteType = "company"
)

// legalRoles is the single lookup table for role legality per institute
// type, consulted once at identity creation.
var legalRoles = map[InstituteType]map[Role]struct{}{
	TypeSchool:   roleSet(RoleAdmin, RoleTeacher, RoleStudent),
	TypeCollege:  roleSet(RoleAdmin, RoleTeacher, RoleStudent),
	TypeCoaching: roleSet(RoleAdmin, RoleTeacher, RoleStudent),
	TypeCompany:  roleSet(RoleAdmin, RoleHR, RoleEmployee),
}

func roleSet(roles ...Role) map[Role]struct{} {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// ParseInstituteType normalizes and validates an institute type string.
func ParseInstituteType(s string) (InstituteType, error) {
	t := InstituteType(strings.TrimSpace(strings.ToLower(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown institute type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Valid reports whether the institute type is known.
func (t InstituteType) Valid() bool {
	_, ok := legalRoles[t]
	return ok
}

// Permits reports whether an identity with the given role may be affiliated
// with an institute of this type.
func (t InstituteType) Permits(role Role) bool {
	set, ok := legalRoles[t]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// MemberBucket maps a role to the institute member bucket it belongs to.
// Admins own institutes rather than appearing in a member array, so only
// the four member roles have a bucket.
func MemberBucket(role Role) (string, bool) {
	switch role {
	case RoleTeacher:
		return "teachers", true
	case RoleStudent:
		return "students", true
	case RoleEmployee:
		return "employees", true
	case RoleHR:
		return "hr_managers", true
	default:
		return "", false
	}
}
