package identity

import (
	"errors"
	"testing"
)

func TestAuthorizeMatrix(t *testing.T) {
	cases := []struct {
		name    string
		role    Role
		allowed []Role
		wantOK  bool
	}{
		{"admin in list", RoleAdmin, []Role{RoleAdmin, RoleHR}, true},
		{"hr in list", RoleHR, []Role{RoleAdmin, RoleHR}, true},
		{"teacher not in list", RoleTeacher, []Role{RoleAdmin, RoleHR}, false},
		{"student not in list", RoleStudent, []Role{RoleAdmin}, false},
		{"empty allow list denies", RoleAdmin, nil, false},
		{"super_admin bypasses empty list", RoleSuperAdmin, nil, true},
		{"super_admin bypasses any list", RoleSuperAdmin, []Role{RoleStudent}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.role, tc.allowed...)
			if tc.wantOK && err != nil {
				t.Fatalf("Authorize(%s) = %v, want nil", tc.role, err)
			}
			if !tc.wantOK {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("Authorize(%s) = %v, want ErrForbidden", tc.role, err)
				}
			}
		})
	}
}

func TestSuperAdminBypassesEveryList(t *testing.T) {
	// The bypass must hold for every possible single-role allow list.
	for _, allowed := range Roles {
		if err := Authorize(RoleSuperAdmin, allowed); err != nil {
			t.Fatalf("super_admin denied against allow-list [%s]: %v", allowed, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("  Teacher "); err != nil || r != RoleTeacher {
		t.Fatalf("ParseRole normalized = (%q, %v), want (teacher, nil)", r, err)
	}
	if _, err := ParseRole("principal"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ParseRole(principal) = %v, want ErrInvalidInput", err)
	}
	if _, err := ParseRole(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ParseRole(empty) = %v, want ErrInvalidInput", err)
	}
}

func TestCodePrefixes(t *testing.T) {
	want := map[Role]string{
		RoleSuperAdmin: "SUP",
		RoleAdmin:      "ADM",
		RoleTeacher:    "TEA",
		RoleStudent:    "STU",
		RoleHR:         "HR",
		RoleEmployee:   "EMP",
	}
	for role, prefix := range want {
		if got := role.CodePrefix(); got != prefix {
			t.Errorf("CodePrefix(%s) = %q, want %q", role, got, prefix)
		}
	}
}

func TestInstituteTypePermits(t *testing.T) {
	cases := []struct {
		typ  InstituteType
		role Role
		want bool
	}{
		{TypeSchool, RoleTeacher, true},
		{TypeSchool, RoleStudent, true},
		{TypeSchool, RoleAdmin, true},
		{TypeSchool, RoleHR, false},
		{TypeSchool, RoleEmployee, false},
		{TypeCollege, RoleStudent, true},
		{TypeCoaching, RoleTeacher, true},
		{TypeCompany, RoleHR, true},
		{TypeCompany, RoleEmployee, true},
		{TypeCompany, RoleStudent, false},
		{TypeCompany, RoleTeacher, false},
		{TypeSchool, RoleSuperAdmin, false},
	}
	for _, tc := range cases {
		if got := tc.typ.Permits(tc.role); got != tc.want {
			t.Errorf("%s.Permits(%s) = %v, want %v", tc.typ, tc.role, got, tc.want)
		}
	}
}

func TestMemberBucket(t *testing.T) {
	cases := []struct {
		role   Role
		bucket string
		ok     bool
	}{
		{RoleTeacher, "teachers", true},
		{RoleStudent, "students", true},
		{RoleEmployee, "employees", true},
		{RoleHR, "hr_managers", true},
		{RoleAdmin, "", false},
		{RoleSuperAdmin, "", false},
	}
	for _, tc := range cases {
		bucket, ok := MemberBucket(tc.role)
		if bucket != tc.bucket || ok != tc.ok {
			t.Errorf("MemberBucket(%s) = (%q, %v), want (%q, %v)", tc.role, bucket, ok, tc.bucket, tc.ok)
		}
	}
}
