package authz

import (
	"testing"

	"school-service/internal/model"
)

func uintPtr(v uint) *uint { return &v }

func TestAuthorize_Superadmin(t *testing.T) {
	// Superadmins act on any school, including none at all.
	for _, resource := range []Resource{ResourceSchool, ResourceGrade, ResourceClassroom, ResourceStudent, ResourceStaff} {
		for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList} {
			d := Authorize(model.RoleSuperadmin, nil, resource, action, uintPtr(42))
			if !d.Allowed {
				t.Errorf("superadmin %s %s on school 42 denied: %s", action, resource, d.Reason)
			}
			d = Authorize(model.RoleSuperadmin, nil, resource, action, nil)
			if !d.Allowed {
				t.Errorf("superadmin %s %s unscoped denied: %s", action, resource, d.Reason)
			}
		}
	}
}

func TestAuthorize_SchoolAdminOwnSchool(t *testing.T) {
	own := uintPtr(7)
	for _, resource := range []Resource{ResourceGrade, ResourceClassroom, ResourceStudent, ResourceStaff} {
		for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList} {
			d := Authorize(model.RoleSchoolAdmin, own, resource, action, uintPtr(7))
			if !d.Allowed {
				t.Errorf("school_admin %s %s on own school denied: %s", action, resource, d.Reason)
			}
			d = Authorize(model.RoleSchoolAdmin, own, resource, action, uintPtr(8))
			if d.Allowed {
				t.Errorf("school_admin %s %s on other school allowed", action, resource)
			}
		}
	}
}

func TestAuthorize_SchoolAdminSchoolResource(t *testing.T) {
	own := uintPtr(7)

	if d := Authorize(model.RoleSchoolAdmin, own, ResourceSchool, ActionRead, uintPtr(7)); !d.Allowed {
		t.Errorf("school_admin read own school denied: %s", d.Reason)
	}
	if d := Authorize(model.RoleSchoolAdmin, own, ResourceSchool, ActionRead, uintPtr(8)); d.Allowed {
		t.Error("school_admin read other school allowed")
	}
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		if d := Authorize(model.RoleSchoolAdmin, own, ResourceSchool, action, uintPtr(7)); d.Allowed {
			t.Errorf("school_admin %s school allowed", action)
		}
	}
}

func TestAuthorize_NilTargetRequiresScopeAny(t *testing.T) {
	own := uintPtr(7)
	if d := Authorize(model.RoleSchoolAdmin, own, ResourceStudent, ActionList, nil); d.Allowed {
		t.Error("school_admin unscoped list allowed")
	}
}

func TestAuthorize_StaffRolesDenied(t *testing.T) {
	own := uintPtr(7)
	for _, role := range model.StaffRoles {
		for _, resource := range []Resource{ResourceSchool, ResourceGrade, ResourceClassroom, ResourceStudent, ResourceStaff} {
			for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList} {
				if d := Authorize(role, own, resource, action, own); d.Allowed {
					t.Errorf("%s %s %s allowed", role, action, resource)
				}
			}
		}
	}
}

func TestAuthorize_UnknownRoleDenied(t *testing.T) {
	if d := Authorize(model.Role("janitor"), nil, ResourceStudent, ActionRead, uintPtr(1)); d.Allowed {
		t.Error("unknown role allowed")
	}
}
