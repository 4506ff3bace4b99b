package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanActMatrix(t *testing.T) {
	t.Parallel()

	admin := Principal{UserID: "1", Role: RoleAdmin}
	coordinator := Principal{UserID: "2", Role: RoleCoordinator}
	teacher := Principal{UserID: "3", Role: RoleTeacher, AssignedClass: "3A"}
	unassigned := Principal{UserID: "4", Role: RoleTeacher}

	own := Target{GradeID: 3, GradeClass: "A"}
	sibling := Target{GradeID: 3, GradeClass: "B"}
	otherGrade := Target{GradeID: 4, GradeClass: "A"}

	writes := []Action{ActionCreate, ActionEdit, ActionDelete, ActionComplete}

	for _, action := range append(writes, ActionView) {
		assert.True(t, CanAct(admin, action, sibling), "admin %s", action)
	}

	for _, action := range writes {
		assert.False(t, CanAct(coordinator, action, own), "coordinator %s", action)
		assert.True(t, CanAct(teacher, action, own), "teacher %s own class", action)
		assert.False(t, CanAct(teacher, action, sibling), "teacher %s sibling class", action)
		assert.False(t, CanAct(teacher, action, otherGrade), "teacher %s other grade", action)
		assert.False(t, CanAct(unassigned, action, own), "unassigned teacher %s", action)
	}

	assert.True(t, CanAct(coordinator, ActionView, own))
	assert.True(t, CanAct(teacher, ActionView, otherGrade))
	assert.True(t, CanAct(unassigned, ActionView, otherGrade))
}

func TestCanActRejectsUnknownRolesAndActions(t *testing.T) {
	t.Parallel()

	assert.False(t, CanAct(Principal{Role: Role("guest")}, ActionView, Target{}))
	assert.False(t, CanAct(Principal{}, ActionView, Target{}))
	assert.False(t, CanAct(Principal{Role: RoleAdmin}, Action("archive"), Target{}))
}

func TestCanActHighSchoolClassCodes(t *testing.T) {
	t.Parallel()

	teacher := Principal{Role: RoleTeacher, AssignedClass: "1EM-C"}
	assert.True(t, CanAct(teacher, ActionEdit, Target{GradeID: 11, GradeClass: "C"}))
	assert.False(t, CanAct(teacher, ActionEdit, Target{GradeID: 10, GradeClass: "C"}))
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	teacher := Principal{Role: RoleTeacher, AssignedClass: "3A"}
	assert.NoError(t, Authorize(teacher, ActionComplete, Target{GradeID: 3, GradeClass: "a"}))
	assert.ErrorIs(t, Authorize(teacher, ActionComplete, Target{GradeID: 3, GradeClass: "B"}), ErrPermissionDenied)
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, ok := ParseRole("proati")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	role, ok = ParseRole(" Teacher ")
	assert.True(t, ok)
	assert.Equal(t, RoleTeacher, role)

	_, ok = ParseRole("student")
	assert.False(t, ok)

	assert.True(t, RoleCoordinator.Valid())
	assert.False(t, Role("proati").Valid())
}

func TestAdministrativeCapabilities(t *testing.T) {
	t.Parallel()

	assert.True(t, CanManageUsers(Principal{Role: RoleAdmin}))
	assert.False(t, CanManageUsers(Principal{Role: RoleCoordinator}))
	assert.True(t, CanBroadcast(Principal{Role: RoleAdmin}))
	assert.False(t, CanBroadcast(Principal{Role: RoleTeacher, AssignedClass: "3A"}))
}
