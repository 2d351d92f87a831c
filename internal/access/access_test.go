package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Tutor ")
	require.NoError(t, err)
	assert.Equal(t, RoleTutor, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestEnrollmentRules(t *testing.T) {
	student := Identity{UserID: uuid.New(), Role: RoleStudent}
	tutor := Identity{UserID: uuid.New(), Role: RoleTutor}
	other := Identity{UserID: uuid.New(), Role: RoleStudent}

	assert.True(t, CanEnroll(student, student.UserID))
	assert.False(t, CanEnroll(student, other.UserID), "students cannot enroll someone else")
	assert.False(t, CanEnroll(tutor, tutor.UserID), "tutors do not enroll")

	assert.True(t, CanViewEnrollment(student, student.UserID, tutor.UserID))
	assert.True(t, CanViewEnrollment(tutor, student.UserID, tutor.UserID))
	assert.False(t, CanViewEnrollment(other, student.UserID, tutor.UserID))

	assert.True(t, CanReportProgress(student, student.UserID))
	assert.False(t, CanReportProgress(tutor, student.UserID))
}

func TestCourseVisibility(t *testing.T) {
	owner := Identity{UserID: uuid.New(), Role: RoleTutor}
	stranger := Identity{UserID: uuid.New(), Role: RoleTutor}

	assert.True(t, CanViewCourse(nil, true, owner.UserID))
	assert.False(t, CanViewCourse(nil, false, owner.UserID))
	assert.False(t, CanViewCourse(&stranger, false, owner.UserID))
	assert.True(t, CanViewCourse(&owner, false, owner.UserID))

	assert.False(t, CanManageCourse(Identity{Role: RoleTutor}, uuid.Nil), "zero identity owns nothing")
}
