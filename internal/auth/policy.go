package auth

import "fmt"

// Action enumerates every operation the policy rules on. The table below is
// the whole policy: a static lookup, not a rule engine. Ownership refinement
// for student rows happens in the storage queries, not here, so that unowned
// rows are indistinguishable from absent ones.
type Action int

const (
	ActionStudentCreate Action = iota
	ActionStudentRead
	ActionStudentUpdate
	ActionStudentDelete
	ActionAssessmentCreate
	ActionAssessmentRead
	ActionAssessmentUpdate
	ActionAssessmentDelete
	ActionAttendanceCreate
	ActionAttendanceRead
)

func (a Action) String() string {
	switch a {
	case ActionStudentCreate:
		return "student.create"
	case ActionStudentRead:
		return "student.read"
	case ActionStudentUpdate:
		return "student.update"
	case ActionStudentDelete:
		return "student.delete"
	case ActionAssessmentCreate:
		return "assessment.create"
	case ActionAssessmentRead:
		return "assessment.read"
	case ActionAssessmentUpdate:
		return "assessment.update"
	case ActionAssessmentDelete:
		return "assessment.delete"
	case ActionAttendanceCreate:
		return "attendance.create"
	case ActionAttendanceRead:
		return "attendance.read"
	default:
		return "unknown"
	}
}

// Authorize decides whether a role may perform an action. Denials wrap
// ErrForbidden with the action and role for the boundary's 403 body.
func Authorize(role Role, action Action) error {
	if roleAllowed(role, action) {
		return nil
	}
	return fmt.Errorf("%w: role %s may not %s", ErrForbidden, role, action)
}

func roleAllowed(role Role, action Action) bool {
	switch action {
	case ActionStudentCreate, ActionStudentRead, ActionStudentUpdate, ActionStudentDelete,
		ActionAssessmentCreate, ActionAssessmentRead,
		ActionAttendanceCreate, ActionAttendanceRead:
		return role == RoleTeacher || role == RoleAdmin
	case ActionAssessmentUpdate:
		// Any authenticated principal may update a score, field workers
		// included. Carried from the source as-is; the create and delete
		// rules are stricter.
		return role.Valid()
	case ActionAssessmentDelete:
		return role == RoleAdmin
	}
	return false
}
