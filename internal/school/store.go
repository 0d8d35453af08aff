package school

import (
	"context"

	"rollbook.org/internal/auth"
)

// Store describes the persistence operations the service requires.
type Store interface {
	Users() UserStore
	Students() StudentStore
	Assessments() AssessmentStore
	Attendance() AttendanceStore
}

// UserStore manages principals. FindByEmail doubles as the credential store
// adapter consumed by auth.Resolver.
type UserStore interface {
	Create(ctx context.Context, p *auth.Principal) error
	Find(ctx context.Context, id string) (*auth.Principal, error)
	FindByEmail(ctx context.Context, email string) (*auth.Principal, error)
}

// StudentStore manages roster rows. The Owned variants filter by teacher id
// inside the query so callers cannot tell an unowned row from an absent one.
type StudentStore interface {
	Create(ctx context.Context, s *Student) error
	Find(ctx context.Context, id string) (*Student, error)
	FindOwned(ctx context.Context, id, teacherID string) (*Student, error)
	List(ctx context.Context) ([]*Student, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]*Student, error)
	Update(ctx context.Context, s *Student) error
	Delete(ctx context.Context, id string) error
}

// AssessmentStore manages exam results.
type AssessmentStore interface {
	Create(ctx context.Context, a *Assessment) error
	Find(ctx context.Context, id string) (*Assessment, error)
	List(ctx context.Context) ([]*Assessment, error)
	UpdateScore(ctx context.Context, id string, score int) error
	Delete(ctx context.Context, id string) error
}

// AttendanceStore manages presence records.
type AttendanceStore interface {
	Create(ctx context.Context, a *Attendance) error
	List(ctx context.Context) ([]*Attendance, error)
}
