package school

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rollbook.org/internal/auth"
)

// Service implements every roster operation behind the HTTP boundary:
// credential issuance plus CRUD over students, assessments and attendance,
// each gated by the authorization policy. TokenService and Store are injected
// at construction; the service holds no other state.
type Service struct {
	store  Store
	tokens *auth.TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, tokens *auth.TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	svc := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignupInput carries a new principal's attributes. Role arrives as a raw
// string tag and must parse into the closed enumeration.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Signup registers a principal. Duplicate emails surface as ErrConflict.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*auth.Principal, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	principal := &auth.Principal{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, principal); err != nil {
		return nil, err
	}
	return principal, nil
}

// TokenGrant is the result of a successful login.
type TokenGrant struct {
	Token     string
	ExpiresAt time.Time
	Principal *auth.Principal
}

// Login verifies credentials and mints a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (TokenGrant, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenGrant{}, auth.ErrUnauthenticated
	}
	principal, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			return TokenGrant{}, auth.ErrUnauthenticated
		}
		return TokenGrant{}, err
	}
	if err := auth.VerifyPassword(principal.PasswordHash, password); err != nil {
		return TokenGrant{}, auth.ErrUnauthenticated
	}
	token, expiresAt, err := s.tokens.Issue(principal.Email, principal.Role)
	if err != nil {
		return TokenGrant{}, err
	}
	return TokenGrant{Token: token, ExpiresAt: expiresAt, Principal: principal}, nil
}

// StudentInput carries student attributes for create and update.
type StudentInput struct {
	Name      string
	ClassName string
	// TeacherID optionally reassigns ownership; only admins may set it.
	TeacherID *string
}

// CreateStudent records a student owned by the caller. An admin may assign a
// different teacher explicitly.
func (s *Service) CreateStudent(ctx context.Context, p *auth.Principal, in StudentInput) (*Student, error) {
	if err := auth.Authorize(p.Role, auth.ActionStudentCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	className := strings.TrimSpace(in.ClassName)
	if name == "" || className == "" {
		return nil, fmt.Errorf("%w: name and class_name are required", ErrInvalidInput)
	}
	teacherID := p.ID
	if in.TeacherID != nil && p.Role == auth.RoleAdmin {
		teacherID = *in.TeacherID
	}
	student := &Student{
		Name:      name,
		ClassName: className,
		TeacherID: &teacherID,
	}
	if err := s.store.Students().Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// ListStudents returns the caller's roster: a teacher's own students, or
// every student for an admin.
func (s *Service) ListStudents(ctx context.Context, p *auth.Principal) ([]*Student, error) {
	if err := auth.Authorize(p.Role, auth.ActionStudentRead); err != nil {
		return nil, err
	}
	if p.Role == auth.RoleAdmin {
		return s.store.Students().List(ctx)
	}
	return s.store.Students().ListByTeacher(ctx, p.ID)
}

// GetStudent fetches one student with ownership filtering.
func (s *Service) GetStudent(ctx context.Context, p *auth.Principal, id string) (*Student, error) {
	if err := auth.Authorize(p.Role, auth.ActionStudentRead); err != nil {
		return nil, err
	}
	return s.studentFor(ctx, p, id)
}

// UpdateStudent mutates name and class, ownership-filtered.
func (s *Service) UpdateStudent(ctx context.Context, p *auth.Principal, id string, in StudentInput) (*Student, error) {
	if err := auth.Authorize(p.Role, auth.ActionStudentUpdate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	className := strings.TrimSpace(in.ClassName)
	if name == "" || className == "" {
		return nil, fmt.Errorf("%w: name and class_name are required", ErrInvalidInput)
	}
	student, err := s.studentFor(ctx, p, id)
	if err != nil {
		return nil, err
	}
	student.Name = name
	student.ClassName = className
	if in.TeacherID != nil && p.Role == auth.RoleAdmin {
		student.TeacherID = in.TeacherID
	}
	if err := s.store.Students().Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// DeleteStudent removes a student (and, via the schema, its assessments and
// attendance), ownership-filtered.
func (s *Service) DeleteStudent(ctx context.Context, p *auth.Principal, id string) error {
	if err := auth.Authorize(p.Role, auth.ActionStudentDelete); err != nil {
		return err
	}
	student, err := s.studentFor(ctx, p, id)
	if err != nil {
		return err
	}
	return s.store.Students().Delete(ctx, student.ID)
}

// studentFor loads a student visible to the principal. Non-admins go through
// the ownership-filtered query, so a row owned by another teacher reports
// ErrNotFound, never ErrForbidden.
func (s *Service) studentFor(ctx context.Context, p *auth.Principal, id string) (*Student, error) {
	if p.Role == auth.RoleAdmin {
		return s.store.Students().Find(ctx, id)
	}
	return s.store.Students().FindOwned(ctx, id, p.ID)
}

// AssessmentInput carries an exam result.
type AssessmentInput struct {
	StudentID string
	Subject   string
	Score     int
	ExamDate  time.Time
}

// RecordAssessment stores an exam result. Only the student's existence is
// checked, not its ownership against the caller; any teacher can record for
// any student. Carried from the source as-is.
func (s *Service) RecordAssessment(ctx context.Context, p *auth.Principal, in AssessmentInput) (*Assessment, error) {
	if err := auth.Authorize(p.Role, auth.ActionAssessmentCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.StudentID) == "" || strings.TrimSpace(in.Subject) == "" || in.ExamDate.IsZero() {
		return nil, fmt.Errorf("%w: student_id, subject and exam_date are required", ErrInvalidInput)
	}
	if _, err := s.store.Students().Find(ctx, in.StudentID); err != nil {
		return nil, err
	}
	assessment := &Assessment{
		StudentID: in.StudentID,
		Subject:   strings.TrimSpace(in.Subject),
		Score:     in.Score,
		ExamDate:  in.ExamDate,
	}
	if err := s.store.Assessments().Create(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

// ListAssessments returns every assessment.
func (s *Service) ListAssessments(ctx context.Context, p *auth.Principal) ([]*Assessment, error) {
	if err := auth.Authorize(p.Role, auth.ActionAssessmentRead); err != nil {
		return nil, err
	}
	return s.store.Assessments().List(ctx)
}

// UpdateAssessmentScore replaces a score. Open to any authenticated role.
func (s *Service) UpdateAssessmentScore(ctx context.Context, p *auth.Principal, id string, score int) (*Assessment, error) {
	if err := auth.Authorize(p.Role, auth.ActionAssessmentUpdate); err != nil {
		return nil, err
	}
	if _, err := s.store.Assessments().Find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.Assessments().UpdateScore(ctx, id, score); err != nil {
		return nil, err
	}
	return s.store.Assessments().Find(ctx, id)
}

// DeleteAssessment removes an assessment. Admin only.
func (s *Service) DeleteAssessment(ctx context.Context, p *auth.Principal, id string) error {
	if err := auth.Authorize(p.Role, auth.ActionAssessmentDelete); err != nil {
		return err
	}
	if _, err := s.store.Assessments().Find(ctx, id); err != nil {
		return err
	}
	return s.store.Assessments().Delete(ctx, id)
}

// AttendanceInput carries a presence record.
type AttendanceInput struct {
	StudentID string
	Date      time.Time
	Status    string
}

// RecordAttendance marks a student present or absent for a day. Like
// assessments, only student existence is checked.
func (s *Service) RecordAttendance(ctx context.Context, p *auth.Principal, in AttendanceInput) (*Attendance, error) {
	if err := auth.Authorize(p.Role, auth.ActionAttendanceCreate); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(strings.ToLower(in.Status))
	if status != AttendancePresent && status != AttendanceAbsent {
		return nil, fmt.Errorf("%w: status must be %q or %q", ErrInvalidInput, AttendancePresent, AttendanceAbsent)
	}
	if strings.TrimSpace(in.StudentID) == "" || in.Date.IsZero() {
		return nil, fmt.Errorf("%w: student_id and date are required", ErrInvalidInput)
	}
	if _, err := s.store.Students().Find(ctx, in.StudentID); err != nil {
		return nil, err
	}
	attendance := &Attendance{
		StudentID: in.StudentID,
		Date:      in.Date,
		Status:    status,
	}
	if err := s.store.Attendance().Create(ctx, attendance); err != nil {
		return nil, err
	}
	return attendance, nil
}

// ListAttendance returns every attendance record.
func (s *Service) ListAttendance(ctx context.Context, p *auth.Principal) ([]*Attendance, error) {
	if err := auth.Authorize(p.Role, auth.ActionAttendanceRead); err != nil {
		return nil, err
	}
	return s.store.Attendance().List(ctx)
}
