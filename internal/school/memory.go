package school

import (
	"context"
	"sync"
	"time"

	"rollbook.org/internal/auth"
	"rollbook.org/internal/ids"
)

// MemStore implements Store with in-process concurrency safety. It backs the
// service when no database is configured and doubles as the test fixture.
type MemStore struct {
	mu          sync.RWMutex
	users       map[string]*auth.Principal // keyed by id
	students    map[string]*Student
	assessments map[string]*Assessment
	attendance  map[string]*Attendance
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[string]*auth.Principal),
		students:    make(map[string]*Student),
		assessments: make(map[string]*Assessment),
		attendance:  make(map[string]*Attendance),
	}
}

func (m *MemStore) Users() UserStore             { return (*memUsers)(m) }
func (m *MemStore) Students() StudentStore       { return (*memStudents)(m) }
func (m *MemStore) Assessments() AssessmentStore { return (*memAssessments)(m) }
func (m *MemStore) Attendance() AttendanceStore  { return (*memAttendance)(m) }

type memUsers MemStore

func (m *memUsers) Create(_ context.Context, p *auth.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == p.Email {
			return ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	clone := *p
	m.users[p.ID] = &clone
	return nil
}

func (m *memUsers) Find(_ context.Context, id string) (*auth.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[id]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.users {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, auth.ErrPrincipalNotFound
}

type memStudents MemStore

func (m *memStudents) Create(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = ids.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	clone := *s
	m.students[s.ID] = &clone
	return nil
}

func (m *memStudents) Find(_ context.Context, id string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memStudents) FindOwned(_ context.Context, id, teacherID string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok || s.TeacherID == nil || *s.TeacherID != teacherID {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memStudents) List(_ context.Context) ([]*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Student, 0, len(m.students))
	for _, s := range m.students {
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memStudents) ListByTeacher(_ context.Context, teacherID string) ([]*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Student
	for _, s := range m.students {
		if s.TeacherID != nil && *s.TeacherID == teacherID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memStudents) Update(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	clone := *s
	m.students[s.ID] = &clone
	return nil
}

func (m *memStudents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	// Cascade like the schema does.
	for aid, a := range m.assessments {
		if a.StudentID == id {
			delete(m.assessments, aid)
		}
	}
	for aid, a := range m.attendance {
		if a.StudentID == id {
			delete(m.attendance, aid)
		}
	}
	return nil
}

type memAssessments MemStore

func (m *memAssessments) Create(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.CreatedAt = time.Now().UTC()
	clone := *a
	m.assessments[a.ID] = &clone
	return nil
}

func (m *memAssessments) Find(_ context.Context, id string) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memAssessments) List(_ context.Context) ([]*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Assessment, 0, len(m.assessments))
	for _, a := range m.assessments {
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memAssessments) UpdateScore(_ context.Context, id string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return ErrNotFound
	}
	a.Score = score
	return nil
}

func (m *memAssessments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return ErrNotFound
	}
	delete(m.assessments, id)
	return nil
}

type memAttendance MemStore

func (m *memAttendance) Create(_ context.Context, a *Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.CreatedAt = time.Now().UTC()
	clone := *a
	m.attendance[a.ID] = &clone
	return nil
}

func (m *memAttendance) List(_ context.Context) ([]*Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Attendance, 0, len(m.attendance))
	for _, a := range m.attendance {
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}
