package school

import (
	"errors"
	"time"
)

// Student is a roster entry owned by at most one teacher. TeacherID is nil
// for the transient unassigned state; a non-admin principal only ever sees
// rows whose TeacherID equals their own id.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
	TeacherID *string   `json:"teacher_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assessment is a scored exam result owned by a student, cascade-deleted with
// it.
type Assessment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Subject   string    `json:"subject"`
	Score     int       `json:"score"`
	ExamDate  time.Time `json:"exam_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Attendance statuses form a closed pair.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Attendance is a per-day presence record owned by a student.
type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("school: not found")
	ErrConflict     = errors.New("school: resource conflict")
	ErrInvalidInput = errors.New("school: invalid input")
)
