package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"rollbook.org/internal/auth"
	"rollbook.org/internal/ids"
	"rollbook.org/internal/school"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ school.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; tests inject their mock through it.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() school.UserStore             { return (*userStore)(s) }
func (s *Store) Students() school.StudentStore       { return (*studentStore)(s) }
func (s *Store) Assessments() school.AssessmentStore { return (*assessmentStore)(s) }
func (s *Store) Attendance() school.AttendanceStore  { return (*attendanceStore)(s) }

// --- users ---

type userStore Store

func (s *userStore) Create(ctx context.Context, p *auth.Principal) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		insert into users(id, name, email, role, password_hash, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$6)
		returning created_at, updated_at
	`, p.ID, p.Name, p.Email, string(p.Role), p.PasswordHash, now).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return school.ErrConflict
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.Principal, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, name, email, role, password_hash, created_at, updated_at
		from users where id=$1
	`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, name, email, role, password_hash, created_at, updated_at
		from users where email=$1
	`, email))
}

func (s *userStore) scanOne(row *sql.Row) (*auth.Principal, error) {
	var p auth.Principal
	var role string
	err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Role = auth.Role(role)
	return &p, nil
}

// --- students ---

type studentStore Store

const studentColumns = `id, name, class_name, teacher_id, created_at, updated_at`

func (s *studentStore) Create(ctx context.Context, st *school.Student) error {
	if st.ID == "" {
		st.ID = ids.New()
	}
	now := time.Now().UTC()
	return s.db.QueryRowContext(ctx, `
		insert into students(id, name, class_name, teacher_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$5)
		returning created_at, updated_at
	`, st.ID, st.Name, st.ClassName, st.TeacherID, now).Scan(&st.CreatedAt, &st.UpdatedAt)
}

func (s *studentStore) Find(ctx context.Context, id string) (*school.Student, error) {
	return scanStudent(s.db.QueryRowContext(ctx, `
		select `+studentColumns+` from students where id=$1
	`, id))
}

// FindOwned filters by teacher inside the query; an unowned row scans the
// same as an absent one.
func (s *studentStore) FindOwned(ctx context.Context, id, teacherID string) (*school.Student, error) {
	return scanStudent(s.db.QueryRowContext(ctx, `
		select `+studentColumns+` from students where id=$1 and teacher_id=$2
	`, id, teacherID))
}

func (s *studentStore) List(ctx context.Context) ([]*school.Student, error) {
	return s.list(ctx, `select `+studentColumns+` from students order by id`)
}

func (s *studentStore) ListByTeacher(ctx context.Context, teacherID string) ([]*school.Student, error) {
	return s.list(ctx, `select `+studentColumns+` from students where teacher_id=$1 order by id`, teacherID)
}

func (s *studentStore) list(ctx context.Context, query string, args ...any) ([]*school.Student, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*school.Student
	for rows.Next() {
		var st school.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.ClassName, &st.TeacherID, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &st)
	}
	return res, rows.Err()
}

func (s *studentStore) Update(ctx context.Context, st *school.Student) error {
	st.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update students set name=$2, class_name=$3, teacher_id=$4, updated_at=$5
		where id=$1
	`, st.ID, st.Name, st.ClassName, st.TeacherID, st.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *studentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from students where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanStudent(row *sql.Row) (*school.Student, error) {
	var st school.Student
	err := row.Scan(&st.ID, &st.Name, &st.ClassName, &st.TeacherID, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, school.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// --- assessments ---

type assessmentStore Store

func (s *assessmentStore) Create(ctx context.Context, a *school.Assessment) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	return s.db.QueryRowContext(ctx, `
		insert into assessments(id, student_id, subject, score, exam_date, created_at)
		values ($1,$2,$3,$4,$5,$6)
		returning created_at
	`, a.ID, a.StudentID, a.Subject, a.Score, a.ExamDate, now).Scan(&a.CreatedAt)
}

func (s *assessmentStore) Find(ctx context.Context, id string) (*school.Assessment, error) {
	var a school.Assessment
	err := s.db.QueryRowContext(ctx, `
		select id, student_id, subject, score, exam_date, created_at
		from assessments where id=$1
	`, id).Scan(&a.ID, &a.StudentID, &a.Subject, &a.Score, &a.ExamDate, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, school.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *assessmentStore) List(ctx context.Context) ([]*school.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, student_id, subject, score, exam_date, created_at
		from assessments order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*school.Assessment
	for rows.Next() {
		var a school.Assessment
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Subject, &a.Score, &a.ExamDate, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &a)
	}
	return res, rows.Err()
}

func (s *assessmentStore) UpdateScore(ctx context.Context, id string, score int) error {
	res, err := s.db.ExecContext(ctx, `update assessments set score=$2 where id=$1`, id, score)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *assessmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from assessments where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- attendance ---

type attendanceStore Store

func (s *attendanceStore) Create(ctx context.Context, a *school.Attendance) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	return s.db.QueryRowContext(ctx, `
		insert into attendance(id, student_id, date, status, created_at)
		values ($1,$2,$3,$4,$5)
		returning created_at
	`, a.ID, a.StudentID, a.Date, a.Status, now).Scan(&a.CreatedAt)
}

func (s *attendanceStore) List(ctx context.Context) ([]*school.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, student_id, date, status, created_at
		from attendance order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*school.Attendance
	for rows.Next() {
		var a school.Attendance
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Date, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &a)
	}
	return res, rows.Err()
}

// --- helpers ---

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
