package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollbook.org/internal/audit"
	"rollbook.org/internal/school"
)

type studentRequest struct {
	Name      string  `json:"name"`
	ClassName string  `json:"class_name"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

type studentListResponse struct {
	Items []*school.Student `json:"items"`
}

func (a *API) handleStudentCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	student, err := a.svc.CreateStudent(r.Context(), p, school.StudentInput{
		Name:      req.Name,
		ClassName: req.ClassName,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "student.created", map[string]any{
		"student_id": student.ID,
	})
	writeJSON(w, http.StatusCreated, student)
}

func (a *API) handleStudentList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	students, err := a.svc.ListStudents(r.Context(), p)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	if students == nil {
		students = []*school.Student{}
	}
	writeJSON(w, http.StatusOK, studentListResponse{Items: students})
}

func (a *API) handleStudentGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	student, err := a.svc.GetStudent(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleStudentUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req studentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	student, err := a.svc.UpdateStudent(r.Context(), p, chi.URLParam(r, "id"), school.StudentInput{
		Name:      req.Name,
		ClassName: req.ClassName,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "student.updated", map[string]any{
		"student_id": student.ID,
	})
	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleStudentDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.svc.DeleteStudent(r.Context(), p, id); err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "student.deleted", map[string]any{
		"student_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
