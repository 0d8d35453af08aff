package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollbook.org/internal/audit"
	"rollbook.org/internal/school"
)

type assessmentRequest struct {
	StudentID string `json:"student_id"`
	Subject   string `json:"subject"`
	Score     int    `json:"score"`
	ExamDate  string `json:"exam_date"`
}

type assessmentScoreRequest struct {
	Score int `json:"score"`
}

type assessmentListResponse struct {
	Items []*school.Assessment `json:"items"`
}

// dateOnly is the wire format for exam and attendance dates.
const dateOnly = "2006-01-02"

func (a *API) handleAssessmentCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req assessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	examDate, err := time.Parse(dateOnly, req.ExamDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "exam_date must be YYYY-MM-DD")
		return
	}

	assessment, err := a.svc.RecordAssessment(r.Context(), p, school.AssessmentInput{
		StudentID: req.StudentID,
		Subject:   req.Subject,
		Score:     req.Score,
		ExamDate:  examDate,
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "assessment.recorded", map[string]any{
		"assessment_id": assessment.ID,
		"student_id":    assessment.StudentID,
	})
	writeJSON(w, http.StatusCreated, assessment)
}

func (a *API) handleAssessmentList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	assessments, err := a.svc.ListAssessments(r.Context(), p)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	if assessments == nil {
		assessments = []*school.Assessment{}
	}
	writeJSON(w, http.StatusOK, assessmentListResponse{Items: assessments})
}

func (a *API) handleAssessmentUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req assessmentScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := a.svc.UpdateAssessmentScore(r.Context(), p, chi.URLParam(r, "id"), req.Score)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "assessment.score_updated", map[string]any{
		"assessment_id": assessment.ID,
		"score":         assessment.Score,
	})
	writeJSON(w, http.StatusOK, assessment)
}

func (a *API) handleAssessmentDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.svc.DeleteAssessment(r.Context(), p, id); err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "assessment.deleted", map[string]any{
		"assessment_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
