package httpapi

import (
	"net/http"
	"time"

	"rollbook.org/internal/audit"
	"rollbook.org/internal/school"
)

type attendanceRequest struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

type attendanceListResponse struct {
	Items []*school.Attendance `json:"items"`
}

func (a *API) handleAttendanceCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req attendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	day, err := time.Parse(dateOnly, req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	record, err := a.svc.RecordAttendance(r.Context(), p, school.AttendanceInput{
		StudentID: req.StudentID,
		Date:      day,
		Status:    req.Status,
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "attendance.marked", map[string]any{
		"attendance_id": record.ID,
		"student_id":    record.StudentID,
		"status":        record.Status,
	})
	writeJSON(w, http.StatusCreated, record)
}

func (a *API) handleAttendanceList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	records, err := a.svc.ListAttendance(r.Context(), p)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []*school.Attendance{}
	}
	writeJSON(w, http.StatusOK, attendanceListResponse{Items: records})
}
