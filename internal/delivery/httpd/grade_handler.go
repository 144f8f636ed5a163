package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/google/uuid"
)

func (h *Handler) CreateGrade(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := uuid.Parse(req.SubmissionID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submission_id format")
		return
	}

	grade, err := h.gradeService.Create(r.Context(), principalFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, grade)
}

func (h *Handler) GetGrade(w http.ResponseWriter, r *http.Request) {
	gradeID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	grade, err := h.gradeService.Get(r.Context(), principalFrom(r.Context()), gradeID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, grade)
}

func (h *Handler) UpdateGrade(w http.ResponseWriter, r *http.Request) {
	gradeID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateGradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grade, err := h.gradeService.Update(r.Context(), principalFrom(r.Context()), gradeID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, grade)
}

func (h *Handler) ListStudentCourseGrades(w http.ResponseWriter, r *http.Request) {
	studentID, ok := uuidParam(w, r, "studentId")
	if !ok {
		return
	}
	courseID, ok := uuidParam(w, r, "courseId")
	if !ok {
		return
	}

	grades, err := h.gradeService.ListForStudentCourse(r.Context(), principalFrom(r.Context()), studentID, courseID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, grades)
}

func (h *Handler) CreateAppeal(w http.ResponseWriter, r *http.Request) {
	gradeID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateAppealRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	appeal, err := h.gradeService.Appeal(r.Context(), principalFrom(r.Context()), gradeID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, appeal)
}

func (h *Handler) ListAppeals(w http.ResponseWriter, r *http.Request) {
	gradeID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	appeals, err := h.gradeService.ListAppeals(r.Context(), principalFrom(r.Context()), gradeID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, appeals)
}

func (h *Handler) ResolveAppeal(w http.ResponseWriter, r *http.Request) {
	appealID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req models.ResolveAppealRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	appeal, err := h.gradeService.ResolveAppeal(r.Context(), principalFrom(r.Context()), appealID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, appeal)
}
