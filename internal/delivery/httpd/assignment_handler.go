package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/google/uuid"
)

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := uuid.Parse(req.CourseID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid course_id format")
		return
	}

	assignment, err := h.assignmentService.Create(r.Context(), principalFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, assignment)
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.pagination(r)
	query := r.URL.Query()

	courseID := query.Get("course_id")
	if courseID != "" {
		if _, err := uuid.Parse(courseID); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid course_id format")
			return
		}
	}

	filter := models.AssignmentFilter{
		CourseID:  courseID,
		SortBy:    query.Get("sort"),
		SortOrder: query.Get("order"),
		Skip:      skip,
		Limit:     limit,
	}

	assignments, err := h.assignmentService.List(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignments)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Get(r.Context(), principalFrom(r.Context()), assignmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) PublishAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Publish(r.Context(), principalFrom(r.Context()), assignmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}
