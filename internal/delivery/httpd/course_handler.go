package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
)

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.courseService.Create(r.Context(), principalFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, course)
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.pagination(r)
	query := r.URL.Query()

	filter := models.CourseFilter{
		Search:          query.Get("search"),
		Semester:        query.Get("semester"),
		IncludeArchived: getBoolQueryParam(r, "include_archived"),
		SortBy:          query.Get("sort"),
		SortOrder:       query.Get("order"),
		Skip:            skip,
		Limit:           limit,
	}

	courses, err := h.courseService.List(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, courses)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	course, err := h.courseService.Get(r.Context(), principalFrom(r.Context()), courseID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, course)
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.courseService.Update(r.Context(), principalFrom(r.Context()), courseID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, course)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.courseService.Delete(r.Context(), principalFrom(r.Context()), courseID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	studentID, ok := uuidParam(w, r, "studentId")
	if !ok {
		return
	}

	enrollment, err := h.courseService.Enroll(r.Context(), principalFrom(r.Context()), courseID, studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, enrollment)
}

func (h *Handler) BatchEnroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var emails []string
	if !decodeJSON(w, r, &emails) {
		return
	}

	result, err := h.courseService.EnrollBatch(r.Context(), principalFrom(r.Context()), courseID, emails)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) DropStudent(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	studentID, ok := uuidParam(w, r, "studentId")
	if !ok {
		return
	}

	if err := h.courseService.Drop(r.Context(), principalFrom(r.Context()), courseID, studentID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Student dropped from course",
	})
}

func (h *Handler) ListCourseStudents(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	students, err := h.courseService.ListStudents(r.Context(), principalFrom(r.Context()), courseID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, students)
}
