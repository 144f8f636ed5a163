package httpd

import (
	"errors"
	"io"
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/google/uuid"
)

// Запас на поля формы сверх самого файла
const multipartOverhead = 1 << 20

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadSize+multipartOverhead)

	// Парсим multipart форму
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File exceeds maximum upload size")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	assignmentID := r.FormValue("assignment_id")
	if _, err := uuid.Parse(assignmentID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid assignment_id format")
		return
	}

	// Получаем файл
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	req := &models.SubmitRequest{
		AssignmentID: assignmentID,
		Comment:      r.FormValue("comment"),
		FileName:     header.Filename,
		Content:      content,
	}

	submission, err := h.submissionService.Submit(r.Context(), principalFrom(r.Context()), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, submission)
}

func (h *Handler) ListSubmissionsByAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	skip, limit := h.pagination(r)

	submissions, err := h.submissionService.ListByAssignment(r.Context(), principalFrom(r.Context()), assignmentID, skip, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submissions)
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	submission, err := h.submissionService.Get(r.Context(), principalFrom(r.Context()), submissionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) ReturnSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	submission, err := h.submissionService.Return(r.Context(), principalFrom(r.Context()), submissionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.submissionService.Delete(r.Context(), principalFrom(r.Context()), submissionID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Submission deleted successfully",
	})
}
