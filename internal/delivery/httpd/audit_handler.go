package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/google/uuid"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.pagination(r)
	query := r.URL.Query()

	if userID := query.Get("user_id"); userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user_id format")
			return
		}
	}

	filter := models.AuditFilter{
		EntityType: query.Get("entity_type"),
		EntityID:   query.Get("entity_id"),
		UserID:     query.Get("user_id"),
		Skip:       skip,
		Limit:      limit,
	}

	entries, err := h.auditService.List(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, entries)
}
