package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/models"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit := h.pagination(r)

	filter := models.UserFilter{
		Role:  models.Role(r.URL.Query().Get("role")),
		Skip:  skip,
		Limit: limit,
	}

	users, err := h.userService.List(r.Context(), principalFrom(r.Context()), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, users)
}
