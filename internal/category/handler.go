package category

import (
	"log/slog"
	"net/http"

	"github.com/hanifm/expense-approval/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{BaseHandler: transport.NewBaseHandler(logger)}
}

// ListCategories handles GET /expense-categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": All()})
}
