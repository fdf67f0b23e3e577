package catalog

import (
	"net/http"

	"github.com/printatelier/backend-devis/internal/common"
)

// Handler exposes the public catalog listing endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Formats handles GET /api/v1/formats.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, KindFormat)
}

// Supports handles GET /api/v1/supports.
func (h *Handler) Supports(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, KindSupport)
}

// Finishes handles GET /api/v1/finishes.
func (h *Handler) Finishes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, KindFinish)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, kind Kind) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.List(r.Context(), kind)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
