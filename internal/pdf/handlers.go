package pdf

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/obs"
	"github.com/printatelier/backend-devis/internal/quote"
)

// Handler exposes GET /api/v1/quotes/{id}/pdf.
type Handler struct {
	Svc      *quote.Service
	Renderer Renderer
}

// Get renders the quote document.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pdf handler not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quote id must be a UUID", nil)
		return
	}
	header, items, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		obs.QuotePDFRenderTotal.WithLabelValues(pdfResult(err)).Inc()
		common.WriteError(w, err)
		return
	}
	payload, err := h.Renderer.Build(header, items)
	if err != nil {
		obs.QuotePDFRenderTotal.WithLabelValues("render_error").Inc()
		common.WriteError(w, err)
		return
	}
	obs.QuotePDFRenderTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "devis-"+id.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func pdfResult(err error) string {
	if code := common.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
