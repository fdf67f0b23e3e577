package pricing

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/obs"
)

// Handler exposes GET /api/v1/pricing: compute only, nothing persisted.
type Handler struct {
	Svc            *Service
	DefaultVATRate decimal.Decimal
}

// Compute handles the pricing query. Field-shape validation happens here;
// the engine re-checks its own preconditions regardless.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	req, err := h.parseQuery(r.URL.Query())
	if err != nil {
		obs.PricingComputeTotal.WithLabelValues(common.CodeOf(err)).Inc()
		common.WriteError(w, err)
		return
	}
	breakdown, err := h.Svc.Quote(r.Context(), req)
	if err != nil {
		obs.PricingComputeTotal.WithLabelValues(resultLabel(err)).Inc()
		common.WriteError(w, err)
		return
	}
	obs.PricingComputeTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

func (h *Handler) parseQuery(values url.Values) (Request, error) {
	var req Request
	var err error
	if req.Format, err = parseSelector(values, "format"); err != nil {
		return Request{}, err
	}
	if req.Support, err = parseSelector(values, "support"); err != nil {
		return Request{}, err
	}
	if req.Finish, err = parseSelector(values, "finish"); err != nil {
		return Request{}, err
	}

	req.Qty = common.AtoiDefault(values.Get("qty"), 1)

	fallback := h.DefaultVATRate
	if fallback.IsZero() {
		fallback = DefaultVATRate
	}
	rate, _ := fallback.Float64()
	vat := common.ParseFloatDefault(values.Get("vat_rate"), rate)
	if vat > 100 {
		return Request{}, common.NewAppError("VALIDATION_ERROR", "vat_rate must be between 0 and 100", http.StatusUnprocessableEntity, nil)
	}
	req.VATRate = decimal.NewFromFloat(vat)
	return req, nil
}

func parseSelector(values url.Values, kind string) (catalog.Selector, error) {
	var sel catalog.Selector
	if raw := strings.TrimSpace(values.Get(kind + "_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return catalog.Selector{}, common.NewAppError("VALIDATION_ERROR", kind+"_id must be a positive integer", http.StatusUnprocessableEntity, nil)
		}
		sel.ID = &id
	}
	if raw := strings.ToLower(strings.TrimSpace(values.Get(kind + "_code"))); raw != "" {
		if !catalog.ValidCode(raw) {
			return catalog.Selector{}, common.NewAppError("VALIDATION_ERROR", kind+"_code contains invalid characters", http.StatusUnprocessableEntity, nil)
		}
		sel.Code = raw
	}
	return sel, nil
}

func resultLabel(err error) string {
	if code := common.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
