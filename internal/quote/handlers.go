package quote

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/obs"
	"github.com/printatelier/backend-devis/internal/pricing"
)

// Handler exposes the quote endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewValidator builds the request validator with the catalog code rule
// registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("attrcode", func(fl validator.FieldLevel) bool {
		return catalog.ValidCode(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

type createQuoteRequest struct {
	ClientName  string  `json:"client_name" validate:"required,min=1,max=200"`
	ClientEmail *string `json:"client_email" validate:"omitempty,email"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

type addItemRequest struct {
	FormatID    *int64   `json:"format_id" validate:"omitempty,min=1"`
	FormatCode  string   `json:"format_code" validate:"omitempty,max=100,attrcode"`
	SupportID   *int64   `json:"support_id" validate:"omitempty,min=1"`
	SupportCode string   `json:"support_code" validate:"omitempty,max=100,attrcode"`
	FinishID    *int64   `json:"finish_id" validate:"omitempty,min=1"`
	FinishCode  string   `json:"finish_code" validate:"omitempty,max=100,attrcode"`
	Qty         *int     `json:"qty" validate:"omitempty,min=1"`
	VATRate     *float64 `json:"vat_rate" validate:"omitempty,min=0,max=100"`
	Description string   `json:"description" validate:"omitempty,max=500"`
}

type finalizeRequest struct {
	VATRate *float64 `json:"vat_rate" validate:"omitempty,min=0,max=100"`
	Status  *string  `json:"status" validate:"omitempty,oneof=draft finalized sent archived"`
}

// Create handles POST /api/v1/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.Svc.Create(r.Context(), CreateQuoteParams{
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: req.ClientEmail,
		Notes:       req.Notes,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": NewQuoteView(created)})
}

// Get handles GET /api/v1/quotes/{id}: header plus lines with labels.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseQuoteID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	header, items, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"quote": NewQuoteView(header),
		"items": NewItemViews(items),
	}})
}

// AddItem handles POST /api/v1/quotes/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseQuoteID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := AddItemInput{
		Format:      selector(req.FormatID, req.FormatCode),
		Support:     selector(req.SupportID, req.SupportCode),
		Finish:      selector(req.FinishID, req.FinishCode),
		Qty:         1,
		VATRate:     h.vatRate(req.VATRate),
		Description: strings.TrimSpace(req.Description),
	}
	if req.Qty != nil {
		input.Qty = *req.Qty
	}

	item, updated, err := h.Svc.AddItem(r.Context(), id, input)
	if err != nil {
		obs.QuoteItemsAddedTotal.WithLabelValues(resultLabel(err)).Inc()
		common.WriteError(w, err)
		return
	}
	obs.QuoteItemsAddedTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"item":  NewItemView(item),
		"quote": NewQuoteView(updated),
	}})
}

// Finalize handles PATCH /api/v1/quotes/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := parseQuoteID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req finalizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	var rate *decimal.Decimal
	if req.VATRate != nil {
		v := decimal.NewFromFloat(*req.VATRate)
		rate = &v
	}
	status := StatusFinalized
	if req.Status != nil {
		status = Status(*req.Status)
	}

	updated, err := h.Svc.Finalize(r.Context(), id, rate, status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	obs.QuotesFinalizedTotal.WithLabelValues(string(updated.Status)).Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": NewQuoteView(updated)})
}

// decode unmarshals and validates the request body. Empty bodies are allowed
// and leave the zero request in place, mirroring the optional payloads of
// the finalize endpoint.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", nil)
			return false
		}
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			var verrs validator.ValidationErrors
			details := map[string]string{}
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					details[fe.Field()] = fe.Tag()
				}
			}
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request payload", details)
			return false
		}
	}
	return true
}

func parseQuoteID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quote id must be a UUID", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func selector(id *int64, code string) catalog.Selector {
	return catalog.Selector{ID: id, Code: strings.ToLower(strings.TrimSpace(code))}
}

func (h *Handler) vatRate(v *float64) decimal.Decimal {
	if v != nil {
		return decimal.NewFromFloat(*v)
	}
	if h.Svc != nil && !h.Svc.DefaultVATRate.IsZero() {
		return h.Svc.DefaultVATRate
	}
	return pricing.DefaultVATRate
}

func resultLabel(err error) string {
	if code := common.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
