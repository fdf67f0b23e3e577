package pricing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/obs"
	"github.com/printatelier/backend-devis/internal/pricing"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

type stubQuerier struct {
	attrs map[catalog.Kind][]catalog.Attribute
}

func newStubQuerier() stubQuerier {
	q := stubQuerier{attrs: map[catalog.Kind][]catalog.Attribute{}}
	add := func(kind catalog.Kind, id int64, code, price string) {
		q.attrs[kind] = append(q.attrs[kind], catalog.Attribute{
			ID:    id,
			Kind:  kind,
			Code:  code,
			Label: code,
			Price: decimal.RequireFromString(price),
		})
	}
	add(catalog.KindFormat, 1, "a4", "0.10")
	add(catalog.KindSupport, 10, "papier_bril", "0.05")
	add(catalog.KindFinish, 20, "vernis", "0.10")
	return q
}

func (s stubQuerier) GetAttributeByCode(_ context.Context, kind catalog.Kind, code string) (catalog.Attribute, error) {
	for _, attr := range s.attrs[kind] {
		if attr.Code == code {
			return attr, nil
		}
	}
	return catalog.Attribute{}, catalog.ErrNotFound
}

func (s stubQuerier) GetAttributeByID(_ context.Context, kind catalog.Kind, id int64) (catalog.Attribute, error) {
	for _, attr := range s.attrs[kind] {
		if attr.ID == id {
			return attr, nil
		}
	}
	return catalog.Attribute{}, catalog.ErrNotFound
}

func newHandler() *pricing.Handler {
	return &pricing.Handler{
		Svc:            &pricing.Service{Q: newStubQuerier()},
		DefaultVATRate: decimal.NewFromInt(20),
	}
}

func get(t *testing.T, h *pricing.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Compute(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

type computeResponse struct {
	Data struct {
		Currency string      `json:"currency"`
		Qty      int         `json:"qty"`
		VATRate  json.Number `json:"vat_rate"`
		Computed struct {
			UnitPriceExVAT json.Number `json:"unit_price_ex_vat"`
			LineExVAT      json.Number `json:"line_ex_vat"`
			VATAmount      json.Number `json:"vat_amount"`
			TotalIncVAT    json.Number `json:"total_inc_vat"`
		} `json:"computed"`
	} `json:"data"`
}

func TestComputeEndpoint(t *testing.T) {
	rr := get(t, newHandler(), "/api/v1/pricing?format_code=a4&support_code=papier_bril&qty=10&vat_rate=20")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp computeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "EUR", resp.Data.Currency)
	require.Equal(t, 10, resp.Data.Qty)
	require.Equal(t, json.Number("0.15"), resp.Data.Computed.UnitPriceExVAT)
	require.Equal(t, json.Number("1.80"), resp.Data.Computed.TotalIncVAT)
}

func TestComputeEndpointResolvesByID(t *testing.T) {
	rr := get(t, newHandler(), "/api/v1/pricing?format_id=1&finish_id=20&qty=2&vat_rate=20")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp computeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, json.Number("0.20"), resp.Data.Computed.UnitPriceExVAT)
	require.Equal(t, json.Number("0.40"), resp.Data.Computed.LineExVAT)
}

func TestComputeEndpointDefaultsQtyAndVAT(t *testing.T) {
	rr := get(t, newHandler(), "/api/v1/pricing?format_code=a4")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp computeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Data.Qty)
	require.Equal(t, json.Number("20"), resp.Data.VATRate)
}

func TestComputeEndpointCoercesMalformedNumbers(t *testing.T) {
	// Unparsable qty and vat_rate fall back to their defaults instead of
	// failing the request.
	rr := get(t, newHandler(), "/api/v1/pricing?format_code=a4&qty=abc&vat_rate=xyz")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp computeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Data.Qty)
	require.Equal(t, json.Number("20"), resp.Data.VATRate)
}

func TestComputeEndpointMissingFormat(t *testing.T) {
	rr := get(t, newHandler(), "/api/v1/pricing?support_code=papier_bril")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "FORMAT_REQUIRED")
}

func TestComputeEndpointUnknownAttribute(t *testing.T) {
	rr := get(t, newHandler(), "/api/v1/pricing?format_code=a4&finish_code=paillettes")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "ATTRIBUTE_NOT_FOUND")
}

func TestComputeEndpointRejectsBadSelectors(t *testing.T) {
	for _, target := range []string{
		"/api/v1/pricing?format_id=0",
		"/api/v1/pricing?format_id=-4",
		"/api/v1/pricing?format_id=abc",
		"/api/v1/pricing?format_code=DROP%20TABLE",
		"/api/v1/pricing?format_code=a4&vat_rate=150",
	} {
		rr := get(t, newHandler(), target)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, target)
		require.Contains(t, rr.Body.String(), "VALIDATION_ERROR", target)
	}
}
