package quote_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/printatelier/backend-devis/internal/catalog"
	"github.com/printatelier/backend-devis/internal/common"
	"github.com/printatelier/backend-devis/internal/quote"
)

func newService(t *testing.T) (*quote.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.d.addAttr(catalog.KindFormat, 1, "a4", "0.10")
	store.d.addAttr(catalog.KindFormat, 2, "a3", "0.20")
	store.d.addAttr(catalog.KindSupport, 10, "papier_bril", "0.05")
	store.d.addAttr(catalog.KindFinish, 20, "vernis", "0.10")
	svc := &quote.Service{
		Q:              store,
		Tx:             store,
		DefaultVATRate: decimal.NewFromInt(20),
	}
	return svc, store
}

func createDraft(t *testing.T, svc *quote.Service) quote.Quote {
	t.Helper()
	created, err := svc.Create(context.Background(), quote.CreateQuoteParams{ClientName: "Dupont Imprimerie"})
	require.NoError(t, err)
	require.Equal(t, quote.StatusDraft, created.Status)
	require.True(t, created.SubtotalExVAT.IsZero())
	return created
}

// requireLedgerConsistent asserts the stored subtotal equals the sum of the
// quote's line amounts and that vat and total derive from it.
func requireLedgerConsistent(t *testing.T, svc *quote.Service, id uuid.UUID) {
	t.Helper()
	header, items, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineExVAT)
	}
	require.True(t, header.SubtotalExVAT.Equal(sum),
		"subtotal %s != sum of lines %s", header.SubtotalExVAT, sum)
	require.True(t, header.TotalIncVAT.Equal(header.SubtotalExVAT.Add(header.VATAmount)))
}

func TestAddItemComputesLineAndTotals(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	item, updated, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format:  catalog.Selector{Code: "a4"},
		Support: catalog.Selector{Code: "papier_bril"},
		Qty:     10,
		VATRate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	require.Equal(t, "0.15", item.UnitPriceExVAT.StringFixed(2))
	require.Equal(t, "1.50", item.LineExVAT.StringFixed(2))
	require.Equal(t, "1.50", updated.SubtotalExVAT.StringFixed(2))
	require.Equal(t, "0.30", updated.VATAmount.StringFixed(2))
	require.Equal(t, "1.80", updated.TotalIncVAT.StringFixed(2))

	requireLedgerConsistent(t, svc, created.ID)
}

func TestAddItemKeepsLedgerConsistentAcrossLines(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	inputs := []quote.AddItemInput{
		{Format: catalog.Selector{Code: "a4"}, Qty: 3, VATRate: decimal.NewFromInt(20)},
		{Format: catalog.Selector{Code: "a3"}, Finish: catalog.Selector{Code: "vernis"}, Qty: 7, VATRate: decimal.NewFromInt(20)},
		{Format: catalog.Selector{Code: "a4"}, Support: catalog.Selector{Code: "papier_bril"}, Qty: 50, VATRate: decimal.NewFromInt(20)},
	}
	for _, in := range inputs {
		_, _, err := svc.AddItem(context.Background(), created.ID, in)
		require.NoError(t, err)
		requireLedgerConsistent(t, svc, created.ID)
	}

	_, items, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestAddItemPersistsBreakdownSnapshot(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	item, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format:  catalog.Selector{Code: "a4"},
		Qty:     2,
		VATRate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.Breakdown)

	var snapshot struct {
		Currency string `json:"currency"`
		Qty      int    `json:"qty"`
		Computed struct {
			LineExVAT json.Number `json:"line_ex_vat"`
		} `json:"computed"`
	}
	require.NoError(t, json.Unmarshal(item.Breakdown, &snapshot))
	require.Equal(t, "EUR", snapshot.Currency)
	require.Equal(t, 2, snapshot.Qty)
	require.Equal(t, json.Number("0.20"), snapshot.Computed.LineExVAT)
}

func TestAddItemDescriptionDefaultsToFormatLabel(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	item, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format: catalog.Selector{Code: "a4"},
		Qty:    1,
	})
	require.NoError(t, err)
	require.Equal(t, "A4", item.Description)

	item, _, err = svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format:      catalog.Selector{Code: "a4"},
		Qty:         1,
		Description: "Flyers salon 2026",
	})
	require.NoError(t, err)
	require.Equal(t, "Flyers salon 2026", item.Description)
}

func TestAddItemMissingFormat(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{Qty: 1})
	require.Error(t, err)
	require.Equal(t, "FORMAT_REQUIRED", common.CodeOf(err))
}

func TestAddItemUnknownFormatLeavesNothingBehind(t *testing.T) {
	svc, store := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format: catalog.Selector{Code: "a7"},
		Qty:    4,
	})
	require.Error(t, err)
	require.Equal(t, "FORMAT_NOT_FOUND", common.CodeOf(err))

	require.Empty(t, store.d.items[created.ID])
	header, _, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, header.SubtotalExVAT.IsZero())
}

func TestAddItemUnknownOptionalAttribute(t *testing.T) {
	svc, store := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format: catalog.Selector{Code: "a4"},
		Finish: catalog.Selector{Code: "paillettes"},
		Qty:    4,
	})
	require.Error(t, err)
	require.Equal(t, "ATTRIBUTE_NOT_FOUND", common.CodeOf(err))
	require.Empty(t, store.d.items[created.ID])
}

func TestAddItemQuoteNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.AddItem(context.Background(), uuid.New(), quote.AddItemInput{
		Format: catalog.Selector{Code: "a4"},
		Qty:    1,
	})
	require.Error(t, err)
	require.Equal(t, "QUOTE_NOT_FOUND", common.CodeOf(err))
}

func TestAddItemConcurrentSameQuote(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
				Format:  catalog.Selector{Code: "a4"},
				Support: catalog.Selector{Code: "papier_bril"},
				Qty:     10,
				VATRate: decimal.NewFromInt(20),
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	header, items, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, items, workers)
	require.Equal(t, "24.00", header.SubtotalExVAT.StringFixed(2))
	requireLedgerConsistent(t, svc, created.ID)
}

func TestFinalizeRecomputesAndSetsStatus(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format:  catalog.Selector{Code: "a4"},
		Support: catalog.Selector{Code: "papier_bril"},
		Qty:     10,
		VATRate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	_, _, err = svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format:  catalog.Selector{Code: "a3"},
		Finish:  catalog.Selector{Code: "vernis"},
		Qty:     10,
		VATRate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	// lines: 1.50 + 3.00

	rate := decimal.NewFromInt(20)
	updated, err := svc.Finalize(context.Background(), created.ID, &rate, quote.StatusFinalized)
	require.NoError(t, err)

	require.Equal(t, quote.StatusFinalized, updated.Status)
	require.Equal(t, "4.50", updated.SubtotalExVAT.StringFixed(2))
	require.Equal(t, "0.90", updated.VATAmount.StringFixed(2))
	require.Equal(t, "5.40", updated.TotalIncVAT.StringFixed(2))
}

func TestFinalizeDefaultsRateAndStatus(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format: catalog.Selector{Code: "a4"},
		Qty:    100,
	})
	require.NoError(t, err)

	updated, err := svc.Finalize(context.Background(), created.ID, nil, "")
	require.NoError(t, err)
	require.Equal(t, quote.StatusFinalized, updated.Status)
	// 10.00 at the service default of 20%
	require.Equal(t, "2.00", updated.VATAmount.StringFixed(2))
}

func TestFinalizeNegativeRateTreatedAsZero(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	_, _, err := svc.AddItem(context.Background(), created.ID, quote.AddItemInput{
		Format: catalog.Selector{Code: "a4"},
		Qty:    10,
	})
	require.NoError(t, err)

	rate := decimal.NewFromInt(-5)
	updated, err := svc.Finalize(context.Background(), created.ID, &rate, quote.StatusFinalized)
	require.NoError(t, err)
	require.True(t, updated.VATAmount.IsZero())
	require.True(t, updated.TotalIncVAT.Equal(updated.SubtotalExVAT))
}

func TestFinalizeRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t)
	created := createDraft(t, svc)

	_, err := svc.Finalize(context.Background(), created.ID, nil, quote.Status("cancelled"))
	require.Error(t, err)
	require.Equal(t, "VALIDATION_ERROR", common.CodeOf(err))
}

func TestFinalizeQuoteNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Finalize(context.Background(), uuid.New(), nil, quote.StatusFinalized)
	require.Error(t, err)
	require.Equal(t, "QUOTE_NOT_FOUND", common.CodeOf(err))
}

func TestGetQuoteNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, "QUOTE_NOT_FOUND", common.CodeOf(err))
}
