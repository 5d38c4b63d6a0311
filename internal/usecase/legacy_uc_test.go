package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

func TestImportLegacyKeepsKnownPrice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.product(t, "iPhone 11", "1500.0")

	rep, err := h.variants.ImportLegacy(ctx, p.ID, []LegacyRow{
		{Name: "BLACK / 4/128", Price: decimal.RequireFromString("1500.0"), Stock: 2},
		{Name: "BLACK / 4/128", Price: decimal.RequireFromString("1500.0")},
		{Name: "  ", Price: decimal.Zero},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rep.Created) != 1 || len(rep.Skipped) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	v := rep.Created[0]
	if c, _ := v.AttributeValues.Get("Color"); c != "BLACK" {
		t.Fatalf("color = %q", c)
	}
	if s, _ := v.AttributeValues.Get("Storage"); s != "4/128" {
		t.Fatalf("storage = %q", s)
	}

	q, err := h.variants.Quote(ctx, p.ID, domain.Selection{})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.AdjustmentTotal.IsZero() || !q.FinalPrice.Equal(v.UnitPrice) {
		t.Fatalf("quote = %+v, variant price %s", q, v.UnitPrice)
	}

	got, err := h.variants.Resolve(ctx, p.ID, domain.Selection{"Storage": "4/128"})
	if err != nil || got.ID != v.ID {
		t.Fatalf("resolve imported variant: %v", err)
	}
}

func TestRepairFromNames(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.product(t, "Galaxy A54", "900")
	r := h.store.Repos()
	for _, v := range []domain.Variant{
		{ProductID: p.ID, Name: "Blanco / 8/256", SKU: "OLD-1"},
		{ProductID: p.ID, Name: "Negro / 128GB", SKU: "OLD-2"},
	} {
		if err := r.Variants.CreateVariant(ctx, &v); err != nil {
			t.Fatalf("create legacy row: %v", err)
		}
	}

	rep, err := h.variants.RepairFromNames(ctx, p.ID)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(rep.Repaired) != 2 {
		t.Fatalf("repaired = %d", len(rep.Repaired))
	}
	v, err := r.Variants.FindVariantBySKU(ctx, "OLD-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c, _ := v.AttributeValues.Get("color"); c != "Negro" {
		t.Fatalf("color = %q", c)
	}
	if s, _ := v.AttributeValues.Get("storage"); s != "128GB" {
		t.Fatalf("storage = %q", s)
	}

	again, err := h.variants.RepairFromNames(ctx, p.ID)
	if err != nil || len(again.Repaired) != 0 {
		t.Fatalf("second repair = %+v, %v", again, err)
	}
}
