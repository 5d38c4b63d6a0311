package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/phenrril/posvariantes/internal/adapters/repo/sqlstore"
	"github.com/phenrril/posvariantes/internal/config"
	"github.com/phenrril/posvariantes/internal/domain"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "pos.db"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cfg := &config.Config{DB: config.DBConfig{ReadAttempts: 1}, Variants: config.VariantsConfig{SKUPrefixLen: 4, AssignBarcodes: true}}
	a, err := NewApp(db, cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := a.Seed(ctx); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	products, total, err := a.ProductUC.List(ctx, domain.ProductFilter{})
	if err != nil || total != 1 {
		t.Fatalf("products = %d, err = %v", total, err)
	}
	variants, err := a.VariantUC.ListVariants(ctx, products[0].ID)
	if err != nil || len(variants) != 6 {
		t.Fatalf("variants = %d, err = %v", len(variants), err)
	}
	if variants[0].Barcode == nil {
		t.Fatalf("expected internal barcode on seeded variants")
	}

	rec := httptest.NewRecorder()
	a.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}
