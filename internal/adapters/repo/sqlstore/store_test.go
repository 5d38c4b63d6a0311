package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/posvariantes/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "pos.db"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	product domain.Product
	color   domain.Attribute
	black   domain.AttributeValue
	white   domain.AttributeValue
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	r := s.Repos()
	f := fixture{
		product: domain.Product{Name: "iPhone 13", UnitPrice: decimal.NewNullDecimal(decimal.NewFromInt(1500))},
		color:   domain.Attribute{ID: uuid.New(), Name: "Color", NameKey: "color", DisplayType: domain.DisplayColor},
	}
	if err := r.Products.Save(ctx, &f.product); err != nil {
		t.Fatalf("save product: %v", err)
	}
	if err := r.Attributes.Save(ctx, &f.color); err != nil {
		t.Fatalf("save attribute: %v", err)
	}
	f.black = domain.AttributeValue{ID: uuid.New(), AttributeID: f.color.ID, Value: "BLACK", ValueKey: "black", Sequence: 1}
	f.white = domain.AttributeValue{ID: uuid.New(), AttributeID: f.color.ID, Value: "WHITE", ValueKey: "white", Sequence: 2}
	for _, v := range []*domain.AttributeValue{&f.black, &f.white} {
		if err := r.Attributes.SaveValue(ctx, v); err != nil {
			t.Fatalf("save value: %v", err)
		}
	}
	line := &domain.ProductAttributeLine{
		ProductID:   f.product.ID,
		AttributeID: f.color.ID,
		Values: []domain.ProductAttributeLineValue{
			{ValueID: f.white.ID, PriceExtra: decimal.Zero, PriceExtraType: domain.AdjustFixed},
			{ValueID: f.black.ID, PriceExtra: decimal.NewFromInt(20), PriceExtraType: domain.AdjustFixed},
		},
	}
	if err := r.Products.SaveLine(ctx, line); err != nil {
		t.Fatalf("save line: %v", err)
	}
	return f
}

func newVariant(productID uuid.UUID, sku, color string) domain.Variant {
	v := domain.Variant{ID: uuid.New(), ProductID: productID, Name: color, SKU: sku, UnitPrice: decimal.NewFromInt(10)}
	set, _ := domain.NewAttributeSet(domain.AttributePair{Attribute: "Color", Value: color})
	_ = v.SetAttributes(set)
	return v
}

func TestProductPreloadsLines(t *testing.T) {
	s := NewStore(openTestDB(t))
	f := seed(t, s)

	p, err := s.Repos().Products.FindByID(context.Background(), f.product.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(p.Lines) != 1 || p.Lines[0].Attribute == nil || p.Lines[0].Attribute.Name != "Color" {
		t.Fatalf("lines not preloaded: %+v", p.Lines)
	}
	if len(p.Lines[0].Values) != 2 || p.Lines[0].Values[0].Value == nil {
		t.Fatalf("line values not preloaded: %+v", p.Lines[0].Values)
	}
	if !p.UnitPrice.Valid || !p.UnitPrice.Decimal.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unit price = %v", p.UnitPrice)
	}
}

func TestFindMissingIsNotFound(t *testing.T) {
	s := NewStore(openTestDB(t))
	if _, err := s.Repos().Products.FindByID(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, err := s.Repos().Variants.FindVariantBySKU(context.Background(), "NOPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestVariantRoundTripAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))
	f := seed(t, s)
	r := s.Repos()

	v := newVariant(f.product.ID, "IPHO-CBLAC-1", "BLACK")
	if err := r.Variants.CreateVariant(ctx, &v); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := r.Variants.FindVariantBySKU(ctx, "IPHO-CBLAC-1")
	if err != nil {
		t.Fatalf("find by sku: %v", err)
	}
	if val, ok := got.AttributeValues.Get("color"); !ok || val != "BLACK" {
		t.Fatalf("attribute values = %v", got.AttributeValues)
	}
	if got.CombinationKey != v.CombinationKey {
		t.Fatalf("combination key = %q, want %q", got.CombinationKey, v.CombinationKey)
	}

	dupSKU := newVariant(f.product.ID, "IPHO-CBLAC-1", "WHITE")
	if err := r.Variants.CreateVariant(ctx, &dupSKU); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate sku err = %v, want conflict", err)
	}
	dupCombo := newVariant(f.product.ID, "OTHER", "BLACK")
	if err := r.Variants.CreateVariant(ctx, &dupCombo); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate combination err = %v, want conflict", err)
	}
}

func TestLegacyVariantsWithoutAttributesCoexist(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))
	f := seed(t, s)
	for i, name := range []string{"BLACK / 4/128", "WHITE / 4/64"} {
		v := domain.Variant{ProductID: f.product.ID, Name: name, SKU: "OLD-" + string(rune('A'+i))}
		if err := s.Repos().Variants.CreateVariant(ctx, &v); err != nil {
			t.Fatalf("create legacy %q: %v", name, err)
		}
	}
}

func TestUpdateVariantStockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))
	f := seed(t, s)
	v := newVariant(f.product.ID, "SKU-1", "BLACK")
	if err := s.Repos().Variants.CreateVariant(ctx, &v); err != nil {
		t.Fatalf("create: %v", err)
	}

	stock, err := s.Repos().Variants.UpdateVariantStock(ctx, v.ID, 5)
	if err != nil || stock != 5 {
		t.Fatalf("stock = %d, err = %v", stock, err)
	}
	if _, err := s.Repos().Variants.UpdateVariantStock(ctx, v.ID, -6); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	got, _ := s.Repos().Variants.FindVariant(ctx, v.ID)
	if got.Stock != 5 {
		t.Fatalf("stock after refused update = %d", got.Stock)
	}
	if _, err := s.Repos().Variants.UpdateVariantStock(ctx, uuid.New(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))
	f := seed(t, s)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		v := newVariant(f.product.ID, "SKU-TX", "BLACK")
		if err := r.Variants.CreateVariant(ctx, &v); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if ok, _ := s.Repos().Variants.SKUExists(ctx, "SKU-TX"); ok {
		t.Fatalf("variant survived rollback")
	}
}

func TestDeleteProductCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewStore(db)
	f := seed(t, s)
	v := newVariant(f.product.ID, "SKU-DEL", "BLACK")
	if err := s.Repos().Variants.CreateVariant(ctx, &v); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Repos().Products.DeleteFull(ctx, f.product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, model := range []any{&domain.ProductAttributeLine{}, &domain.ProductAttributeLineValue{}, &domain.Variant{}} {
		var n int64
		db.Model(model).Count(&n)
		if n != 0 {
			t.Fatalf("%T rows left: %d", model, n)
		}
	}
	if err := s.Repos().Products.DeleteFull(ctx, f.product.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}

func TestDeleteAttributeCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewStore(db)
	f := seed(t, s)

	inUse, err := s.Repos().Attributes.ValueInUse(ctx, f.black.ID)
	if err != nil || !inUse {
		t.Fatalf("in use = %v, err = %v", inUse, err)
	}
	if err := s.Repos().Attributes.DeleteFull(ctx, f.color.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, err := s.Repos().Products.Lines(ctx, f.product.ID)
	if err != nil || len(lines) != 0 {
		t.Fatalf("lines = %d, err = %v", len(lines), err)
	}
	var n int64
	db.Model(&domain.AttributeValue{}).Count(&n)
	if n != 0 {
		t.Fatalf("values left: %d", n)
	}
}

func TestMigrationNormalisesLegacyAdjustmentKinds(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewStore(db)
	f := seed(t, s)

	lines, err := s.Repos().Products.Lines(ctx, f.product.ID)
	if err != nil || len(lines) != 1 {
		t.Fatalf("lines: %v", err)
	}
	// simula filas de una base anterior
	if err := db.Exec("UPDATE product_attribute_line_values SET price_extra_type = ''").Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := db.Exec("UPDATE product_attribute_line_values SET price_extra_type = 'pct' WHERE value_id = ?", f.black.ID).Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := db.Exec("DELETE FROM goose_db_version WHERE version_id > 0").Error; err != nil {
		t.Fatalf("reset goose: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}

	lines, _ = s.Repos().Products.Lines(ctx, f.product.ID)
	for _, lv := range lines[0].Values {
		want := domain.AdjustFixed
		if lv.ValueID == f.black.ID {
			want = domain.AdjustPercentage
		}
		if lv.PriceExtraType != want {
			t.Fatalf("value %s kind = %q, want %q", lv.Value.Value, lv.PriceExtraType, want)
		}
	}
}
