package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

func quoteProduct() *domain.Product {
	line := func(attr string, values map[string]domain.ProductAttributeLineValue) domain.ProductAttributeLine {
		ln := domain.ProductAttributeLine{ID: uuid.New(), Attribute: &domain.Attribute{Name: attr}}
		for name, lv := range values {
			lv.Value = &domain.AttributeValue{Value: name}
			ln.Values = append(ln.Values, lv)
		}
		return ln
	}
	return &domain.Product{
		Name:      "Remera",
		UnitPrice: base("100"),
		Lines: []domain.ProductAttributeLine{
			line("Color", map[string]domain.ProductAttributeLineValue{
				"Rojo": {PriceExtra: decimal.NewFromInt(20), PriceExtraType: domain.AdjustFixed},
				"Azul": {},
			}),
			line("Talle", map[string]domain.ProductAttributeLineValue{
				"XL": {PriceExtra: decimal.NewFromInt(10), PriceExtraType: domain.AdjustPercentage},
			}),
		},
	}
}

func TestQuoteSelection(t *testing.T) {
	p := quoteProduct()

	got, err := Quote(p, domain.Selection{"color": "Rojo", "Talle": "XL"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !got.FinalPrice.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("final = %s, want 130", got.FinalPrice)
	}

	partial, err := Quote(p, domain.Selection{"Color": "Azul"})
	if err != nil {
		t.Fatalf("quote partial: %v", err)
	}
	if !partial.FinalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("final = %s, want 100", partial.FinalPrice)
	}
}

func TestQuoteRejectsUnknown(t *testing.T) {
	p := quoteProduct()
	for _, sel := range []domain.Selection{
		{"Color": "Verde"},
		{"Material": "Algodón"},
		{"": "Rojo"},
	} {
		if _, err := Quote(p, sel); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Quote(%v) err = %v, want invalid input", sel, err)
		}
	}
}

// La selección se compara igual que en la búsqueda de variantes: sin
// espacios alrededor del valor.
func TestQuoteTrimsSelectedValues(t *testing.T) {
	p := quoteProduct()
	got, err := Quote(p, domain.Selection{" Color ": " Rojo "})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !got.FinalPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("final = %s, want 120", got.FinalPrice)
	}
	set, _ := domain.NewAttributeSet(domain.AttributePair{Attribute: "Color", Value: "Rojo"})
	if !set.Matches(domain.Selection{" Color ": " Rojo "}) {
		t.Fatalf("attribute set should match the same selection")
	}
}
