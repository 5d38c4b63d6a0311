package httpserver

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

type valueView struct {
	ID        uuid.UUID `json:"id"`
	Value     string    `json:"value"`
	Sequence  int       `json:"sequence"`
	HTMLColor string    `json:"html_color,omitempty"`
}

type attributeView struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	DisplayType domain.DisplayType `json:"display_type"`
	Values      []valueView        `json:"values"`
}

type lineValueView struct {
	ValueID    uuid.UUID             `json:"value_id"`
	Value      string                `json:"value"`
	PriceExtra decimal.Decimal       `json:"price_extra"`
	Kind       domain.AdjustmentKind `json:"price_extra_type"`
}

type lineView struct {
	AttributeID uuid.UUID       `json:"attribute_id"`
	Attribute   string          `json:"attribute"`
	Sequence    int             `json:"sequence"`
	Values      []lineValueView `json:"values"`
}

type productView struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Code          *string             `json:"code,omitempty"`
	Category      string              `json:"category,omitempty"`
	UnitPrice     decimal.NullDecimal `json:"unit_price"`
	PurchasePrice decimal.Decimal     `json:"purchase_price"`
	Stock         int                 `json:"stock"`
	Lines         []lineView          `json:"lines"`
}

type variantView struct {
	ID         uuid.UUID           `json:"id"`
	ProductID  uuid.UUID           `json:"product_id"`
	Name       string              `json:"name"`
	SKU        string              `json:"sku"`
	Barcode    string              `json:"barcode,omitempty"`
	UnitPrice  decimal.Decimal     `json:"unit_price"`
	Stock      int                 `json:"stock"`
	Attributes domain.AttributeSet `json:"attributes"`
}

func newValueView(v *domain.AttributeValue) valueView {
	return valueView{ID: v.ID, Value: v.Value, Sequence: v.Sequence, HTMLColor: v.HTMLColor}
}

func newAttributeView(a *domain.Attribute) attributeView {
	out := attributeView{ID: a.ID, Name: a.Name, DisplayType: a.DisplayType, Values: make([]valueView, 0, len(a.Values))}
	for i := range a.Values {
		out.Values = append(out.Values, newValueView(&a.Values[i]))
	}
	return out
}

func newLineView(ln *domain.ProductAttributeLine) lineView {
	out := lineView{AttributeID: ln.AttributeID, Sequence: ln.Sequence, Values: make([]lineValueView, 0, len(ln.Values))}
	if ln.Attribute != nil {
		out.Attribute = ln.Attribute.Name
	}
	for _, lv := range ln.Values {
		v := lineValueView{ValueID: lv.ValueID, PriceExtra: lv.PriceExtra, Kind: lv.PriceExtraType}
		if lv.Value != nil {
			v.Value = lv.Value.Value
		}
		out.Values = append(out.Values, v)
	}
	return out
}

func newProductView(p *domain.Product) productView {
	out := productView{
		ID:            p.ID,
		Name:          p.Name,
		Code:          p.Code,
		Category:      p.Category,
		UnitPrice:     p.UnitPrice,
		PurchasePrice: p.PurchasePrice,
		Stock:         p.Stock,
		Lines:         make([]lineView, 0, len(p.Lines)),
	}
	for i := range p.Lines {
		out.Lines = append(out.Lines, newLineView(&p.Lines[i]))
	}
	return out
}

func newVariantView(v *domain.Variant) variantView {
	return variantView{
		ID:         v.ID,
		ProductID:  v.ProductID,
		Name:       v.Name,
		SKU:        v.SKU,
		Barcode:    v.BarcodeString(),
		UnitPrice:  v.UnitPrice,
		Stock:      v.Stock,
		Attributes: v.AttributeValues,
	}
}

func newVariantViews(list []domain.Variant) []variantView {
	out := make([]variantView, 0, len(list))
	for i := range list {
		out = append(out, newVariantView(&list[i]))
	}
	return out
}
