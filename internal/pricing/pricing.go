// Package pricing calcula el precio final de una variante a partir del precio
// base del producto y de los recargos de los valores elegidos.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

// CurrencyPlaces es la precisión con la que se guardan y muestran los precios.
const CurrencyPlaces = 2

type Adjustment struct {
	Amount decimal.Decimal
	Kind   domain.AdjustmentKind
}

func Fixed(amount decimal.Decimal) Adjustment {
	return Adjustment{Amount: amount, Kind: domain.AdjustFixed}
}

func Percentage(pct decimal.Decimal) Adjustment {
	return Adjustment{Amount: pct, Kind: domain.AdjustPercentage}
}

type Breakdown struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	FinalPrice      decimal.Decimal `json:"final_price"`
}

// Calculate no redondea: los porcentajes se aplican siempre sobre el precio
// base, nunca sobre un subtotal.
func Calculate(base decimal.NullDecimal, adjustments []Adjustment) (Breakdown, error) {
	if !base.Valid {
		return Breakdown{}, domain.Invalid("precio base nulo")
	}
	if base.Decimal.IsNegative() {
		return Breakdown{}, domain.Invalid("precio base negativo: %s", base.Decimal)
	}
	total := decimal.Zero
	for i, a := range adjustments {
		switch a.Kind {
		case domain.AdjustFixed:
			total = total.Add(a.Amount)
		case domain.AdjustPercentage:
			total = total.Add(base.Decimal.Mul(a.Amount).Shift(-2))
		default:
			return Breakdown{}, domain.Invalid("recargo %d: tipo %q desconocido", i, a.Kind)
		}
	}
	return Breakdown{
		BasePrice:       base.Decimal,
		AdjustmentTotal: total,
		FinalPrice:      base.Decimal.Add(total),
	}, nil
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		BasePrice:       Round(b.BasePrice),
		AdjustmentTotal: Round(b.AdjustmentTotal),
		FinalPrice:      Round(b.FinalPrice),
	}
}

// FromLineValues convierte los valores elegidos de las líneas en recargos.
// Un tipo vacío se trata como fijo (filas anteriores a la migración).
func FromLineValues(values []domain.ProductAttributeLineValue) []Adjustment {
	out := make([]Adjustment, 0, len(values))
	for _, v := range values {
		kind := v.PriceExtraType
		if kind == "" {
			kind = domain.AdjustFixed
		}
		out = append(out, Adjustment{Amount: v.PriceExtra, Kind: kind})
	}
	return out
}
