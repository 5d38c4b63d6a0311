package pricing

import (
	"strings"

	"github.com/phenrril/posvariantes/internal/domain"
)

// Quote calcula el precio de una selección contra las líneas cargadas del
// producto, sin tocar variantes. Los atributos del producto que no están en la
// selección no suman recargo.
func Quote(p *domain.Product, sel domain.Selection) (Breakdown, error) {
	if p == nil {
		return Breakdown{}, domain.Invalid("producto nil")
	}
	if err := sel.Validate(); err != nil {
		return Breakdown{}, err
	}
	used := make(map[string]bool, len(sel))
	adjustments := make([]Adjustment, 0, len(sel))
	for _, ln := range p.Lines {
		if ln.Attribute == nil {
			return Breakdown{}, domain.Invalid("línea %s sin atributo cargado", ln.ID)
		}
		key, value, ok := lookup(sel, ln.Attribute.Name)
		if !ok {
			continue
		}
		used[key] = true
		lv, ok := eligible(ln, value)
		if !ok {
			return Breakdown{}, domain.Invalid("%s=%s no es un valor elegible", ln.Attribute.Name, value)
		}
		adjustments = append(adjustments, FromLineValues([]domain.ProductAttributeLineValue{lv})...)
	}
	for attr := range sel {
		if !used[attr] {
			return Breakdown{}, domain.Invalid("el producto no tiene el atributo %q", attr)
		}
	}
	b, err := Calculate(p.UnitPrice, adjustments)
	if err != nil {
		return Breakdown{}, err
	}
	return b.Rounded(), nil
}

func lookup(sel domain.Selection, attribute string) (string, string, bool) {
	for k, v := range sel {
		if strings.EqualFold(strings.TrimSpace(k), attribute) {
			return k, v, true
		}
	}
	return "", "", false
}

func eligible(ln domain.ProductAttributeLine, value string) (domain.ProductAttributeLineValue, bool) {
	value = strings.TrimSpace(value)
	for _, lv := range ln.Values {
		if lv.Value != nil && lv.Value.Value == value {
			return lv, true
		}
	}
	return domain.ProductAttributeLineValue{}, false
}
