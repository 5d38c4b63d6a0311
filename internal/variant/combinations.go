// Package variant contiene la combinatoria de variantes: producto cartesiano
// de valores, nombres, SKU, códigos internos y búsqueda por selección.
package variant

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/pricing"
)

type Option struct {
	ValueID uuid.UUID
	Value   string
	Extra   pricing.Adjustment
}

// Dimension es una línea de atributo del producto con sus valores elegibles,
// ya ordenados.
type Dimension struct {
	AttributeID uuid.UUID
	Attribute   string
	Options     []Option
}

type Combination struct {
	Attributes domain.AttributeSet
	Options    []Option
}

func (c Combination) Adjustments() []pricing.Adjustment {
	out := make([]pricing.Adjustment, 0, len(c.Options))
	for _, o := range c.Options {
		out = append(out, o.Extra)
	}
	return out
}

// DimensionsFromLines espera las líneas con Attribute y Values[].Value cargados.
// Las líneas se ordenan por Sequence y los valores por la secuencia del valor.
func DimensionsFromLines(lines []domain.ProductAttributeLine) ([]Dimension, error) {
	sorted := make([]domain.ProductAttributeLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	dims := make([]Dimension, 0, len(sorted))
	for _, ln := range sorted {
		if ln.Attribute == nil {
			return nil, domain.Invalid("línea %s sin atributo cargado", ln.ID)
		}
		values := make([]domain.ProductAttributeLineValue, len(ln.Values))
		copy(values, ln.Values)
		for _, lv := range values {
			if lv.Value == nil {
				return nil, domain.Invalid("línea %s: valor %s sin cargar", ln.ID, lv.ValueID)
			}
		}
		sort.SliceStable(values, func(i, j int) bool {
			if values[i].Value.Sequence != values[j].Value.Sequence {
				return values[i].Value.Sequence < values[j].Value.Sequence
			}
			return values[i].Value.Value < values[j].Value.Value
		})
		d := Dimension{AttributeID: ln.AttributeID, Attribute: ln.Attribute.Name}
		for _, lv := range values {
			d.Options = append(d.Options, Option{
				ValueID: lv.ValueID,
				Value:   lv.Value.Value,
				Extra:   pricing.FromLineValues([]domain.ProductAttributeLineValue{lv})[0],
			})
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// Combinations devuelve el producto cartesiano de las dimensiones, en orden de
// línea. Sin dimensiones, o con alguna dimensión vacía, no hay combinaciones.
func Combinations(dims []Dimension) ([]Combination, error) {
	if len(dims) == 0 {
		return nil, nil
	}
	acc := []Combination{{}}
	for _, d := range dims {
		if len(d.Options) == 0 {
			return nil, nil
		}
		next := make([]Combination, 0, len(acc)*len(d.Options))
		for _, c := range acc {
			for _, o := range d.Options {
				set, err := c.Attributes.With(d.Attribute, o.Value)
				if err != nil {
					return nil, err
				}
				opts := make([]Option, len(c.Options), len(c.Options)+1)
				copy(opts, c.Options)
				next = append(next, Combination{Attributes: set, Options: append(opts, o)})
			}
		}
		acc = next
	}
	return acc, nil
}

// Extras resuelve los recargos de un conjunto de valores contra las
// dimensiones actuales del producto.
func Extras(dims []Dimension, set domain.AttributeSet) ([]pricing.Adjustment, error) {
	out := make([]pricing.Adjustment, 0, set.Len())
	for _, p := range set.Pairs() {
		o, ok := findOption(dims, p.Attribute, p.Value)
		if !ok {
			return nil, domain.Invalid("%s=%s no es un valor elegible", p.Attribute, p.Value)
		}
		out = append(out, o.Extra)
	}
	return out, nil
}

func findOption(dims []Dimension, attribute, value string) (Option, bool) {
	for _, d := range dims {
		if !strings.EqualFold(d.Attribute, attribute) {
			continue
		}
		for _, o := range d.Options {
			if o.Value == value {
				return o, true
			}
		}
	}
	return Option{}, false
}

// Name arma el nombre visible, p. ej. "BLACK / 128GB".
func Name(set domain.AttributeSet) string {
	return strings.Join(set.Values(), " / ")
}
