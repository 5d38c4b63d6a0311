package variant

import (
	"sort"
	"strings"

	"github.com/phenrril/posvariantes/internal/domain"
)

// Match filtra las variantes que contienen cada par de la selección.
// Los atributos no seleccionados no restringen.
func Match(variants []domain.Variant, sel domain.Selection) []domain.Variant {
	out := make([]domain.Variant, 0)
	for _, v := range variants {
		if v.AttributeValues.Matches(sel) {
			out = append(out, v)
		}
	}
	return out
}

// Sort ordena según el orden de las líneas y de sus valores; lo que no
// figura en las dimensiones va al final, y el empate se rompe por nombre.
func Sort(variants []domain.Variant, dims []Dimension) {
	rank := func(v domain.Variant) []int {
		r := make([]int, len(dims))
		for i, d := range dims {
			r[i] = len(d.Options)
			val, ok := v.AttributeValues.Get(d.Attribute)
			if !ok {
				continue
			}
			for j, o := range d.Options {
				if o.Value == val {
					r[i] = j
					break
				}
			}
		}
		return r
	}
	sort.SliceStable(variants, func(i, j int) bool {
		ri, rj := rank(variants[i]), rank(variants[j])
		for k := range ri {
			if ri[k] != rj[k] {
				return ri[k] < rj[k]
			}
		}
		return strings.Compare(variants[i].Name, variants[j].Name) < 0
	})
}
