// Package legacy reconstruye atributos a partir de nombres de variante
// históricos del estilo "NEGRO / 128GB". Es una heurística con pérdida y sólo
// la usan las herramientas de reparación e importación.
package legacy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phenrril/posvariantes/internal/domain"
)

const (
	ColorAttribute   = "Color"
	StorageAttribute = "Storage"
)

var (
	storageRe = regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*(GB|TB|MB)$`)
	ramRomRe  = regexp.MustCompile(`(?i)^\d+\s*/\s*\d+(\s*(GB|TB))?$`)
	spacedSep = regexp.MustCompile(`\s+/\s+`)
)

var colors = map[string]struct{}{}

func init() {
	for _, c := range []string{
		"negro", "black", "blanco", "white", "azul", "blue", "rosa", "pink",
		"amarillo", "yellow", "verde", "green", "silver", "plata", "starlight", "midnight",
		"purple", "púrpura", "morado", "violeta", "lila", "lavender", "gris", "gray", "grey",
		"space gray", "space black", "gris oscuro", "oro", "gold", "dorado", "rojo", "red",
		"naranja", "orange", "coral", "arena", "sand", "natural", "titanium", "titanio",
		"turquesa", "lima", "celeste", "graphite", "grafito", "sage green", "mist blue",
	} {
		colors[c] = struct{}{}
	}
}

func IsColor(s string) bool {
	_, ok := colors[strings.ToLower(strings.Join(strings.Fields(s), " "))]
	return ok
}

func IsStorage(s string) bool {
	t := strings.TrimSpace(s)
	return storageRe.MatchString(t) || ramRomRe.MatchString(t)
}

// Split separa por " / ". Sólo si no hay separador con espacios cae a "/",
// así "BLACK / 4/128" conserva "4/128" como un único token.
func Split(name string) []string {
	var raw []string
	if spacedSep.MatchString(name) {
		raw = spacedSep.Split(name, -1)
	} else {
		raw = strings.Split(name, "/")
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := strings.Join(strings.Fields(r), " "); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseVariantName clasifica el primer token como Color si está en el
// vocabulario y los siguientes como Storage si parecen una capacidad; el
// resto queda como "Attribute N" según su posición.
func ParseVariantName(name string) (domain.AttributeSet, error) {
	tokens := Split(name)
	if len(tokens) == 0 {
		return domain.AttributeSet{}, domain.Invalid("nombre de variante vacío")
	}
	set := domain.AttributeSet{}
	for i, tok := range tokens {
		attr := fmt.Sprintf("Attribute %d", i+1)
		switch {
		case i == 0 && IsColor(tok):
			attr = ColorAttribute
		case i > 0 && IsStorage(tok):
			if _, taken := set.Get(StorageAttribute); !taken {
				attr = StorageAttribute
			}
		}
		next, err := set.With(attr, tok)
		if err != nil {
			return domain.AttributeSet{}, err
		}
		set = next
	}
	return set, nil
}
