package variant

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/phenrril/posvariantes/internal/domain"
)

const (
	DefaultPrefixLen = 4
	valueFragmentLen = 4
	maxFragments     = 8
	suffixLen        = 6
)

// Prefix toma el código del producto si existe, si no el nombre.
func Prefix(p *domain.Product, n int) string {
	if n <= 0 {
		n = DefaultPrefixLen
	}
	src := p.Name
	if p.Code != nil && strings.TrimSpace(*p.Code) != "" {
		src = *p.Code
	}
	out := alnumUpper(src, n)
	if out == "" {
		return "VAR"
	}
	return out
}

// SKU es determinístico: el mismo producto con la misma combinación produce
// siempre el mismo código, y cambia sólo si cambia la combinación.
// Formato: PREFIJO-<inicial atributo + fragmento valor>...-<hash>.
func SKU(prefix string, productID uuid.UUID, set domain.AttributeSet) string {
	parts := []string{prefix}
	for i, p := range set.Pairs() {
		if i == maxFragments {
			break
		}
		frag := alnumUpper(p.Attribute, 1) + alnumUpper(p.Value, valueFragmentLen)
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	parts = append(parts, combinationHash(productID, set))
	return strings.Join(parts, "-")
}

// WithCollisionSuffix desambigua un SKU que ya existe en la tabla.
func WithCollisionSuffix(sku string, attempt int) string {
	if attempt <= 1 {
		return sku
	}
	return fmt.Sprintf("%s-%d", sku, attempt)
}

func combinationHash(productID uuid.UUID, set domain.AttributeSet) string {
	id := uuid.NewSHA1(productID, []byte(set.Key()))
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:suffixLen])
}

func alnumUpper(s string, n int) string {
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count == n {
			break
		}
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
	}
	return b.String()
}

// InternalEAN13 genera un EAN-13 de uso interno (prefijo 20) a partir de una
// semilla. attempt permite pedir otro código si el anterior ya está tomado.
func InternalEAN13(seed string, attempt int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", seed, attempt)))
	n := binary.BigEndian.Uint64(id[:8]) % 10_000_000_000
	body := fmt.Sprintf("20%010d", n)
	return body + string(rune('0'+ean13CheckDigit(body)))
}

func ValidEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return int(code[12]-'0') == ean13CheckDigit(code[:12])
}

func ean13CheckDigit(body string) int {
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}
