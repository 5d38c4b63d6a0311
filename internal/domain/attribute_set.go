package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const maxCombinationKeyLen = 512

type AttributePair struct {
	Attribute string
	Value     string
}

// AttributeSet es el mapeo atributo -> valor de una variante. Conserva el
// orden de inserción (el orden de las líneas del producto) y no admite
// atributos repetidos. Los nombres de atributo se comparan sin distinguir
// mayúsculas; los valores, de forma exacta.
type AttributeSet struct {
	pairs []AttributePair
}

func NewAttributeSet(pairs ...AttributePair) (AttributeSet, error) {
	s := AttributeSet{pairs: make([]AttributePair, 0, len(pairs))}
	for _, p := range pairs {
		next, err := s.With(p.Attribute, p.Value)
		if err != nil {
			return AttributeSet{}, err
		}
		s = next
	}
	return s, nil
}

// With devuelve una copia con el par agregado al final.
func (s AttributeSet) With(attribute, value string) (AttributeSet, error) {
	a := strings.TrimSpace(attribute)
	if a == "" {
		return AttributeSet{}, Invalid("atributo vacío")
	}
	if _, ok := s.Get(a); ok {
		return AttributeSet{}, Invalid("atributo repetido: %s", a)
	}
	pairs := make([]AttributePair, len(s.pairs), len(s.pairs)+1)
	copy(pairs, s.pairs)
	pairs = append(pairs, AttributePair{Attribute: a, Value: strings.TrimSpace(value)})
	return AttributeSet{pairs: pairs}, nil
}

func (s AttributeSet) Get(attribute string) (string, bool) {
	a := strings.TrimSpace(attribute)
	for _, p := range s.pairs {
		if strings.EqualFold(p.Attribute, a) {
			return p.Value, true
		}
	}
	return "", false
}

func (s AttributeSet) Len() int { return len(s.pairs) }

func (s AttributeSet) Pairs() []AttributePair {
	out := make([]AttributePair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

func (s AttributeSet) Values() []string {
	out := make([]string, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p.Value)
	}
	return out
}

// Matches informa si cada entrada de la selección está presente con el mismo valor.
func (s AttributeSet) Matches(sel Selection) bool {
	for attr, want := range sel {
		got, ok := s.Get(attr)
		if !ok || got != strings.TrimSpace(want) {
			return false
		}
	}
	return true
}

// Key es la forma canónica e independiente del orden del conjunto. Dos
// variantes del mismo producto nunca comparten Key.
func (s AttributeSet) Key() string {
	parts := make([]string, 0, len(s.pairs))
	for _, p := range s.pairs {
		parts = append(parts, strconv.Quote(strings.ToLower(p.Attribute))+"="+strconv.Quote(p.Value))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func (s AttributeSet) Equal(o AttributeSet) bool { return s.Key() == o.Key() }

func (s AttributeSet) String() string { return strings.Join(s.Values(), " / ") }

func (s AttributeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Attribute)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *AttributeSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = AttributeSet{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attribute set: se esperaba un objeto JSON")
	}
	out := AttributeSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("attribute set: clave inválida %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// datos viejos guardaban capacidades como número
			value = strings.Trim(string(raw), `"`)
		}
		if out, err = out.With(key, value); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

func (s AttributeSet) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *AttributeSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = AttributeSet{}
		return nil
	case string:
		return s.UnmarshalJSON([]byte(v))
	case []byte:
		return s.UnmarshalJSON(v)
	default:
		return fmt.Errorf("attribute set: tipo no soportado %T", src)
	}
}

// Selection es lo que el usuario eligió hasta el momento: atributo -> valor.
type Selection map[string]string

func (sel Selection) Validate() error {
	for attr := range sel {
		if strings.TrimSpace(attr) == "" {
			return Invalid("selección con atributo vacío")
		}
	}
	return nil
}
