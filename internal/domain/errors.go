package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("datos inválidos")
	ErrNotFound     = errors.New("no encontrado")
	ErrConflict     = errors.New("conflicto")
	ErrPersistence  = errors.New("error de persistencia")
)

// ErrAmbiguousSelection se devuelve cuando una selección parcial coincide con
// más de una variante. Es un caso de ErrInvalidInput.
var ErrAmbiguousSelection = fmt.Errorf("%w: selección ambigua", ErrInvalidInput)

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
