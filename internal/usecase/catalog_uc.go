package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/posvariantes/internal/domain"
)

var htmlColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// colores por defecto para atributos de tipo color
var colorHex = map[string]string{
	"negro":       "#111827",
	"black":       "#111827",
	"blanco":      "#ffffff",
	"white":       "#ffffff",
	"azul":        "#3b82f6",
	"blue":        "#3b82f6",
	"verde":       "#10b981",
	"green":       "#10b981",
	"amarillo":    "#f59e0b",
	"yellow":      "#f59e0b",
	"rojo":        "#ef4444",
	"red":         "#ef4444",
	"violeta":     "#6366f1",
	"purple":      "#6366f1",
	"lila":        "#8b5cf6",
	"rosa":        "#ec4899",
	"pink":        "#ec4899",
	"turquesa":    "#14b8a6",
	"lima":        "#a3e635",
	"gris":        "#64748b",
	"gray":        "#64748b",
	"gris oscuro": "#334155",
}

const defaultHTMLColor = "#334155"

func ColorHex(name string) string {
	if hex, ok := colorHex[domain.NormalizeKey(name)]; ok {
		return hex
	}
	return defaultHTMLColor
}

type CatalogUC struct {
	Store domain.Store
}

func (uc *CatalogUC) CreateAttribute(ctx context.Context, name string, display domain.DisplayType) (*domain.Attribute, error) {
	n := strings.Join(strings.Fields(name), " ")
	if n == "" {
		return nil, domain.Invalid("nombre de atributo vacío")
	}
	if display == "" {
		display = domain.DisplayRadio
	}
	if !display.Valid() {
		return nil, domain.Invalid("tipo de visualización %q", display)
	}
	a := &domain.Attribute{ID: uuid.New(), Name: n, NameKey: domain.NormalizeKey(n), DisplayType: display}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		if _, err := r.Attributes.FindByNameKey(ctx, a.NameKey); err == nil {
			return domain.Conflict("ya existe el atributo %q", n)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return r.Attributes.Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("attribute_id", a.ID.String()).Str("nombre", a.Name).Msg("atributo creado")
	return a, nil
}

func (uc *CatalogUC) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	return uc.Store.Repos().Attributes.List(ctx)
}

func (uc *CatalogUC) GetAttribute(ctx context.Context, id uuid.UUID) (*domain.Attribute, error) {
	if id == uuid.Nil {
		return nil, domain.Invalid("attribute id")
	}
	return uc.Store.Repos().Attributes.FindByID(ctx, id)
}

// DeleteAttribute borra en cascada valores y líneas de producto. Las variantes
// ya generadas conservan su mapeo como historial.
func (uc *CatalogUC) DeleteAttribute(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.Invalid("attribute id")
	}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		return r.Attributes.DeleteFull(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Info().Str("attribute_id", id.String()).Msg("atributo eliminado")
	return nil
}

type ValueInput struct {
	Value     string
	Sequence  *int
	HTMLColor string
}

func (uc *CatalogUC) AddValue(ctx context.Context, attributeID uuid.UUID, in ValueInput) (*domain.AttributeValue, error) {
	val := strings.Join(strings.Fields(in.Value), " ")
	if val == "" {
		return nil, domain.Invalid("valor vacío")
	}
	color := strings.TrimSpace(in.HTMLColor)
	if color != "" && !htmlColorRe.MatchString(color) {
		return nil, domain.Invalid("color html %q", color)
	}
	v := &domain.AttributeValue{ID: uuid.New(), AttributeID: attributeID, Value: val, ValueKey: domain.NormalizeKey(val), HTMLColor: strings.ToLower(color)}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		a, err := r.Attributes.FindByID(ctx, attributeID)
		if err != nil {
			return err
		}
		if _, err := r.Attributes.FindValueByKey(ctx, attributeID, v.ValueKey); err == nil {
			return domain.Conflict("%s ya tiene el valor %q", a.Name, val)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if in.Sequence != nil {
			v.Sequence = *in.Sequence
		} else {
			for _, existing := range a.Values {
				if existing.Sequence >= v.Sequence {
					v.Sequence = existing.Sequence + 1
				}
			}
		}
		if a.DisplayType == domain.DisplayColor && v.HTMLColor == "" {
			v.HTMLColor = ColorHex(val)
		}
		return r.Attributes.SaveValue(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RemoveValue se niega mientras alguna línea de producto use el valor.
func (uc *CatalogUC) RemoveValue(ctx context.Context, valueID uuid.UUID) error {
	return uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		inUse, err := r.Attributes.ValueInUse(ctx, valueID)
		if err != nil {
			return err
		}
		if inUse {
			return domain.Conflict("el valor está asignado a productos")
		}
		return r.Attributes.DeleteValue(ctx, valueID)
	})
}
