package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/legacy"
	"github.com/phenrril/posvariantes/internal/variant"
)

type RepairReport struct {
	Repaired []domain.Variant `json:"repaired"`
	// Skipped son variantes cuyo nombre no se pudo interpretar o choca con
	// otra combinación ya existente del producto.
	Skipped []domain.Variant `json:"skipped"`
}

// RepairFromNames reconstruye attribute_values a partir del nombre en las
// variantes que lo tienen vacío. Las demás no se tocan.
func (uc *VariantUC) RepairFromNames(ctx context.Context, productID uuid.UUID) (*RepairReport, error) {
	if productID == uuid.Nil {
		return nil, domain.Invalid("product id")
	}
	rep := &RepairReport{Repaired: []domain.Variant{}, Skipped: []domain.Variant{}}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		if _, err := r.Products.FindByID(ctx, productID); err != nil {
			return err
		}
		list, err := r.Variants.ListVariants(ctx, productID)
		if err != nil {
			return err
		}
		keys := make(map[string]bool, len(list))
		for _, v := range list {
			if v.AttributeValues.Len() > 0 {
				keys[v.CombinationKey] = true
			}
		}
		for i := range list {
			v := list[i]
			if v.AttributeValues.Len() > 0 {
				continue
			}
			set, err := legacy.ParseVariantName(v.Name)
			if err != nil || keys[set.Key()] {
				rep.Skipped = append(rep.Skipped, v)
				continue
			}
			if err := v.SetAttributes(set); err != nil {
				rep.Skipped = append(rep.Skipped, v)
				continue
			}
			if err := r.Variants.UpdateVariant(ctx, &v); err != nil {
				return err
			}
			keys[v.CombinationKey] = true
			rep.Repaired = append(rep.Repaired, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("product_id", productID.String()).Int("reparadas", len(rep.Repaired)).Int("omitidas", len(rep.Skipped)).Msg("atributos reconstruidos desde el nombre")
	return rep, nil
}

// LegacyRow es una variante exportada por el sistema anterior, donde los
// atributos sólo existían dentro del nombre.
type LegacyRow struct {
	Name    string
	Price   decimal.Decimal
	Stock   int
	Barcode string
}

type ImportReport struct {
	Created []domain.Variant `json:"created"`
	Skipped []string         `json:"skipped"`
}

// ImportLegacy crea variantes a partir de filas del sistema anterior. El
// precio de la fila se respeta tal cual; las combinaciones ya presentes se
// omiten.
func (uc *VariantUC) ImportLegacy(ctx context.Context, productID uuid.UUID, rows []LegacyRow) (*ImportReport, error) {
	if productID == uuid.Nil {
		return nil, domain.Invalid("product id")
	}
	rep := &ImportReport{Created: []domain.Variant{}, Skipped: []string{}}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		p, err := r.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		list, err := r.Variants.ListVariants(ctx, productID)
		if err != nil {
			return err
		}
		keys := make(map[string]bool, len(list))
		for _, v := range list {
			keys[v.CombinationKey] = true
		}
		prefix := variant.Prefix(p, uc.PrefixLen)
		for i, row := range rows {
			if row.Price.IsNegative() || row.Stock < 0 {
				return domain.Invalid("fila %d (%s): precio o stock negativo", i+1, row.Name)
			}
			set, err := legacy.ParseVariantName(row.Name)
			if err != nil {
				rep.Skipped = append(rep.Skipped, row.Name)
				continue
			}
			if keys[set.Key()] {
				rep.Skipped = append(rep.Skipped, row.Name)
				continue
			}
			v := domain.Variant{
				ID:            uuid.New(),
				ProductID:     p.ID,
				Name:          variant.Name(set),
				UnitPrice:     row.Price.Round(2),
				PurchasePrice: p.PurchasePrice,
				Stock:         row.Stock,
			}
			if err := v.SetAttributes(set); err != nil {
				return err
			}
			if v.SKU, err = freeSKU(ctx, r.Variants, variant.SKU(prefix, p.ID, set)); err != nil {
				return err
			}
			if code := strings.TrimSpace(row.Barcode); code != "" {
				taken, err := r.Variants.BarcodeExists(ctx, code)
				if err != nil {
					return err
				}
				if taken {
					return domain.Conflict("fila %d: el código %s ya está asignado", i+1, code)
				}
				v.Barcode = &code
			}
			if err := r.Variants.CreateVariant(ctx, &v); err != nil {
				return err
			}
			keys[v.CombinationKey] = true
			rep.Created = append(rep.Created, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("product_id", productID.String()).Int("creadas", len(rep.Created)).Int("omitidas", len(rep.Skipped)).Msg("variantes importadas")
	return rep, nil
}
