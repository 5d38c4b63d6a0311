package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/pricing"
	"github.com/phenrril/posvariantes/internal/variant"
)

const (
	maxSKUAttempts     = 50
	maxBarcodeAttempts = 20
	maxBarcodeLen      = 32
)

type VariantUC struct {
	Store     domain.Store
	PrefixLen int
}

type GenerateOptions struct {
	AssignBarcodes bool
}

// GenerateReport separa lo creado de lo que ya existía. Stale son variantes
// persistidas cuya combinación ya no se produce; no se borran porque las
// ventas las referencian.
type GenerateReport struct {
	Created  []domain.Variant `json:"created"`
	Existing []domain.Variant `json:"existing"`
	Stale    []domain.Variant `json:"stale"`
}

// Generate crea las variantes faltantes del producto en una sola transacción.
// Volver a correrlo sin cambios en las líneas no crea nada.
func (uc *VariantUC) Generate(ctx context.Context, productID uuid.UUID, opts GenerateOptions) (*GenerateReport, error) {
	if productID == uuid.Nil {
		return nil, domain.Invalid("product id")
	}
	rep := &GenerateReport{Created: []domain.Variant{}, Existing: []domain.Variant{}, Stale: []domain.Variant{}}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		p, err := r.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if !p.UnitPrice.Valid {
			return domain.Invalid("el producto %q no tiene precio base", p.Name)
		}
		dims, err := variant.DimensionsFromLines(p.Lines)
		if err != nil {
			return err
		}
		combos, err := variant.Combinations(dims)
		if err != nil {
			return err
		}
		existing, err := r.Variants.ListVariants(ctx, p.ID)
		if err != nil {
			return err
		}
		byKey := make(map[string]domain.Variant, len(existing))
		for _, v := range existing {
			byKey[v.CombinationKey] = v
		}

		prefix := variant.Prefix(p, uc.PrefixLen)
		produced := make(map[string]bool, len(combos))
		for _, c := range combos {
			key := c.Attributes.Key()
			produced[key] = true
			if v, ok := byKey[key]; ok {
				rep.Existing = append(rep.Existing, v)
				continue
			}
			b, err := pricing.Calculate(p.UnitPrice, c.Adjustments())
			if err != nil {
				return err
			}
			v := domain.Variant{
				ID:            uuid.New(),
				ProductID:     p.ID,
				Name:          variant.Name(c.Attributes),
				UnitPrice:     pricing.Round(b.FinalPrice),
				PurchasePrice: p.PurchasePrice,
			}
			if err := v.SetAttributes(c.Attributes); err != nil {
				return err
			}
			if v.SKU, err = freeSKU(ctx, r.Variants, variant.SKU(prefix, p.ID, c.Attributes)); err != nil {
				return err
			}
			if opts.AssignBarcodes {
				code, err := freeBarcode(ctx, r.Variants, v.SKU)
				if err != nil {
					return err
				}
				v.Barcode = &code
			}
			if err := r.Variants.CreateVariant(ctx, &v); err != nil {
				return fmt.Errorf("crear variante %s: %w", v.Name, err)
			}
			rep.Created = append(rep.Created, v)
		}
		for _, v := range existing {
			if !produced[v.CombinationKey] {
				rep.Stale = append(rep.Stale, v)
			}
		}
		variant.Sort(rep.Created, dims)
		variant.Sort(rep.Existing, dims)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("product_id", productID.String()).Msg("generación de variantes fallida")
		return nil, err
	}
	log.Info().
		Str("product_id", productID.String()).
		Int("creadas", len(rep.Created)).
		Int("existentes", len(rep.Existing)).
		Int("obsoletas", len(rep.Stale)).
		Msg("variantes generadas")
	return rep, nil
}

func freeSKU(ctx context.Context, repo domain.VariantRepo, base string) (string, error) {
	for attempt := 1; attempt <= maxSKUAttempts; attempt++ {
		sku := variant.WithCollisionSuffix(base, attempt)
		taken, err := repo.SKUExists(ctx, sku)
		if err != nil {
			return "", err
		}
		if !taken {
			return sku, nil
		}
	}
	return "", domain.Conflict("no hay SKU libre para %s", base)
}

func freeBarcode(ctx context.Context, repo domain.VariantRepo, seed string) (string, error) {
	for attempt := 0; attempt < maxBarcodeAttempts; attempt++ {
		code := variant.InternalEAN13(seed, attempt)
		taken, err := repo.BarcodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.Conflict("no hay código de barras libre para %s", seed)
}

// productView carga producto, dimensiones y variantes fuera de transacción.
func (uc *VariantUC) productView(ctx context.Context, productID uuid.UUID) ([]variant.Dimension, []domain.Variant, error) {
	if productID == uuid.Nil {
		return nil, nil, domain.Invalid("product id")
	}
	r := uc.Store.Repos()
	p, err := r.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	dims, err := variant.DimensionsFromLines(p.Lines)
	if err != nil {
		return nil, nil, err
	}
	list, err := r.Variants.ListVariants(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	return dims, list, nil
}

func (uc *VariantUC) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	dims, list, err := uc.productView(ctx, productID)
	if err != nil {
		return nil, err
	}
	variant.Sort(list, dims)
	return list, nil
}

// Match devuelve todas las variantes compatibles con la selección, en el
// orden de las líneas del producto. Una selección vacía devuelve todas.
func (uc *VariantUC) Match(ctx context.Context, productID uuid.UUID, sel domain.Selection) ([]domain.Variant, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	dims, list, err := uc.productView(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := variant.Match(list, sel)
	variant.Sort(out, dims)
	return out, nil
}

// Resolve exige una única variante: con varias candidatas devuelve
// ErrAmbiguousSelection y no elige por el usuario.
func (uc *VariantUC) Resolve(ctx context.Context, productID uuid.UUID, sel domain.Selection) (*domain.Variant, error) {
	candidates, err := uc.Match(ctx, productID, sel)
	if err != nil {
		return nil, err
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: ninguna variante coincide con la selección", domain.ErrNotFound)
	case 1:
		return &candidates[0], nil
	default:
		return nil, fmt.Errorf("%w: %d variantes coinciden", domain.ErrAmbiguousSelection, len(candidates))
	}
}

func (uc *VariantUC) Quote(ctx context.Context, productID uuid.UUID, sel domain.Selection) (pricing.Breakdown, error) {
	if productID == uuid.Nil {
		return pricing.Breakdown{}, domain.Invalid("product id")
	}
	p, err := uc.Store.Repos().Products.FindByID(ctx, productID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.Quote(p, sel)
}

type RepriceReport struct {
	Updated   []domain.Variant `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Skipped   []domain.Variant `json:"skipped"`
}

// Reprice recalcula el precio de cada variante con las líneas actuales. Las
// variantes con valores que ya no son elegibles conservan su precio.
func (uc *VariantUC) Reprice(ctx context.Context, productID uuid.UUID) (*RepriceReport, error) {
	if productID == uuid.Nil {
		return nil, domain.Invalid("product id")
	}
	rep := &RepriceReport{Updated: []domain.Variant{}, Skipped: []domain.Variant{}}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		p, err := r.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		dims, err := variant.DimensionsFromLines(p.Lines)
		if err != nil {
			return err
		}
		list, err := r.Variants.ListVariants(ctx, productID)
		if err != nil {
			return err
		}
		for i := range list {
			v := list[i]
			extras, err := variant.Extras(dims, v.AttributeValues)
			if err != nil || v.AttributeValues.Len() == 0 {
				rep.Skipped = append(rep.Skipped, v)
				continue
			}
			b, err := pricing.Calculate(p.UnitPrice, extras)
			if err != nil {
				return err
			}
			price := pricing.Round(b.FinalPrice)
			if price.Equal(v.UnitPrice) {
				rep.Unchanged++
				continue
			}
			v.UnitPrice = price
			if err := r.Variants.UpdateVariant(ctx, &v); err != nil {
				return err
			}
			rep.Updated = append(rep.Updated, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("product_id", productID.String()).Int("actualizadas", len(rep.Updated)).Int("omitidas", len(rep.Skipped)).Msg("precios recalculados")
	return rep, nil
}

// AdjustStock suma delta (negativo para descontar) y devuelve el stock nuevo.
func (uc *VariantUC) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (int, error) {
	if variantID == uuid.Nil {
		return 0, domain.Invalid("variant id")
	}
	if delta == 0 {
		return 0, domain.Invalid("delta de stock en cero")
	}
	var stock int
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		stock, err = r.Variants.UpdateVariantStock(ctx, variantID, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Info().Str("variant_id", variantID.String()).Int("delta", delta).Int("stock", stock).Msg("stock ajustado")
	return stock, nil
}

// AssignBarcode fija el código de barras; un código vacío lo quita. Un código
// de 13 dígitos se valida como EAN-13.
func (uc *VariantUC) AssignBarcode(ctx context.Context, variantID uuid.UUID, barcode string) (*domain.Variant, error) {
	code := strings.TrimSpace(barcode)
	if len(code) > maxBarcodeLen {
		return nil, domain.Invalid("código de barras demasiado largo")
	}
	for _, r := range code {
		if r < '!' || r > '~' {
			return nil, domain.Invalid("código de barras con caracteres inválidos")
		}
	}
	if len(code) == 13 && isDigits(code) && !variant.ValidEAN13(code) {
		return nil, domain.Invalid("EAN-13 %s con dígito verificador incorrecto", code)
	}
	var out *domain.Variant
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		v, err := r.Variants.FindVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if code == "" {
			v.Barcode = nil
		} else {
			other, err := r.Variants.FindVariantByBarcode(ctx, code)
			switch {
			case err == nil && other.ID != v.ID:
				return domain.Conflict("el código %s ya es de %s", code, other.SKU)
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return err
			}
			v.Barcode = &code
		}
		if err := r.Variants.UpdateVariant(ctx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
