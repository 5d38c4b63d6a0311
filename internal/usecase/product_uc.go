package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

type ProductUC struct {
	Store domain.Store
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	if p == nil {
		return domain.Invalid("producto nil")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Invalid("nombre vacío")
	}
	if !p.UnitPrice.Valid || p.UnitPrice.Decimal.IsNegative() {
		return domain.Invalid("precio base inválido")
	}
	if p.PurchasePrice.IsNegative() || p.Stock < 0 {
		return domain.Invalid("costo o stock negativo")
	}
	if p.Code != nil {
		if c := strings.TrimSpace(*p.Code); c == "" {
			p.Code = nil
		} else {
			p.Code = &c
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := uc.Store.Repos().Products.Save(ctx, p); err != nil {
		return err
	}
	log.Info().Str("product_id", p.ID.String()).Str("nombre", p.Name).Msg("producto creado")
	return nil
}

func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if id == uuid.Nil {
		return nil, domain.Invalid("product id")
	}
	return uc.Store.Repos().Products.FindByID(ctx, id)
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Store.Repos().Products.List(ctx, f)
}

func (uc *ProductUC) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.Invalid("product id")
	}
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		return r.Products.DeleteFull(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Info().Str("product_id", id.String()).Msg("producto eliminado")
	return nil
}

// --- Líneas de atributo ---

type LineValueInput struct {
	ValueID    uuid.UUID
	PriceExtra decimal.Decimal
	Kind       domain.AdjustmentKind
}

type LineInput struct {
	AttributeID uuid.UUID
	Sequence    *int
	Values      []LineValueInput
}

// SetLine crea o reemplaza la línea del atributo en el producto junto con sus
// valores elegibles y recargos. Las variantes no se tocan: hay que regenerar.
func (uc *ProductUC) SetLine(ctx context.Context, productID uuid.UUID, in LineInput) (*domain.ProductAttributeLine, error) {
	if productID == uuid.Nil || in.AttributeID == uuid.Nil {
		return nil, domain.Invalid("product id / attribute id")
	}
	var saved *domain.ProductAttributeLine
	err := uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		p, err := r.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if _, err := r.Attributes.FindByID(ctx, in.AttributeID); err != nil {
			return err
		}
		line := &domain.ProductAttributeLine{ProductID: productID, AttributeID: in.AttributeID}
		existing, err := r.Products.FindLine(ctx, productID, in.AttributeID)
		switch {
		case err == nil:
			line.ID = existing.ID
			line.Sequence = existing.Sequence
			line.CreatedAt = existing.CreatedAt
		case errors.Is(err, domain.ErrNotFound):
			for _, l := range p.Lines {
				if l.Sequence >= line.Sequence {
					line.Sequence = l.Sequence + 1
				}
			}
		default:
			return err
		}
		if in.Sequence != nil {
			line.Sequence = *in.Sequence
		}

		seen := map[uuid.UUID]bool{}
		for _, lv := range in.Values {
			if seen[lv.ValueID] {
				return domain.Invalid("valor repetido en la línea: %s", lv.ValueID)
			}
			seen[lv.ValueID] = true
			val, err := r.Attributes.FindValue(ctx, lv.ValueID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.Invalid("valor %s inexistente", lv.ValueID)
				}
				return err
			}
			if val.AttributeID != in.AttributeID {
				return domain.Invalid("el valor %q no pertenece al atributo", val.Value)
			}
			kind := lv.Kind
			if kind == "" {
				kind = domain.AdjustFixed
			}
			if !kind.Valid() {
				return domain.Invalid("tipo de recargo %q", kind)
			}
			line.Values = append(line.Values, domain.ProductAttributeLineValue{
				ValueID:        lv.ValueID,
				PriceExtra:     lv.PriceExtra,
				PriceExtraType: kind,
			})
		}
		if err := r.Products.SaveLine(ctx, line); err != nil {
			return err
		}
		saved, err = r.Products.FindLine(ctx, productID, in.AttributeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("product_id", productID.String()).Str("attribute_id", in.AttributeID.String()).Int("valores", len(in.Values)).Msg("línea de atributo guardada")
	return saved, nil
}

func (uc *ProductUC) RemoveLine(ctx context.Context, productID, attributeID uuid.UUID) error {
	return uc.Store.Transaction(ctx, func(ctx context.Context, r domain.Repos) error {
		line, err := r.Products.FindLine(ctx, productID, attributeID)
		if err != nil {
			return err
		}
		return r.Products.DeleteLine(ctx, line.ID)
	})
}
