package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/posvariantes/internal/domain"
)

const legacyKeyPrefix = "#sin-atributos:"

type VariantRepo struct{ conn }

func (r *VariantRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	var list []domain.Variant
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Where("product_id = ?", productID).Order("created_at asc, sku asc").Find(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *VariantRepo) findOne(ctx context.Context, query string, arg any) (*domain.Variant, error) {
	var v domain.Variant
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.First(&v, query, arg).Error
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VariantRepo) FindVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *VariantRepo) FindVariantBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	return r.findOne(ctx, "sku = ?", sku)
}

func (r *VariantRepo) FindVariantByBarcode(ctx context.Context, barcode string) (*domain.Variant, error) {
	return r.findOne(ctx, "barcode = ?", barcode)
}

func (r *VariantRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Model(&domain.Variant{}).Where(query, arg).Count(&count).Error
	})
	return count > 0, err
}

func (r *VariantRepo) SKUExists(ctx context.Context, sku string) (bool, error) {
	return r.exists(ctx, "sku = ?", sku)
}

func (r *VariantRepo) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	return r.exists(ctx, "barcode = ?", barcode)
}

func (r *VariantRepo) CreateVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	syncCombinationKey(v)
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Create(v).Error
	})
}

func (r *VariantRepo) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == uuid.Nil {
		return domain.Invalid("variante sin id")
	}
	syncCombinationKey(v)
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Save(v).Error
	})
}

// syncCombinationKey recalcula la clave desde el mapeo. Las filas heredadas sin
// atributos reciben una clave propia para no chocar en el índice único.
func syncCombinationKey(v *domain.Variant) {
	if v.AttributeValues.Len() == 0 {
		v.CombinationKey = legacyKeyPrefix + v.ID.String()
		return
	}
	v.CombinationKey = v.AttributeValues.Key()
}

// UpdateVariantStock aplica delta de forma atómica y nunca deja stock negativo.
func (r *VariantRepo) UpdateVariantStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var stock int
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&domain.Variant{}).
			Where("id = ? AND COALESCE(stock, 0) + ? >= 0", id, delta).
			UpdateColumn("stock", gorm.Expr("COALESCE(stock, 0) + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		var v domain.Variant
		if err := db.Select("stock").First(&v, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return domain.Conflict("stock insuficiente: hay %d, se pidió %d", v.Stock, -delta)
		}
		stock = v.Stock
		return nil
	})
	return stock, err
}
