package sqlstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/posvariantes/internal/domain"
)

type ProductRepo struct{ conn }

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Omit(clause.Associations).Save(p).Error
	})
}

func preloadLines(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sequence asc, created_at asc") }).
		Preload(prefix + "Lines.Attribute").
		Preload(prefix + "Lines.Values").
		Preload(prefix + "Lines.Values.Value")
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.read(ctx, func(db *gorm.DB) error {
		return preloadLines(db, "").First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	var (
		list  []domain.Product
		total int64
	)
	err := r.read(ctx, func(db *gorm.DB) error {
		q := db.Model(&domain.Product{})
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if query := strings.TrimSpace(f.Query); query != "" {
			like := "%" + strings.ToLower(query) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(category) LIKE ?", like, like, like)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		offset := (f.Page - 1) * f.PageSize
		return q.Order("name asc").Offset(offset).Limit(f.PageSize).Find(&list).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// DeleteFull borra el producto con sus líneas, valores de línea y variantes.
func (r *ProductRepo) DeleteFull(ctx context.Context, id uuid.UUID) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			lineIDs := tx.Model(&domain.ProductAttributeLine{}).Select("id").Where("product_id = ?", id)
			if err := tx.Where("line_id IN (?)", lineIDs).Delete(&domain.ProductAttributeLineValue{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", id).Delete(&domain.ProductAttributeLine{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", id).Delete(&domain.Variant{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&domain.Product{}, "id = ?", id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrNotFound
			}
			return nil
		})
	})
}

func (r *ProductRepo) Lines(ctx context.Context, productID uuid.UUID) ([]domain.ProductAttributeLine, error) {
	var lines []domain.ProductAttributeLine
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Attribute").Preload("Values").Preload("Values.Value").
			Where("product_id = ?", productID).Order("sequence asc, created_at asc").Find(&lines).Error
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *ProductRepo) FindLine(ctx context.Context, productID, attributeID uuid.UUID) (*domain.ProductAttributeLine, error) {
	var ln domain.ProductAttributeLine
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Attribute").Preload("Values").Preload("Values.Value").
			First(&ln, "product_id = ? AND attribute_id = ?", productID, attributeID).Error
	})
	if err != nil {
		return nil, err
	}
	return &ln, nil
}

func (r *ProductRepo) SaveLine(ctx context.Context, line *domain.ProductAttributeLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	for i := range line.Values {
		line.Values[i].LineID = line.ID
		if line.Values[i].ID == uuid.Nil {
			line.Values[i].ID = uuid.New()
		}
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Save(line).Error; err != nil {
				return err
			}
			if err := tx.Where("line_id = ?", line.ID).Delete(&domain.ProductAttributeLineValue{}).Error; err != nil {
				return err
			}
			if len(line.Values) == 0 {
				return nil
			}
			return tx.Omit(clause.Associations).Create(&line.Values).Error
		})
	})
}

func (r *ProductRepo) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("line_id = ?", lineID).Delete(&domain.ProductAttributeLineValue{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&domain.ProductAttributeLine{}, "id = ?", lineID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrNotFound
			}
			return nil
		})
	})
}
