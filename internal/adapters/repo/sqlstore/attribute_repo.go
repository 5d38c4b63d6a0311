package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/posvariantes/internal/domain"
)

type AttributeRepo struct{ conn }

func orderedValues(db *gorm.DB) *gorm.DB { return db.Order("sequence asc, value asc") }

func (r *AttributeRepo) Save(ctx context.Context, a *domain.Attribute) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Omit(clause.Associations).Save(a).Error
	})
}

func (r *AttributeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Attribute, error) {
	var a domain.Attribute
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Values", orderedValues).First(&a, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttributeRepo) FindByNameKey(ctx context.Context, key string) (*domain.Attribute, error) {
	var a domain.Attribute
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Values", orderedValues).First(&a, "name_key = ?", key).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttributeRepo) List(ctx context.Context) ([]domain.Attribute, error) {
	var list []domain.Attribute
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Preload("Values", orderedValues).Order("name asc").Find(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteFull borra el atributo, sus valores y toda línea de producto que lo use.
func (r *AttributeRepo) DeleteFull(ctx context.Context, id uuid.UUID) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			lineIDs := tx.Model(&domain.ProductAttributeLine{}).Select("id").Where("attribute_id = ?", id)
			valueIDs := tx.Model(&domain.AttributeValue{}).Select("id").Where("attribute_id = ?", id)
			if err := tx.Where("line_id IN (?) OR value_id IN (?)", lineIDs, valueIDs).Delete(&domain.ProductAttributeLineValue{}).Error; err != nil {
				return err
			}
			if err := tx.Where("attribute_id = ?", id).Delete(&domain.ProductAttributeLine{}).Error; err != nil {
				return err
			}
			if err := tx.Where("attribute_id = ?", id).Delete(&domain.AttributeValue{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&domain.Attribute{}, "id = ?", id)
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

func (r *AttributeRepo) SaveValue(ctx context.Context, v *domain.AttributeValue) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Save(v).Error
	})
}

func (r *AttributeRepo) FindValue(ctx context.Context, id uuid.UUID) (*domain.AttributeValue, error) {
	var v domain.AttributeValue
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.First(&v, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *AttributeRepo) FindValueByKey(ctx context.Context, attributeID uuid.UUID, key string) (*domain.AttributeValue, error) {
	var v domain.AttributeValue
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.First(&v, "attribute_id = ? AND value_key = ?", attributeID, key).Error
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *AttributeRepo) DeleteValue(ctx context.Context, id uuid.UUID) error {
	return r.write(ctx, func(db *gorm.DB) error {
		res := db.Delete(&domain.AttributeValue{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *AttributeRepo) ValueInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.read(ctx, func(db *gorm.DB) error {
		return db.Model(&domain.ProductAttributeLineValue{}).Where("value_id = ?", id).Count(&count).Error
	})
	return count > 0, err
}
