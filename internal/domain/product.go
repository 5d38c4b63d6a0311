package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID           `gorm:"size:36;primaryKey"`
	Name          string              `gorm:"size:180;not null"`
	Code          *string             `gorm:"size:60;uniqueIndex"`
	Category      string              `gorm:"size:100"`
	UnitPrice     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	PurchasePrice decimal.Decimal     `gorm:"type:decimal(12,2);default:0"`
	Stock         int                 `gorm:"default:0"`
	Lines         []ProductAttributeLine
	Variants      []Variant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Product) TableName() string { return "products" }

type Variant struct {
	ID              uuid.UUID       `gorm:"size:36;primaryKey"`
	ProductID       uuid.UUID       `gorm:"size:36;not null;uniqueIndex:idx_variant_combination"`
	Name            string          `gorm:"size:255"`
	SKU             string          `gorm:"size:120;not null;uniqueIndex"`
	Barcode         *string         `gorm:"size:32;uniqueIndex"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	Stock           int             `gorm:"default:0"`
	AttributeValues AttributeSet    `gorm:"type:text"`
	CombinationKey  string          `gorm:"size:512;not null;uniqueIndex:idx_variant_combination"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Variant) TableName() string { return "product_variants" }

// SetAttributes asigna el mapeo y mantiene CombinationKey sincronizada.
func (v *Variant) SetAttributes(s AttributeSet) error {
	key := s.Key()
	if len(key) > maxCombinationKeyLen {
		return Invalid("combinación demasiado larga (%d)", len(key))
	}
	v.AttributeValues = s
	v.CombinationKey = key
	return nil
}

func (v Variant) BarcodeString() string {
	if v.Barcode == nil {
		return ""
	}
	return *v.Barcode
}

func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
