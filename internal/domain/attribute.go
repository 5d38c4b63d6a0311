package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DisplayType string

const (
	DisplayRadio  DisplayType = "radio"
	DisplaySelect DisplayType = "select"
	DisplayColor  DisplayType = "color"
	DisplayPills  DisplayType = "pills"
)

func (d DisplayType) Valid() bool {
	switch d {
	case DisplayRadio, DisplaySelect, DisplayColor, DisplayPills:
		return true
	}
	return false
}

// AdjustmentKind indica cómo se aplica el price_extra de un valor.
type AdjustmentKind string

const (
	AdjustFixed      AdjustmentKind = "fixed"
	AdjustPercentage AdjustmentKind = "percentage"
)

func (k AdjustmentKind) Valid() bool {
	return k == AdjustFixed || k == AdjustPercentage
}

type Attribute struct {
	ID          uuid.UUID        `gorm:"size:36;primaryKey"`
	Name        string           `gorm:"size:80;not null"`
	NameKey     string           `gorm:"size:80;not null;uniqueIndex"`
	DisplayType DisplayType      `gorm:"size:10;not null;default:'radio'"`
	Values      []AttributeValue `gorm:"foreignKey:AttributeID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Attribute) TableName() string { return "product_attributes" }

type AttributeValue struct {
	ID          uuid.UUID `gorm:"size:36;primaryKey"`
	AttributeID uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_attribute_value"`
	Value       string    `gorm:"size:120;not null"`
	ValueKey    string    `gorm:"size:120;not null;uniqueIndex:idx_attribute_value"`
	Sequence    int       `gorm:"default:0"`
	HTMLColor   string    `gorm:"size:9"`
	CreatedAt   time.Time
}

func (AttributeValue) TableName() string { return "product_attribute_values" }

type ProductAttributeLine struct {
	ID          uuid.UUID                   `gorm:"size:36;primaryKey"`
	ProductID   uuid.UUID                   `gorm:"size:36;not null;uniqueIndex:idx_product_attribute"`
	AttributeID uuid.UUID                   `gorm:"size:36;not null;uniqueIndex:idx_product_attribute"`
	Sequence    int                         `gorm:"default:0"`
	Attribute   *Attribute                  `gorm:"foreignKey:AttributeID"`
	Values      []ProductAttributeLineValue `gorm:"foreignKey:LineID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProductAttributeLine) TableName() string { return "product_attribute_lines" }

type ProductAttributeLineValue struct {
	ID             uuid.UUID       `gorm:"size:36;primaryKey"`
	LineID         uuid.UUID       `gorm:"size:36;not null;uniqueIndex:idx_line_value"`
	ValueID        uuid.UUID       `gorm:"size:36;not null;uniqueIndex:idx_line_value"`
	PriceExtra     decimal.Decimal `gorm:"type:decimal(12,4);default:0"`
	PriceExtraType AdjustmentKind  `gorm:"size:12;not null;default:'fixed'"`
	Value          *AttributeValue `gorm:"foreignKey:ValueID"`
}

func (ProductAttributeLineValue) TableName() string { return "product_attribute_line_values" }
