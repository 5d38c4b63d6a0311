package domain

import (
	"context"

	"github.com/google/uuid"
)

type ProductFilter struct {
	Query    string
	Category string
	Page     int
	PageSize int
}

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	// FindByID devuelve el producto con sus líneas, valores elegibles y atributos.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	DeleteFull(ctx context.Context, id uuid.UUID) error
	Lines(ctx context.Context, productID uuid.UUID) ([]ProductAttributeLine, error)
	FindLine(ctx context.Context, productID, attributeID uuid.UUID) (*ProductAttributeLine, error)
	// SaveLine inserta o actualiza la línea y reemplaza sus valores elegibles.
	SaveLine(ctx context.Context, line *ProductAttributeLine) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
}

type AttributeRepo interface {
	Save(ctx context.Context, a *Attribute) error
	FindByID(ctx context.Context, id uuid.UUID) (*Attribute, error)
	FindByNameKey(ctx context.Context, key string) (*Attribute, error)
	List(ctx context.Context) ([]Attribute, error)
	DeleteFull(ctx context.Context, id uuid.UUID) error
	SaveValue(ctx context.Context, v *AttributeValue) error
	FindValue(ctx context.Context, id uuid.UUID) (*AttributeValue, error)
	FindValueByKey(ctx context.Context, attributeID uuid.UUID, key string) (*AttributeValue, error)
	DeleteValue(ctx context.Context, id uuid.UUID) error
	ValueInUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type VariantRepo interface {
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*Variant, error)
	FindVariantBySKU(ctx context.Context, sku string) (*Variant, error)
	FindVariantByBarcode(ctx context.Context, barcode string) (*Variant, error)
	SKUExists(ctx context.Context, sku string) (bool, error)
	BarcodeExists(ctx context.Context, barcode string) (bool, error)
	CreateVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, v *Variant) error
	// UpdateVariantStock suma delta al stock y devuelve el stock resultante.
	UpdateVariantStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type Repos struct {
	Products   ProductRepo
	Attributes AttributeRepo
	Variants   VariantRepo
}

// Store entrega repositorios y abre unidades de trabajo transaccionales.
type Store interface {
	Repos() Repos
	Transaction(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
