package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/posvariantes/internal/adapters/httpserver"
	"github.com/phenrril/posvariantes/internal/adapters/repo/sqlstore"
	"github.com/phenrril/posvariantes/internal/config"
	"github.com/phenrril/posvariantes/internal/domain"
	"github.com/phenrril/posvariantes/internal/usecase"
)

type App struct {
	DB        *gorm.DB
	Store     *sqlstore.Store
	CatalogUC *usecase.CatalogUC
	ProductUC *usecase.ProductUC
	VariantUC *usecase.VariantUC
	Generate  usecase.GenerateOptions
}

func NewApp(db *gorm.DB, cfg *config.Config) (*App, error) {
	if db == nil {
		return nil, errors.New("db nil")
	}
	store := sqlstore.NewStore(db, sqlstore.WithReadRetry(cfg.DB.ReadAttempts, 200*time.Millisecond))

	app := &App{DB: db, Store: store}
	app.CatalogUC = &usecase.CatalogUC{Store: store}
	app.ProductUC = &usecase.ProductUC{Store: store}
	app.VariantUC = &usecase.VariantUC{Store: store, PrefixLen: cfg.Variants.SKUPrefixLen}
	app.Generate = usecase.GenerateOptions{AssignBarcodes: cfg.Variants.AssignBarcodes}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.CatalogUC, a.ProductUC, a.VariantUC, a.Generate)
}

func (a *App) Migrate(ctx context.Context) error {
	return sqlstore.Migrate(ctx, a.DB)
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Seed carga un catálogo de ejemplo si la base no tiene atributos.
func (a *App) Seed(ctx context.Context) error {
	attrs, err := a.CatalogUC.ListAttributes(ctx)
	if err != nil {
		return err
	}
	if len(attrs) > 0 {
		return nil
	}
	color, err := a.CatalogUC.CreateAttribute(ctx, "Color", domain.DisplayColor)
	if err != nil {
		return err
	}
	storage, err := a.CatalogUC.CreateAttribute(ctx, "Storage", domain.DisplayPills)
	if err != nil {
		return err
	}
	var colorLine, storageLine []usecase.LineValueInput
	for _, c := range []string{"Negro", "Blanco", "Azul"} {
		v, err := a.CatalogUC.AddValue(ctx, color.ID, usecase.ValueInput{Value: c})
		if err != nil {
			return err
		}
		colorLine = append(colorLine, usecase.LineValueInput{ValueID: v.ID, Kind: domain.AdjustFixed})
	}
	for i, s := range []string{"128GB", "256GB"} {
		v, err := a.CatalogUC.AddValue(ctx, storage.ID, usecase.ValueInput{Value: s})
		if err != nil {
			return err
		}
		storageLine = append(storageLine, usecase.LineValueInput{ValueID: v.ID, PriceExtra: decimal.NewFromInt(int64(i * 150)), Kind: domain.AdjustFixed})
	}

	code := "IP13"
	p := &domain.Product{Name: "iPhone 13", Code: &code, Category: "celulares", UnitPrice: decimal.NewNullDecimal(decimal.NewFromInt(1500))}
	if err := a.ProductUC.Create(ctx, p); err != nil {
		return err
	}
	if _, err := a.ProductUC.SetLine(ctx, p.ID, usecase.LineInput{AttributeID: color.ID, Values: colorLine}); err != nil {
		return err
	}
	if _, err := a.ProductUC.SetLine(ctx, p.ID, usecase.LineInput{AttributeID: storage.ID, Values: storageLine}); err != nil {
		return err
	}
	if _, err := a.VariantUC.Generate(ctx, p.ID, a.Generate); err != nil {
		return err
	}
	log.Info().Str("product_id", p.ID.String()).Msg("catálogo de ejemplo cargado")
	return nil
}
