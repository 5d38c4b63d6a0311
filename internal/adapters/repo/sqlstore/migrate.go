package sqlstore

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/phenrril/posvariantes/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate crea o actualiza el esquema y luego corre las migraciones de datos.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := normalizeLegacyAdjustments(ctx, db); err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(
		&domain.Product{},
		&domain.Attribute{},
		&domain.AttributeValue{},
		&domain.ProductAttributeLine{},
		&domain.ProductAttributeLineValue{},
		&domain.Variant{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return RunMigrations(ctx, db)
}

// normalizeLegacyAdjustments deja price_extra_type sin NULL antes de que
// AutoMigrate intente marcar la columna como NOT NULL en bases viejas.
func normalizeLegacyAdjustments(ctx context.Context, db *gorm.DB) error {
	m := db.WithContext(ctx).Migrator()
	if !m.HasTable(&domain.ProductAttributeLineValue{}) || !m.HasColumn(&domain.ProductAttributeLineValue{}, "price_extra_type") {
		return nil
	}
	res := db.WithContext(ctx).Exec("UPDATE product_attribute_line_values SET price_extra_type = ? WHERE price_extra_type IS NULL", string(domain.AdjustFixed))
	if res.Error != nil {
		return fmt.Errorf("normalizar price_extra_type: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Info().Int64("filas", res.RowsAffected).Msg("price_extra_type NULL convertido a fixed")
	}
	return nil
}

func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := goose.SetDialect(gooseDialect(db.Dialector.Name())); err != nil {
		return err
	}
	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func gooseDialect(name string) string {
	if name == "sqlite" {
		return "sqlite3"
	}
	return name
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	log.Debug().Msgf(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	log.Fatal().Msgf(format, v...)
}
