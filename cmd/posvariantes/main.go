package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm/logger"

	"github.com/phenrril/posvariantes/internal/adapters/repo/sqlstore"
	"github.com/phenrril/posvariantes/internal/adapters/xlsx"
	"github.com/phenrril/posvariantes/internal/app"
	"github.com/phenrril/posvariantes/internal/config"
	"github.com/phenrril/posvariantes/internal/domain"
)

func main() {
	root := &cli.Command{
		Name:  "posvariantes",
		Usage: "Variantes de producto, precios y SKU para el punto de venta",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			generateCommand(),
			resolveCommand(),
			priceCommand(),
			repriceCommand(),
			stockCommand(),
			exportCommand(),
			importLegacyCommand(),
			repairCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		if isDeclined(err) {
			fmt.Fprintf(os.Stderr, "operación rechazada: %v\n", err)
			os.Exit(1)
		}
		zlog.Fatal().Err(err).Msg("posvariantes")
	}
}

func isDeclined(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict)
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Production() {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// bootstrap carga la configuración, abre la base y deja el esquema al día.
func bootstrap(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg)

	gormLevel := logger.Error
	if cfg.LogLevel == "debug" {
		gormLevel = logger.Info
	}
	db, err := sqlstore.Open(cfg.DB.Driver, cfg.DB.DSN, gormLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("conectar a la base: %w", err)
	}
	a, err := app.NewApp(db, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Migrate(ctx); err != nil {
		_ = a.Close()
		return nil, nil, fmt.Errorf("migrar: %w", err)
	}
	return a, cfg, nil
}

func withApp(fn func(ctx context.Context, c *cli.Command, a *app.App, cfg *config.Config) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, cfg, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, c, a, cfg)
	}
}

func productFlag() cli.Flag {
	return &cli.StringFlag{Name: "product", Aliases: []string{"p"}, Required: true, Usage: "id del producto"}
}

func selectFlag() cli.Flag {
	return &cli.StringFlag{Name: "select", Aliases: []string{"s"}, Usage: "Atributo=Valor,Atributo=Valor"}
}

func parseID(c *cli.Command, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.String(name)))
	if err != nil {
		return uuid.Nil, domain.Invalid("--%s: %v", name, err)
	}
	return id, nil
}

// parseSelection interpreta "Color=BLACK,Storage=128GB".
func parseSelection(raw string) (domain.Selection, error) {
	sel := domain.Selection{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, domain.Invalid("selección %q: falta '='", part)
		}
		sel[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return sel, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Levanta la API HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "dirección de escucha (default HTTP_ADDR)"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, cfg *config.Config) error {
			addr := cfg.HTTPAddr
			if v := c.String("addr"); v != "" {
				addr = v
			}
			srv := &http.Server{Addr: addr, Handler: a.HTTPHandler(), ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				zlog.Info().Str("addr", addr).Msg("servidor escuchando")
				errCh <- srv.ListenAndServe()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Crea o actualiza el esquema y normaliza datos heredados",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "seed", Usage: "carga un catálogo de ejemplo si la base está vacía"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			if c.Bool("seed") {
				if err := a.Seed(ctx); err != nil {
					return err
				}
			}
			zlog.Info().Msg("esquema al día")
			return nil
		}),
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Genera las variantes faltantes de un producto",
		Flags: []cli.Flag{
			productFlag(),
			&cli.BoolFlag{Name: "barcodes", Usage: "asigna EAN-13 internos a las variantes nuevas"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			opts := a.Generate
			if c.Bool("barcodes") {
				opts.AssignBarcodes = true
			}
			rep, err := a.VariantUC.Generate(ctx, id, opts)
			if err != nil {
				return err
			}
			fmt.Printf("creadas: %d · existentes: %d · obsoletas: %d\n", len(rep.Created), len(rep.Existing), len(rep.Stale))
			for _, v := range rep.Created {
				fmt.Printf("  + %-28s %-32s %s\n", v.Name, v.SKU, v.UnitPrice.StringFixed(2))
			}
			for _, v := range rep.Stale {
				fmt.Printf("  ! %-28s %-32s (ya no se genera)\n", v.Name, v.SKU)
			}
			return nil
		}),
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Busca la variante que corresponde a una selección de atributos",
		Flags: []cli.Flag{
			productFlag(),
			selectFlag(),
			&cli.BoolFlag{Name: "all", Usage: "lista todas las candidatas en vez de exigir una única"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			sel, err := parseSelection(c.String("select"))
			if err != nil {
				return err
			}
			if c.Bool("all") {
				list, err := a.VariantUC.Match(ctx, id, sel)
				if err != nil {
					return err
				}
				for _, v := range list {
					fmt.Printf("%-32s %-28s %s\n", v.SKU, v.Name, v.UnitPrice.StringFixed(2))
				}
				return nil
			}
			v, err := a.VariantUC.Resolve(ctx, id, sel)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"id":         v.ID,
				"sku":        v.SKU,
				"name":       v.Name,
				"barcode":    v.BarcodeString(),
				"unit_price": v.UnitPrice,
				"stock":      v.Stock,
				"attributes": v.AttributeValues,
			})
		}),
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "Calcula el precio de una selección sin tocar variantes",
		Flags: []cli.Flag{productFlag(), selectFlag()},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			sel, err := parseSelection(c.String("select"))
			if err != nil {
				return err
			}
			b, err := a.VariantUC.Quote(ctx, id, sel)
			if err != nil {
				return err
			}
			return printJSON(b)
		}),
	}
}

func repriceCommand() *cli.Command {
	return &cli.Command{
		Name:  "reprice",
		Usage: "Recalcula el precio de las variantes con los recargos actuales",
		Flags: []cli.Flag{productFlag()},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			rep, err := a.VariantUC.Reprice(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("actualizadas: %d · sin cambios: %d · omitidas: %d\n", len(rep.Updated), rep.Unchanged, len(rep.Skipped))
			return nil
		}),
	}
}

func stockCommand() *cli.Command {
	return &cli.Command{
		Name:  "stock",
		Usage: "Suma o descuenta stock de una variante",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "variant", Aliases: []string{"v"}, Required: true, Usage: "id de la variante"},
			&cli.StringFlag{Name: "delta", Required: true, Usage: "cantidad, negativa para descontar"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "variant")
			if err != nil {
				return err
			}
			delta, err := strconv.Atoi(strings.TrimSpace(c.String("delta")))
			if err != nil {
				return domain.Invalid("--delta: %v", err)
			}
			stock, err := a.VariantUC.AdjustStock(ctx, id, delta)
			if err != nil {
				return err
			}
			fmt.Printf("stock: %d\n", stock)
			return nil
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Exporta las variantes de un producto a xlsx",
		Flags: []cli.Flag{
			productFlag(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "variantes.xlsx"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			p, err := a.ProductUC.Get(ctx, id)
			if err != nil {
				return err
			}
			list, err := a.VariantUC.ListVariants(ctx, id)
			if err != nil {
				return err
			}
			f, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			if err := xlsx.ExportVariants(f, p, list); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			zlog.Info().Str("archivo", c.String("out")).Int("variantes", len(list)).Msg("exportación lista")
			return nil
		}),
	}
}

func importLegacyCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-legacy",
		Usage: "Importa variantes de una planilla del sistema anterior",
		Flags: []cli.Flag{
			productFlag(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "xlsx con nombre, precio, stock y código"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := xlsx.ReadLegacyRows(f)
			if err != nil {
				return err
			}
			rep, err := a.VariantUC.ImportLegacy(ctx, id, rows)
			if err != nil {
				return err
			}
			fmt.Printf("importadas: %d · omitidas: %d\n", len(rep.Created), len(rep.Skipped))
			for _, name := range rep.Skipped {
				fmt.Printf("  - %s\n", name)
			}
			return nil
		}),
	}
}

func repairCommand() *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "Reconstruye los atributos de variantes heredadas a partir del nombre",
		Flags: []cli.Flag{productFlag()},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app.App, _ *config.Config) error {
			id, err := parseID(c, "product")
			if err != nil {
				return err
			}
			rep, err := a.VariantUC.RepairFromNames(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("reparadas: %d · omitidas: %d\n", len(rep.Repaired), len(rep.Skipped))
			return nil
		}),
	}
}
