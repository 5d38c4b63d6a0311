package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	sqlitedrv "modernc.org/sqlite"

	"github.com/phenrril/posvariantes/internal/domain"
)

// translate lleva los errores de gorm/driver a la taxonomía del dominio.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrPersistence),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// isTransient reconoce errores que justifican repetir una lectura.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqldrv.ErrInvalidConn) {
		return true
	}
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		// 1040 demasiadas conexiones, 1205 lock wait timeout, 1213 deadlock,
		// 2003/2006/2013 conexión perdida
		switch myErr.Number {
		case 1040, 1205, 1213, 2003, 2006, 2013:
			return true
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P03":
			return true
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
	}
	var liteErr *sqlitedrv.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
			return true
		}
	}
	return false
}

func retryRead(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || attempt >= attempts || !isTransient(err) {
			return err
		}
		log.Warn().Err(err).Int("intento", attempt).Msg("lectura fallida por error transitorio, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
}
