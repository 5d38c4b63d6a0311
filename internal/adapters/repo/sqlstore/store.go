package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/posvariantes/internal/domain"
)

const (
	defaultReadAttempts = 3
	defaultBackoff      = 200 * time.Millisecond
)

// Open abre la base según el driver configurado. sqlite es el default para
// la terminal de escritorio; postgres y mysql sirven para una base compartida.
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: sqliteDSN(dsn)}
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("driver de base no soportado: %q", driver)
	}
	if level == 0 {
		level = logger.Silent
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Store implementa domain.Store sobre gorm. No guarda estado global: cada
// unidad de trabajo recibe su propio handle.
type Store struct {
	db           *gorm.DB
	readAttempts int
	backoff      time.Duration
}

type Option func(*Store)

func WithReadRetry(attempts int, backoff time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.readAttempts = attempts
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, readAttempts: defaultReadAttempts, backoff: defaultBackoff}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Repos() domain.Repos {
	return s.repos(conn{db: s.db, attempts: s.readAttempts, backoff: s.backoff})
}

// Transaction corre fn dentro de una transacción: cualquier error (o panic)
// hace rollback de todo. Las lecturas dentro de la transacción no se reintentan.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, s.repos(conn{db: tx, attempts: 1}))
	})
	return translate(err)
}

func (s *Store) repos(c conn) domain.Repos {
	return domain.Repos{
		Products:   &ProductRepo{conn: c},
		Attributes: &AttributeRepo{conn: c},
		Variants:   &VariantRepo{conn: c},
	}
}

type conn struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
}

// read reintenta fn ante errores transitorios del driver. Sólo para consultas.
func (c conn) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	return translate(retryRead(ctx, c.attempts, c.backoff, func() error {
		return fn(c.db.WithContext(ctx))
	}))
}

func (c conn) write(ctx context.Context, fn func(db *gorm.DB) error) error {
	return translate(fn(c.db.WithContext(ctx)))
}
