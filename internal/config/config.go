package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string
	DB       DBConfig
	Variants VariantsConfig
}

type DBConfig struct {
	Driver string
	DSN    string
	// ReadAttempts es el total de intentos para lecturas ante errores transitorios.
	ReadAttempts int
}

type VariantsConfig struct {
	SKUPrefixLen   int
	AssignBarcodes bool
}

// Load lee .env si existe y después el entorno.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   strings.ToLower(getEnv("APP_ENV", "development")),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		DB: DBConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			ReadAttempts: getEnvInt("READ_RETRY_ATTEMPTS", 3),
		},
		Variants: VariantsConfig{
			SKUPrefixLen:   getEnvInt("SKU_PREFIX_LEN", 4),
			AssignBarcodes: getEnvBool("ASSIGN_BARCODES", false),
		},
	}
	dsn, err := buildDSN(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	cfg.DB.DSN = dsn
	if cfg.DB.ReadAttempts < 1 {
		return nil, fmt.Errorf("READ_RETRY_ATTEMPTS debe ser mayor a cero")
	}
	return cfg, nil
}

func (c *Config) Production() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func buildDSN(driver string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv("DB_DSN")); dsn != "" {
		return dsn, nil
	}
	switch driver {
	case "sqlite":
		return getEnv("DB_PATH", "posvariantes.db"), nil
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "posvariantes"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_SSLMODE", "disable"),
		), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			getEnv("DB_USER", "root"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "3306"),
			getEnv("DB_NAME", "posvariantes"),
		), nil
	default:
		return "", fmt.Errorf("DB_DRIVER no soportado: %q", driver)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}
