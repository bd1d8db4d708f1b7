package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreXLSX     = "xlsx"
	StoreSheets   = "sheets"
)

type Tables struct {
	Orders    string
	Summaries string
	Products  string
	Branches  string
}

type Config struct {
	Port          string
	AllowedOrigin string

	StoreBackend  string
	DatabaseURL   string
	XLSXPath      string
	SpreadsheetID string

	GoogleServiceAccountJSON   string
	GoogleServiceAccountBase64 string
	GoogleServiceAccountPath   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CacheTTLSeconds    int
	LockMode           string
	LockTTLSeconds     int
	LockWaitSeconds    int
	OrderSchemaVersion int // 0 means detect from the table

	Tables Tables

	AuthSecret            string
	AccessTokenTTLMinutes int
	AdminPassword         string
	CashierPassword       string

	LogLevel             string
	LogFormat            string
	NumberStyle          string
	AuditIntervalMinutes int
}

// LoadDotEnv reads .env files into the environment. A missing file is not
// an error; values already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		XLSXPath:      getEnv("XLSX_PATH", "sales.xlsx"),
		SpreadsheetID: strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID")),

		GoogleServiceAccountJSON:   os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountBase64: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_BASE64")),
		GoogleServiceAccountPath:   strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_PATH")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 10, 0),
		LockMode:           strings.ToLower(getEnv("LOCK_MODE", "local")),
		LockTTLSeconds:     getEnvInt("LOCK_TTL_SECONDS", 30, 1),
		LockWaitSeconds:    getEnvInt("LOCK_WAIT_SECONDS", 5, 1),
		OrderSchemaVersion: orderSchema(getEnv("ORDER_SCHEMA", "auto")),

		Tables: Tables{
			Orders:    getEnv("ORDERS_TABLE", "banhang"),
			Summaries: getEnv("SUMMARIES_TABLE", "dshoadon"),
			Products:  getEnv("PRODUCTS_TABLE", "sanpham"),
			Branches:  getEnv("BRANCHES_TABLE", "chinhanh"),
		},

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480, 1),
		AdminPassword:         strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		CashierPassword:       strings.TrimSpace(os.Getenv("CASHIER_PASSWORD")),

		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		NumberStyle:          getEnv("NUMBER_STYLE", "vi"),
		AuditIntervalMinutes: getEnvInt("AUDIT_INTERVAL_MINUTES", 60, 0),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if len(c.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(c.AdminPassword) < 8 || len(c.CashierPassword) < 8 {
		return errors.New("ADMIN_PASSWORD and CASHIER_PASSWORD must be set and at least 8 characters")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case StoreXLSX:
		if c.XLSXPath == "" {
			return errors.New("STORE_BACKEND=xlsx requires XLSX_PATH")
		}
	case StoreSheets:
		if c.SpreadsheetID == "" {
			return errors.New("STORE_BACKEND=sheets requires SHEETS_SPREADSHEET_ID")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountBase64 == "" && c.GoogleServiceAccountPath == "" {
			return errors.New("STORE_BACKEND=sheets requires GOOGLE_SERVICE_ACCOUNT_JSON, _BASE64 or _PATH")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.LockMode == "redis" && c.RedisAddr == "" {
		return errors.New("LOCK_MODE=redis requires REDIS_ADDR")
	}
	if c.OrderSchemaVersion < 0 {
		return errors.New("ORDER_SCHEMA must be auto, 1 or 2")
	}
	return nil
}

// ServiceAccountJSON returns the Google service account key from the first
// source that is set: raw JSON, base64 JSON, then a file path.
func (c Config) ServiceAccountJSON() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.GoogleServiceAccountJSON) != "":
		return []byte(c.GoogleServiceAccountJSON), nil
	case c.GoogleServiceAccountBase64 != "":
		raw, err := base64.StdEncoding.DecodeString(c.GoogleServiceAccountBase64)
		if err != nil {
			return nil, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_BASE64: %w", err)
		}
		return raw, nil
	case c.GoogleServiceAccountPath != "":
		raw, err := os.ReadFile(c.GoogleServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("read GOOGLE_SERVICE_ACCOUNT_PATH: %w", err)
		}
		return raw, nil
	}
	return nil, errors.New("no google service account credentials configured")
}

func orderSchema(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return 0
	case "1", "v1":
		return 1
	case "2", "v2":
		return 2
	}
	return -1
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int, min int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < min {
		return fallback
	}
	return n
}
