package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	ReportDir          string
	MaxUploadSizeBytes int64

	// ReportingCurrency is the currency converted amounts are expressed in.
	ReportingCurrency string

	// TaxRate is applied to positive per-symbol gains only.
	TaxRate decimal.Decimal

	// ReportExpiry bounds how long a generated workbook stays downloadable.
	ReportExpiry time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "20971520")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 20MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 20 * 1024 * 1024
	}

	taxRateStr := getEnv("TAX_RATE", "0.20")
	taxRate, err := decimal.NewFromString(taxRateStr)
	if err != nil || taxRate.IsNegative() {
		log.Printf("WARNING: Invalid TAX_RATE '%s'. Using default 0.20. Error: %v", taxRateStr, err)
		taxRate = decimal.NewFromFloat(0.20)
	}

	reportExpiryStr := getEnv("REPORT_EXPIRY", "1h")
	reportExpiry, err := time.ParseDuration(reportExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid REPORT_EXPIRY format '%s'. Using default 1h. Error: %v", reportExpiryStr, err)
		reportExpiry = time.Hour
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./taxgains.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ReportDir:          getEnv("REPORT_DIR", os.TempDir()),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		ReportingCurrency:  getEnv("REPORTING_CURRENCY", "CNY"),
		TaxRate:            taxRate,
		ReportExpiry:       reportExpiry,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, ReportingCurrency=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.ReportingCurrency)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
