package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/report"
	"github.com/tair/stock-ledger/internal/warranty"
	"github.com/tair/stock-ledger/pkg/database"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// RedisConfig locates the Redis server used as store and change channel
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Channel  string
}

// Config is the process configuration
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	HTTPPort       string
	StoreBackend   string
	DefaultUser    string
	TracingEnabled bool
	JaegerEndpoint string

	Redis        RedisConfig
	Database     database.Config
	KafkaBrokers []string
	KafkaGroupID string

	LowStockThreshold int
	WarrantySoonDays  int
	ReportSoonDays    int
}

// IsDevelopment reports whether the process runs in development mode
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ReportOptions maps the thresholds onto the report views
func (c Config) ReportOptions() report.Options {
	return report.Options{
		LowStockThreshold: c.LowStockThreshold,
		Thresholds:        warranty.Within(c.WarrantySoonDays),
		ReportThresholds:  warranty.Within(c.ReportSoonDays),
	}
}

// Load reads an optional .env file and then the environment.
// It returns whether a .env file was loaded.
func Load(files ...string) (Config, bool) {
	loaded := godotenv.Load(files...) == nil

	cfg := Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "stock-ledger"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DefaultUser:    getEnv("DEFAULT_USER", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "ledger:"),
			Channel:  getEnv("REDIS_CHANNEL", "ledger:changes"),
		},
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ledgerdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "stock-ledger"),
		LowStockThreshold: getEnvInt("LOW_STOCK_THRESHOLD", inventory.DefaultLowStockThreshold),
		WarrantySoonDays:  getEnvInt("WARRANTY_SOON_DAYS", warranty.DefaultThresholds.SoonDays),
		ReportSoonDays:    getEnvInt("REPORT_SOON_DAYS", warranty.ReportThresholds.SoonDays),
	}
	return cfg, loaded
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
