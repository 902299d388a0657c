package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	ImageStoreLocal     = "local"
	ImageStoreJetStream = "jetstream"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMigrationsPath  = "migrations/products"
	defaultShutdownTimeout = 10 * time.Second
	defaultStoreDriver     = StoreDriverPostgres
	defaultSQLitePath      = "products.db"
	defaultImageStore      = ImageStoreLocal
	defaultUploadDir       = "uploads"
	defaultImageBucket     = "product-images"
	defaultImageURLPrefix  = "/images"
	defaultMaxUploadBytes  = 10 << 20
	defaultServiceName     = "products"

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

type Products struct {
	HTTPAddr          string
	StoreDriver       string
	DatabaseURL       string
	SQLitePath        string
	MigrationsPath    string
	ImageStore        string
	UploadDir         string
	NATSURL           string
	ImageBucket       string
	ImageURLPrefix    string
	MaxUploadBytes    int64
	RabbitMQURL       string
	OTLPEndpoint      string
	ServiceName       string
	ShutdownTimeout   time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration
	ReadHeaderTimeout time.Duration
}

// LoadProducts reads the products service configuration from the
// environment. An empty RABBITMQ_URL disables event publishing.
func LoadProducts() (Products, error) {
	cfg := Products{
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr),
		StoreDriver:       getEnv("STORE_DRIVER", defaultStoreDriver),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SQLitePath:        getEnv("SQLITE_PATH", defaultSQLitePath),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		ImageStore:        getEnv("IMAGE_STORE", defaultImageStore),
		UploadDir:         getEnv("UPLOAD_DIR", defaultUploadDir),
		NATSURL:           getEnv("NATS_URL", ""),
		ImageBucket:       getEnv("IMAGE_BUCKET", defaultImageBucket),
		ImageURLPrefix:    getEnv("IMAGE_URL_PREFIX", defaultImageURLPrefix),
		MaxUploadBytes:    defaultMaxUploadBytes,
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       getEnv("OTEL_SERVICE_NAME", defaultServiceName),
		ShutdownTimeout:   defaultShutdownTimeout,
		DBMaxOpenConns:    defaultDBMaxOpenConns,
		DBMaxIdleConns:    defaultDBMaxIdleConns,
		DBConnMaxLifetime: defaultDBConnMaxLifetime,
		DBPingTimeout:     defaultDBPingTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	if raw := getEnv("MAX_UPLOAD_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return Products{}, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", raw)
		}
		cfg.MaxUploadBytes = n
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return Products{}, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverSQLite:
	default:
		return Products{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverSQLite, cfg.StoreDriver)
	}

	switch cfg.ImageStore {
	case ImageStoreLocal:
	case ImageStoreJetStream:
		if cfg.NATSURL == "" {
			return Products{}, fmt.Errorf("NATS_URL is required")
		}
	default:
		return Products{}, fmt.Errorf("IMAGE_STORE must be %q or %q, got %q", ImageStoreLocal, ImageStoreJetStream, cfg.ImageStore)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
