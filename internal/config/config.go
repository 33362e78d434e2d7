package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// DBQueryTimeoutEnv bounds every store operation.
	DBQueryTimeoutEnv = "DB_QUERY_TIMEOUT"

	// DBConnectAttemptsEnv is the number of connection attempts at startup.
	DBConnectAttemptsEnv = "DB_CONNECT_ATTEMPTS"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// AdminPasswordEnv is the admin credential.
	AdminPasswordEnv = "ADMIN_PASSWORD"

	// AdminSessionSecretEnv is the key used to sign admin session tokens.
	AdminSessionSecretEnv = "ADMIN_SESSION_SECRET"

	// AdminSessionTTLEnv is the lifetime of an admin session.
	AdminSessionTTLEnv = "ADMIN_SESSION_TTL"

	// MaxUploadSizeEnv is the image size ceiling in bytes.
	MaxUploadSizeEnv = "MAX_UPLOAD_SIZE"

	// AllowedImageTypesEnv is a comma separated list of accepted image formats.
	AllowedImageTypesEnv = "ALLOWED_IMAGE_TYPES"

	// StorageBackendEnv selects the image store: s3 or local.
	StorageBackendEnv = "STORAGE_BACKEND"

	// StorageTimeoutEnv bounds every object store operation.
	StorageTimeoutEnv = "STORAGE_TIMEOUT"

	// ImageKeyPrefixEnv is the managed namespace of stored images.
	ImageKeyPrefixEnv = "IMAGE_KEY_PREFIX"

	// LocalUploadDirEnv is the directory of the local image store.
	LocalUploadDirEnv = "LOCAL_UPLOAD_DIR"

	// LocalPublicBaseURLEnv is the public URL base of the local image store.
	LocalPublicBaseURLEnv = "LOCAL_PUBLIC_BASE_URL"

	// LocalhostEnv is the constant for localhost.
	LocalhostEnv = "localhost"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// S3BucketEnv is the bucket holding product images.
	S3BucketEnv = "S3_BUCKET"

	// S3PublicBaseURLEnv is the public URL base of the bucket.
	S3PublicBaseURLEnv = "S3_PUBLIC_BASE_URL"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// RedisAddrEnv is the address of the listing cache.
	RedisAddrEnv = "REDIS_ADDR"

	// RedisPasswordEnv is the password of the listing cache.
	RedisPasswordEnv = "REDIS_PASSWORD"

	// RedisDBEnv is the database index of the listing cache.
	RedisDBEnv = "REDIS_DB"

	// CacheTTLEnv is the refresh window of the listing cache.
	CacheTTLEnv = "CACHE_TTL"
)

const (
	// StorageBackendS3 stores images in an S3 bucket.
	StorageBackendS3 = "s3"
	// StorageBackendLocal stores images on the local filesystem.
	StorageBackendLocal = "local"

	// DefaultMaxUploadSize is 5 MiB.
	DefaultMaxUploadSize int64 = 5 * 1024 * 1024
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// DefaultAllowedImageTypes are accepted when ALLOWED_IMAGE_TYPES is not set.
	DefaultAllowedImageTypes = []string{"jpeg", "png", "webp"}
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	Admin         Admin
	Storage       Storage
	AWS           AWSConfig
	Cache         Cache
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region          string
	Endpoint        string
	S3Bucket        string
	S3PublicBaseURL string
	SQSQueueURL     string
}

// DB represents database configuration settings.
type DB struct {
	Host            string
	User            string
	Password        string
	Name            string
	Port            string
	QueryTimeout    time.Duration
	ConnectAttempts int
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Admin holds the admin gate settings.
type Admin struct {
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
}

// Storage holds the image store settings.
type Storage struct {
	Backend            string
	Timeout            time.Duration
	KeyPrefix          string
	MaxUploadSize      int64
	AllowedImageTypes  []string
	LocalUploadDir     string
	LocalPublicBaseURL string
}

// Cache holds the listing cache settings.
type Cache struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	// Validate database configuration
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		AdminPasswordEnv:      c.Admin.Password,
		AdminSessionSecretEnv: c.Admin.SessionSecret,
	}); err != nil {
		return fmt.Errorf("admin configuration incomplete: %w", err)
	}

	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid %s: must be positive", MaxUploadSizeEnv)
	}

	switch c.Storage.Backend {
	case StorageBackendS3:
		if err := allNonEmpty(map[string]string{
			S3BucketEnv:        c.AWS.S3Bucket,
			S3PublicBaseURLEnv: c.AWS.S3PublicBaseURL,
		}); err != nil {
			return fmt.Errorf("AWS configuration incomplete: %w", err)
		}
	case StorageBackendLocal:
		if err := allNonEmpty(map[string]string{
			LocalUploadDirEnv: c.Storage.LocalUploadDir,
		}); err != nil {
			return fmt.Errorf("storage configuration incomplete: %w", err)
		}
	default:
		return fmt.Errorf("unsupported %s: %q", StorageBackendEnv, c.Storage.Backend)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if val, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(os.Getenv(name), 10, 64); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(name)); err == nil && val > 0 {
		return val
	}
	return defaultValue
}

func getEnvAsList(name string, defaultValue []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	conf := load()
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadListenerFromEnv loads the configuration of the cache listener, which only needs SQS and Redis.
func LoadListenerFromEnv() (*Config, error) {
	conf := load()
	if err := allNonEmpty(map[string]string{
		SQSQueueURLEnv: conf.AWS.SQSQueueURL,
		RedisAddrEnv:   conf.Cache.RedisAddr,
	}); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

func load() *Config {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:            os.Getenv(DBHostEnv),
			User:            os.Getenv(DBUserEnv),
			Password:        os.Getenv(DBPassEnv),
			Name:            os.Getenv(DBNameEnv),
			Port:            os.Getenv(DBPortEnv),
			QueryTimeout:    getEnvAsDuration(DBQueryTimeoutEnv, 5*time.Second),
			ConnectAttempts: getEnvAsInt(DBConnectAttemptsEnv, 5),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		Admin: Admin{
			Password:      os.Getenv(AdminPasswordEnv),
			SessionSecret: os.Getenv(AdminSessionSecretEnv),
			SessionTTL:    getEnvAsDuration(AdminSessionTTLEnv, 8*time.Hour),
		},
		Storage: Storage{
			Backend:            getEnv(StorageBackendEnv, StorageBackendS3),
			Timeout:            getEnvAsDuration(StorageTimeoutEnv, 15*time.Second),
			KeyPrefix:          strings.Trim(getEnv(ImageKeyPrefixEnv, "products"), "/"),
			MaxUploadSize:      getEnvAsInt64(MaxUploadSizeEnv, DefaultMaxUploadSize),
			AllowedImageTypes:  getEnvAsList(AllowedImageTypesEnv, DefaultAllowedImageTypes),
			LocalUploadDir:     getEnv(LocalUploadDirEnv, "./uploads"),
			LocalPublicBaseURL: getEnv(LocalPublicBaseURLEnv, "/uploads"),
		},
		AWS: AWSConfig{
			Region:          os.Getenv(AWSRegionEnv),
			Endpoint:        os.Getenv(AWSEndpointEnv),
			S3Bucket:        os.Getenv(S3BucketEnv),
			S3PublicBaseURL: os.Getenv(S3PublicBaseURLEnv),
			SQSQueueURL:     os.Getenv(SQSQueueURLEnv),
		},
		Cache: Cache{
			RedisAddr:     os.Getenv(RedisAddrEnv),
			RedisPassword: os.Getenv(RedisPasswordEnv),
			RedisDB:       getEnvAsInt(RedisDBEnv, 0),
			TTL:           getEnvAsDuration(CacheTTLEnv, time.Minute),
		},
	}
	return conf
}
