package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envEnablePprof           = "ENABLE_PPROF"
	envTrustProxyHeaders     = "TRUST_PROXY_HEADERS"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envDBAutoMigrate         = "DB_AUTO_MIGRATE"
	envAWSRegion             = "AWS_S3_REGION_NAME"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envAWSBucket             = "AWS_STORAGE_BUCKET_NAME"
	envAWSEndpoint           = "AWS_S3_ENDPOINT_URL"
	envAWSForcePathStyle     = "AWS_S3_FORCE_PATH_STYLE"
	envJWTSecret             = "JWT_SECRET"
	envJWTIssuer             = "JWT_ISSUER"
	envStorageRootFolder     = "AWS_S3_ROOT_FOLDER"
	envSignedURLExpiry       = "SIGNED_URL_EXPIRY"
	envSignAttemptTimeout    = "SIGN_ATTEMPT_TIMEOUT"
	envSignRetryBackoff      = "SIGN_RETRY_BACKOFF"
	envMaxUploadSize         = "MAX_UPLOAD_SIZE"
	envStoragePutTimeout     = "STORAGE_PUT_TIMEOUT"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envRedisDB               = "REDIS_DB"
	envRoleCacheSize         = "ROLE_CACHE_SIZE"
	envRoleCacheTTL          = "ROLE_CACHE_TTL"
	envRateLimitRPS          = "RATE_LIMIT_RPS"
	envRateLimitBurst        = "RATE_LIMIT_BURST"
	envPaginationPageSize    = "PAGINATION_PAGE_SIZE"
)

const (
	defaultServerPort          = "8080"
	defaultServerReadTimeout   = 30 * time.Second
	defaultServerWriteTimeout  = 60 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "edrs"
	defaultDBUser              = "edrs_app"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 25
	defaultDBMinConns          = 5
	defaultAWSRegion           = "me-central-1"
	defaultStorageRootFolder   = "rejlers-abudhabi"
	defaultSignedURLExpiry     = 2 * time.Hour
	defaultSignAttemptTimeout  = 3 * time.Second
	defaultSignRetryBackoff    = 200 * time.Millisecond
	defaultStoragePutTimeout   = 2 * time.Minute
	defaultMaxUploadSize       = int64(50 * 1024 * 1024)
	defaultRoleCacheSize       = 1024
	defaultRoleCacheTTL        = 5 * time.Minute
	defaultRateLimitRPS        = 10
	defaultRateLimitBurst      = 20
	defaultPageSize            = 100
	maxPageSize                = 1000
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	errRequiredEnvNotSetFmt    = "required environment variable %s is not set"
	errPortRequiredFmt         = "PORT must be set"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set"
	errRegionRequiredFmt       = "AWS_S3_REGION_NAME must be set"
	errBucketRequiredFmt       = "AWS_STORAGE_BUCKET_NAME must be set"
	errAWSKeysPairFmt          = "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errRootFolderRequiredFmt   = "AWS_S3_ROOT_FOLDER must be set"
	errSignedURLExpiryFmt      = "SIGNED_URL_EXPIRY must be positive and at most 7 days"
	errSignAttemptTimeoutFmt   = "SIGN_ATTEMPT_TIMEOUT must be positive"
	errSignRetryBackoffFmt     = "SIGN_RETRY_BACKOFF must not be negative"
	errMaxUploadSizeFmt        = "MAX_UPLOAD_SIZE must be positive"
	errPageSizeFmt             = "PAGINATION_PAGE_SIZE must be between 1 and %d"
	errRateLimitFmt            = "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"
	errInvalidConfigurationFmt = "invalid configuration: %w"
	errDurationUnitFmt         = "%s must be a duration with a unit, such as 90s or 2h (got %q)"

	// S3 presigned URLs cannot outlive a week.
	maxSignedURLExpiry = 7 * 24 * time.Hour
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AWS       AWSConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// EnablePprof mounts /debug/pprof outside the authenticated API.
	EnablePprof bool
	// TrustProxyHeaders takes the client IP from X-Forwarded-For. Enable only behind a
	// proxy that overwrites the header.
	TrustProxyHeaders bool
}

type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Endpoint points the client at an S3-compatible store such as MinIO.
	Endpoint       string
	ForcePathStyle bool
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type StorageConfig struct {
	RootFolder         string
	SignedURLExpiry    time.Duration
	SignAttemptTimeout time.Duration
	SignRetryBackoff   time.Duration
	PutTimeout         time.Duration
	MaxUploadSize      int64
}

// RedisConfig is optional; an empty Addr keeps the role cache in process.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	RoleCacheSize int
	RoleCacheTTL  time.Duration
}

type RateLimitConfig struct {
	RPS   int
	Burst int
}

type AppConfig struct {
	PageSize int
}

// durationEnvKeys are parsed with time.ParseDuration and need an explicit unit.
var durationEnvKeys = []string{
	envServerReadTimeout,
	envServerWriteTimeout,
	envServerShutdownTimeout,
	envSignedURLExpiry,
	envSignAttemptTimeout,
	envSignRetryBackoff,
	envStoragePutTimeout,
	envRoleCacheTTL,
}

func Load() (*Config, error) {
	if err := checkDurationEnvs(durationEnvKeys); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnv(envPort, defaultServerPort),
			ReadTimeout:       getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:      getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout:   getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			EnablePprof:       getBoolEnv(envEnablePprof, false),
			TrustProxyHeaders: getBoolEnv(envTrustProxyHeaders, false),
		},
		Database: loadDatabase(),
		AWS: AWSConfig{
			Region:          getEnv(envAWSRegion, defaultAWSRegion),
			AccessKeyID:     getEnv(envAWSAccessKeyID, ""),
			SecretAccessKey: getEnv(envAWSSecretAccessKey, ""),
			Bucket:          requireEnv(envAWSBucket),
			Endpoint:        getEnv(envAWSEndpoint, ""),
			ForcePathStyle:  getBoolEnv(envAWSForcePathStyle, false),
		},
		JWT: JWTConfig{
			Secret: requireEnv(envJWTSecret),
			Issuer: getEnv(envJWTIssuer, ""),
		},
		Storage: StorageConfig{
			RootFolder:         getEnv(envStorageRootFolder, defaultStorageRootFolder),
			SignedURLExpiry:    getDurationEnv(envSignedURLExpiry, defaultSignedURLExpiry),
			SignAttemptTimeout: getDurationEnv(envSignAttemptTimeout, defaultSignAttemptTimeout),
			SignRetryBackoff:   getDurationEnv(envSignRetryBackoff, defaultSignRetryBackoff),
			PutTimeout:         getDurationEnv(envStoragePutTimeout, defaultStoragePutTimeout),
			MaxUploadSize:      getInt64Env(envMaxUploadSize, defaultMaxUploadSize),
		},
		Redis: RedisConfig{
			Addr:          getEnv(envRedisAddr, ""),
			Password:      getEnv(envRedisPassword, ""),
			DB:            getIntEnv(envRedisDB, 0),
			RoleCacheSize: getIntEnv(envRoleCacheSize, defaultRoleCacheSize),
			RoleCacheTTL:  getDurationEnv(envRoleCacheTTL, defaultRoleCacheTTL),
		},
		RateLimit: RateLimitConfig{
			RPS:   getIntEnv(envRateLimitRPS, defaultRateLimitRPS),
			Burst: getIntEnv(envRateLimitBurst, defaultRateLimitBurst),
		},
		App: AppConfig{
			PageSize: getIntEnv(envPaginationPageSize, defaultPageSize),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

// LoadDatabase reads only the Postgres settings, for tools that never touch S3 or tokens.
func LoadDatabase() *DatabaseConfig {
	cfg := loadDatabase()
	return &cfg
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:        getEnv(envDBHost, defaultDBHost),
		Port:        getIntEnv(envDBPort, defaultDBPort),
		Database:    getEnv(envDBName, defaultDBName),
		User:        getEnv(envDBUser, defaultDBUser),
		Password:    requireEnv(envDBPassword),
		SSLMode:     getEnv(envDBSSLMode, defaultDBSSLMode),
		MaxConns:    getIntEnv(envDBMaxConns, defaultDBMaxConns),
		MinConns:    getIntEnv(envDBMinConns, defaultDBMinConns),
		AutoMigrate: getBoolEnv(envDBAutoMigrate, true),
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	if c.AWS.Region == "" {
		return fmt.Errorf(errRegionRequiredFmt)
	}

	if c.AWS.Bucket == "" {
		return fmt.Errorf(errBucketRequiredFmt)
	}

	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return fmt.Errorf(errAWSKeysPairFmt)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	if c.Storage.RootFolder == "" {
		return fmt.Errorf(errRootFolderRequiredFmt)
	}

	if c.Storage.SignedURLExpiry <= 0 || c.Storage.SignedURLExpiry > maxSignedURLExpiry {
		return fmt.Errorf(errSignedURLExpiryFmt)
	}

	if c.Storage.SignAttemptTimeout <= 0 {
		return fmt.Errorf(errSignAttemptTimeoutFmt)
	}

	if c.Storage.SignRetryBackoff < 0 {
		return fmt.Errorf(errSignRetryBackoffFmt)
	}

	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf(errMaxUploadSizeFmt)
	}

	if c.App.PageSize <= 0 || c.App.PageSize > maxPageSize {
		return fmt.Errorf(errPageSizeFmt, maxPageSize)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf(errRateLimitFmt)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL is the pgx5:// form golang-migrate expects.
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf(errRequiredEnvNotSetFmt, key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// checkDurationEnvs rejects values such as "7200" whose unit would otherwise be guessed.
func checkDurationEnvs(keys []string) error {
	for _, key := range keys {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf(errDurationUnitFmt, key, value)
		}
	}
	return nil
}
