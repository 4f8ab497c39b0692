package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBodySize    int64         `env:"MAX_REQUEST_BODY_SIZE,default=1048576"`

	// PublicBaseURL is the externally reachable URL of this service.
	// The webServiceURL embedded in passes is PublicBaseURL + "/passbook"
	PublicBaseURL string `env:"PUBLIC_BASE_URL,required=true"`

	// storage settings
	StoreBackend        string        `env:"STORE_BACKEND,default=postgres"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	RunMigrations       bool          `env:"RUN_MIGRATIONS,default=false"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// pass signing settings
	PassCertificatePath string        `env:"PASS_CERTIFICATE_PATH,required=true"`
	PassKeyPath         string        `env:"PASS_KEY_PATH"`
	PassKeyPassphrase   string        `env:"PASS_KEY_PASSPHRASE"`
	WWDRCertificatePath string        `env:"WWDR_CERTIFICATE_PATH,required=true"`
	SigningTimeout      time.Duration `env:"SIGNING_TIMEOUT,default=10s"`
	AllowMissingBarcode bool          `env:"ALLOW_MISSING_BARCODE,default=false"`
	ArchiveCacheTTL     time.Duration `env:"ARCHIVE_CACHE_TTL,default=5m"`

	// origin settings - ORIGIN_TYPES is a list of type=provider entries, e.g. "sale=http|event.ticket=static"
	OriginTypes          []string      `env:"ORIGIN_TYPES,separator=|,required=true"`
	OriginServiceBaseURL string        `env:"ORIGIN_SERVICE_BASE_URL"`
	OriginServiceTimeout time.Duration `env:"ORIGIN_SERVICE_TIMEOUT,default=10s"`
	OriginServiceRetries int           `env:"ORIGIN_SERVICE_RETRIES,default=2"`
	OriginStaticPath     string        `env:"ORIGIN_STATIC_PATH"`

	// device log settings
	DeviceLogSinks []string `env:"DEVICE_LOG_SINKS,separator=|,default=console"`
	S3Endpoint     string   `env:"S3_ENDPOINT"`
	S3Region       string   `env:"S3_REGION,default=us-east-1"`
	S3Bucket       string   `env:"S3_BUCKET"`
	S3AccessKey    string   `env:"S3_ACCESS_KEY"`
	S3SecretKey    string   `env:"S3_SECRET_KEY"`
	S3Prefix       string   `env:"S3_PREFIX,default=device-logs"`
}

// CLIEnvironment is the configuration used by passbook-cli
type CLIEnvironment struct {
	Environment string        `env:"ENVIRONMENT,default=dev"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
	ServerURL   string        `env:"PASSBOOK_SERVER_URL,default=http://localhost:8080"`
	HTTPTimeout time.Duration `env:"PASSBOOK_HTTP_TIMEOUT,default=30s"`
	HTTPRetries int           `env:"PASSBOOK_HTTP_RETRIES,default=2"`

	// signing material checked by cert inspect (same variables as the server)
	PassCertificatePath string `env:"PASS_CERTIFICATE_PATH"`
	PassKeyPath         string `env:"PASS_KEY_PATH"`
	PassKeyPassphrase   string `env:"PASS_KEY_PASSPHRASE"`
	WWDRCertificatePath string `env:"WWDR_CERTIFICATE_PATH"`
}

// MigrateEnvironment is the configuration used by the passbook-server migrate command
type MigrateEnvironment struct {
	Environment         string        `env:"ENVIRONMENT,default=dev"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	DatabaseURL         string        `env:"DATABASE_URL,required=true"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`
}

// OriginType is a parsed ORIGIN_TYPES entry
type OriginType struct {
	Name     string
	Provider string
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validStoreBackends = map[string]bool{
	"postgres": true,
	"memory":   true,
}

var validOriginProviders = map[string]bool{
	"http":   true,
	"static": true,
}

var validDeviceLogSinks = map[string]bool{
	"console":  true,
	"postgres": true,
	"s3":       true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// NewCLIConfig loads the passbook-cli configuration
func NewCLIConfig() (*CLIEnvironment, error) {
	var cfg CLIEnvironment

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid PASSBOOK_SERVER_URL: %w", err)
	}
	return &cfg, nil
}

// NewMigrateConfig loads the database settings needed to run migrations
func NewMigrateConfig() (*MigrateEnvironment, error) {
	var cfg MigrateEnvironment

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if !validEnvs[cfg.Environment] {
		return nil, fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	return &cfg, nil
}

// WebServiceURL is the URL devices use to reach the passbook endpoints
func (c *ServerEnvironment) WebServiceURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/passbook"
}

// ParsedOriginTypes returns the ORIGIN_TYPES entries.
func (c *ServerEnvironment) ParsedOriginTypes() ([]OriginType, error) {
	types := make([]OriginType, 0, len(c.OriginTypes))
	seen := make(map[string]bool)

	for _, entry := range c.OriginTypes {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, provider, ok := strings.Cut(entry, "=")
		if !ok || name == "" || provider == "" {
			return nil, fmt.Errorf("invalid ORIGIN_TYPES entry %q (expected type=provider)", entry)
		}
		if !validOriginProviders[provider] {
			return nil, fmt.Errorf("invalid origin provider %q for origin type %q", provider, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("origin type %q listed more than once", name)
		}
		seen[name] = true
		types = append(types, OriginType{Name: name, Provider: provider})
	}
	return types, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	u, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", cfg.PublicBaseURL)
	}
	// devices refuse web services that are not https outside of development
	if (cfg.Environment == "prod" || cfg.Environment == "staging") && u.Scheme != "https" {
		return fmt.Errorf("PUBLIC_BASE_URL must use https in %s", cfg.Environment)
	}

	if !validStoreBackends[cfg.StoreBackend] {
		return fmt.Errorf("invalid STORE_BACKEND: %s", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	if cfg.MaxRequestBodySize < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be at least 1")
	}
	if cfg.SigningTimeout <= 0 {
		return fmt.Errorf("SIGNING_TIMEOUT must be greater than 0")
	}
	if cfg.ArchiveCacheTTL < 0 {
		return fmt.Errorf("ARCHIVE_CACHE_TTL must be 0 or greater")
	}

	originTypes, err := cfg.ParsedOriginTypes()
	if err != nil {
		return err
	}
	if len(originTypes) == 0 {
		return fmt.Errorf("ORIGIN_TYPES must list at least one origin type")
	}
	for _, ot := range originTypes {
		if ot.Provider == "http" && cfg.OriginServiceBaseURL == "" {
			return fmt.Errorf("ORIGIN_SERVICE_BASE_URL is required for origin type %q", ot.Name)
		}
		if ot.Provider == "static" && cfg.OriginStaticPath == "" {
			return fmt.Errorf("ORIGIN_STATIC_PATH is required for origin type %q", ot.Name)
		}
	}
	if cfg.OriginServiceRetries < 0 {
		return fmt.Errorf("ORIGIN_SERVICE_RETRIES must be 0 or greater")
	}

	for _, sink := range cfg.DeviceLogSinks {
		if !validDeviceLogSinks[sink] {
			return fmt.Errorf("invalid DEVICE_LOG_SINKS entry: %s", sink)
		}
		if sink == "postgres" && cfg.StoreBackend != "postgres" {
			return fmt.Errorf("the postgres device log sink requires STORE_BACKEND=postgres")
		}
		if sink == "s3" && cfg.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 device log sink")
		}
	}

	return nil
}
