package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Payment   PaymentConfig
	PDF       PDFConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// CookieConfig holds cookie settings for refresh token
type CookieConfig struct {
	Domain   string // Domain for cookies (empty = current domain)
	Path     string // Path for cookies
	Secure   bool   // Secure flag (should be true in production for HTTPS)
	SameSite string // SameSite policy: "strict", "lax", or "none"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Stricter limit for the unauthenticated public payment endpoints
	PublicRateLimitRequests int
	PublicRateLimitWindow   time.Duration
	CORSAllowOrigins        []string
	CORSAllowMethods        []string
	CORSAllowHeaders        []string
	TrustedProxies          []string
}

// StripeConfig holds Stripe API credentials
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// FlutterwaveConfig holds Flutterwave API credentials
type FlutterwaveConfig struct {
	SecretKey         string
	WebhookSecretHash string
}

// PaymentConfig holds payment provider and policy settings
type PaymentConfig struct {
	// TransitionPolicy selects the payment status transition policy:
	// "permissive" (default) or "strict"
	TransitionPolicy string
	// PublicBaseURL is the externally reachable base URL used to build
	// payment page links on invoices
	PublicBaseURL string
	Stripe        StripeConfig
	Flutterwave   FlutterwaveConfig
}

// PDFConfig holds invoice PDF rendering settings
type PDFConfig struct {
	Enabled bool
	Timeout time.Duration
}

// StorageConfig holds document storage settings
type StorageConfig struct {
	// Driver selects the storage backend: "s3" or "stub"
	Driver            string
	Bucket            string
	Region            string
	Endpoint          string // custom endpoint for S3-compatible stores, empty for AWS
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool // required for MinIO and most S3-compatible stores
	PresignExpiration time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling (Pyroscope)
	ProfilingEnabled    bool   // Enable continuous profiling
	ProfilingServerAddr string // Pyroscope server address (e.g., "http://pyroscope:4040")
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with WASATPAY_ prefix (e.g., WASATPAY_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("WASATPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Cookie: CookieConfig{
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:             v.GetDuration("http.read_timeout"),
			WriteTimeout:            v.GetDuration("http.write_timeout"),
			IdleTimeout:             v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:          v.GetInt("http.max_header_bytes"),
			MaxBodySize:             v.GetInt64("http.max_body_size"),
			RateLimitEnabled:        v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:       v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:         v.GetDuration("http.rate_limit_window"),
			PublicRateLimitRequests: v.GetInt("http.public_rate_limit_requests"),
			PublicRateLimitWindow:   v.GetDuration("http.public_rate_limit_window"),
			CORSAllowOrigins:        v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:        v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:        v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:          v.GetStringSlice("http.trusted_proxies"),
		},
		Payment: PaymentConfig{
			TransitionPolicy: v.GetString("payment.transition_policy"),
			PublicBaseURL:    v.GetString("payment.public_base_url"),
			Stripe: StripeConfig{
				SecretKey:     v.GetString("payment.stripe.secret_key"),
				WebhookSecret: v.GetString("payment.stripe.webhook_secret"),
			},
			Flutterwave: FlutterwaveConfig{
				SecretKey:         v.GetString("payment.flutterwave.secret_key"),
				WebhookSecretHash: v.GetString("payment.flutterwave.webhook_secret_hash"),
			},
		},
		PDF: PDFConfig{
			Enabled: v.GetBool("pdf.enabled"),
			Timeout: v.GetDuration("pdf.timeout"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Bucket:            v.GetString("storage.bucket"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			Enabled:             v.GetBool("telemetry.enabled"),
			CollectorEndpoint:   v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:       v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:         v.GetString("telemetry.service_name"),
			Insecure:            v.GetBool("telemetry.insecure"),
			DBTraceEnabled:      v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:        v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:   v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:    v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddr: v.GetString("telemetry.profiling_server_address"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "wasatpay-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "wasatpay"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "wasatpay-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	// Cookie defaults
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.PublicRateLimitRequests == 0 {
		cfg.HTTP.PublicRateLimitRequests = 20
	}
	if cfg.HTTP.PublicRateLimitWindow == 0 {
		cfg.HTTP.PublicRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	// Payment defaults
	if cfg.Payment.TransitionPolicy == "" {
		cfg.Payment.TransitionPolicy = "permissive"
	}
	if cfg.Payment.PublicBaseURL == "" {
		cfg.Payment.PublicBaseURL = "http://localhost:8080"
	}
	// PDF defaults
	if cfg.PDF.Timeout == 0 {
		cfg.PDF.Timeout = 30 * time.Second
	}
	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "stub"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ProfilingServerAddr == "" {
		cfg.Telemetry.ProfilingServerAddr = "http://localhost:4040"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "wasatpay-backend"
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
	// DBTraceEnabled defaults to false (needs explicit enable)
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// Note: DBLogFullSQL defaults to false for security (disable in production)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Payment policy must name a known policy
	switch c.Payment.TransitionPolicy {
	case "permissive", "strict":
	default:
		return fmt.Errorf("payment.transition_policy must be 'permissive' or 'strict', got %q", c.Payment.TransitionPolicy)
	}

	switch c.Storage.Driver {
	case "s3", "stub":
	default:
		return fmt.Errorf("storage.driver must be 's3' or 'stub', got %q", c.Storage.Driver)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for secure cookies)")
		}
		if c.Cookie.SameSite == "none" && !c.Cookie.Secure {
			return fmt.Errorf("cookie.same_site=none requires cookie.secure=true")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Webhook endpoints must be able to verify signatures
		if c.Payment.Stripe.SecretKey != "" && c.Payment.Stripe.WebhookSecret == "" {
			return fmt.Errorf("payment.stripe.webhook_secret is required in production when Stripe is configured")
		}
		if c.Payment.Flutterwave.SecretKey != "" && c.Payment.Flutterwave.WebhookSecretHash == "" {
			return fmt.Errorf("payment.flutterwave.webhook_secret_hash is required in production when Flutterwave is configured")
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
