package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// Config is the whole application configuration, read from the environment.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	GoEnv    string `envconfig:"GO_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// json or text
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StoreName   string `envconfig:"STORE_NAME" default:"Storefront"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"storefront"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB  string `envconfig:"MONGO_DB" default:"storefront"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`
	AdminEmails    []string      `envconfig:"ADMIN_EMAILS"`

	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET"`

	DelhiveryBaseURL         string  `envconfig:"DELHIVERY_BASE_URL" default:"https://staging-express.delhivery.com"`
	DelhiveryToken           string  `envconfig:"DELHIVERY_TOKEN"`
	DelhiveryPickupLocation  string  `envconfig:"DELHIVERY_PICKUP_LOCATION" default:"primary"`
	DelhiveryDefaultWeightKg float64 `envconfig:"DELHIVERY_DEFAULT_WEIGHT_KG" default:"0.5"`

	GatewayTimeout     time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"15s"`
	AutoCreateShipment bool          `envconfig:"AUTO_CREATE_SHIPMENT" default:"false"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	RateLimitRPS       float64  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst     int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMongo, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if c.DelhiveryToken == "" {
		return fmt.Errorf("DELHIVERY_TOKEN is required")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.DelhiveryDefaultWeightKg <= 0 {
		return fmt.Errorf("DELHIVERY_DEFAULT_WEIGHT_KG must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.GoEnv, "prod") || strings.EqualFold(c.GoEnv, "production")
}

// PostgresDSN prefers DATABASE_URL when set.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
