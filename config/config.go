package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	developmentJWTSecret     = "dev-secret-change-me"
	developmentAdminPassword = "admin"
)

// Config holds all application configuration
type Config struct {
	GoEnv       string `env:"GO_ENV" env-default:"development"`
	Port        string `env:"PORT" env-default:"3000"`
	DatabaseURL string `env:"DATABASE_URL" env-default:"data/vapecity.db"`
	UploadDir   string `env:"UPLOAD_DIR" env-default:"uploads"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	Timezone            string        `env:"TIMEZONE" env-default:"UTC"`
	OrderFlow           string        `env:"ORDER_FLOW" env-default:"delivery"`
	DeliveryFees        string        `env:"DELIVERY_FEES" env-default:"cdek:350,pochta:250"`
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" env-default:"1h"`
	CORSOrigins         []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`

	JWTSecret     string `env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	JWTIssuer     string `env:"JWT_ISSUER" env-default:"vapecity-api"`
	JWTAudience   string `env:"JWT_AUDIENCE" env-default:"vapecity-admin"`
	AdminLogin    string `env:"ADMIN_LOGIN" env-default:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" env-default:"admin"`

	SellerBotToken   string `env:"SELLER_BOT_TOKEN"`
	CustomerBotToken string `env:"CUSTOMER_BOT_TOKEN"`
	WebAppURL        string `env:"WEBAPP_URL"`
	WelcomeSticker   string `env:"WELCOME_STICKER"`

	StorageBackend     string `env:"STORAGE_BACKEND" env-default:"local"`
	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" env-default:"gemini-2.5-flash-image"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" env-default:"vapecity"`
}

var (
	cfgMu     sync.RWMutex
	appConfig *Config
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			slog.Info("no .env file found, using system environment variables")
		}
	} else {
		slog.Info("loaded configuration", "file", envFile)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OrderFlow != "delivery" && c.OrderFlow != "pickup" {
		return fmt.Errorf("ORDER_FLOW must be \"delivery\" or \"pickup\", got %q", c.OrderFlow)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.ParseDeliveryFees(); err != nil {
		return err
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.AWSS3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_BACKEND is s3")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"s3\", got %q", c.StorageBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if c.JWTSecret == developmentJWTSecret {
			return fmt.Errorf("JWT_SECRET must be changed in production")
		}
		if c.AdminPassword == developmentAdminPassword {
			return fmt.Errorf("ADMIN_PASSWORD must be changed in production")
		}
	}
	return nil
}

// Location returns the time zone used for calendar-day boundaries
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ParseDeliveryFees parses DELIVERY_FEES ("method:price,method:price")
func (c *Config) ParseDeliveryFees() (map[string]decimal.Decimal, error) {
	fees := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(c.DeliveryFees, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		method, price, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(method) == "" {
			return nil, fmt.Errorf("invalid DELIVERY_FEES entry %q", pair)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil || amount.IsNegative() {
			return nil, fmt.Errorf("invalid DELIVERY_FEES price for %q", method)
		}
		fees[strings.TrimSpace(method)] = amount
	}
	return fees, nil
}

// DeliveryMethods returns the configured delivery methods in sorted order
func (c *Config) DeliveryMethods() []string {
	fees, err := c.ParseDeliveryFees()
	if err != nil {
		return nil
	}
	methods := make([]string, 0, len(fees))
	for m := range fees {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the process-wide configuration
func GetConfig() *Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return appConfig
}

// SetConfig replaces the process-wide configuration (used by main and tests)
func SetConfig(cfg *Config) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	appConfig = cfg
}

// NewTestConfig returns a valid configuration for tests
func NewTestConfig() *Config {
	return &Config{
		GoEnv:               "test",
		Port:                "0",
		DatabaseURL:         ":memory:",
		UploadDir:           os.TempDir(),
		LogLevel:            "error",
		Timezone:            "UTC",
		OrderFlow:           "delivery",
		DeliveryFees:        "cdek:350,pochta:250",
		ExpirySweepInterval: time.Hour,
		CORSOrigins:         []string{"*"},
		JWTSecret:           "test-secret",
		JWTIssuer:           "vapecity-api",
		JWTAudience:         "vapecity-admin",
		AdminLogin:          "admin",
		AdminPassword:       "secret",
		StorageBackend:      "local",
		AWSRegion:           "us-east-1",
		MetricsNamespace:    "vapecity",
	}
}
