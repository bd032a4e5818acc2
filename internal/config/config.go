package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STORE_BILLING_"

type RuntimeConfig struct {
	Dev bool
}

type AppConfig struct {
	// BaseURL is the public origin of this API; the gateway callback is built from it.
	BaseURL string `yaml:"base_url"`
	// FrontendURL is where the verify callback redirects the browser.
	FrontendURL string `yaml:"frontend_url"`
	Version     string `yaml:"version"`
	Commit      string `yaml:"commit"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// CallbackRPS bounds gateway callback hits per payment.
	CallbackRPS float64 `yaml:"callback_rps"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PaymentConfig struct {
	ZarinPal struct {
		MerchantID string        `yaml:"merchant_id"`
		Sandbox    bool          `yaml:"sandbox"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"zarinpal"`
}

type WalletConfig struct {
	MinCharge        int64         `yaml:"min_charge"`
	MaxCharge        int64         `yaml:"max_charge"`
	ChargeRateLimit  int           `yaml:"charge_rate_limit"`
	ChargeRateWindow time.Duration `yaml:"charge_rate_window"`
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Workers int      `yaml:"workers"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads .env (if present), the YAML file at path, then applies
// STORE_BILLING_* environment overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse builds a Config from YAML bytes. Exposed for tests and tools.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("ZARINPAL_MERCHANT_ID", &cfg.Payment.ZarinPal.MerchantID)
	str("ENCRYPTION_KEY", &cfg.Security.EncryptionKey)
	str("BASE_URL", &cfg.App.BaseURL)
	str("FRONTEND_URL", &cfg.App.FrontendURL)
	if v := os.Getenv(envPrefix + "HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = n
		}
	}
	if v := os.Getenv(envPrefix + "KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.CallbackRPS <= 0 {
		cfg.HTTP.CallbackRPS = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Payment.ZarinPal.Timeout <= 0 {
		cfg.Payment.ZarinPal.Timeout = 20 * time.Second
	}
	if cfg.Wallet.MinCharge <= 0 {
		cfg.Wallet.MinCharge = 10_000
	}
	if cfg.Wallet.MaxCharge <= 0 {
		cfg.Wallet.MaxCharge = 500_000_000
	}
	if cfg.Wallet.ChargeRateLimit <= 0 {
		cfg.Wallet.ChargeRateLimit = 5
	}
	if cfg.Wallet.ChargeRateWindow <= 0 {
		cfg.Wallet.ChargeRateWindow = time.Minute
	}
	// a negative interval turns the stale sweep off
	if cfg.Scheduler.ReconcileInterval == 0 {
		cfg.Scheduler.ReconcileInterval = 5 * time.Minute
	}
	if cfg.Scheduler.StaleAfter <= 0 {
		cfg.Scheduler.StaleAfter = 30 * time.Minute
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "wallet.ledger"
	}
	if cfg.Kafka.Workers <= 0 {
		cfg.Kafka.Workers = 2
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	cfg.App.FrontendURL = strings.TrimRight(cfg.App.FrontendURL, "/")
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = cfg.App.BaseURL
	}
}

func (cfg *Config) validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if cfg.Payment.ZarinPal.MerchantID == "" && !cfg.Runtime.Dev {
		return errors.New("payment.zarinpal.merchant_id is required")
	}
	u, err := url.Parse(cfg.App.BaseURL)
	if err != nil || !u.IsAbs() {
		return errors.New("app.base_url must be an absolute URL")
	}
	if cfg.Wallet.MinCharge > cfg.Wallet.MaxCharge {
		return errors.New("wallet.min_charge must not exceed wallet.max_charge")
	}
	return nil
}

// CallbackURL is the gateway return address for one payment.
func (cfg *Config) CallbackURL(paymentID string) string {
	return cfg.App.BaseURL + "/wallet/verify?paymentId=" + url.QueryEscape(paymentID)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
