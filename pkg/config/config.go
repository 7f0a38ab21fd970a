package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "kiranacart"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KIRANACART_DB_DSN"
	EnvDBHost = "KIRANACART_DB_HOST"
	EnvDBUser = "KIRANACART_DB_USER"
	EnvDBName = "KIRANACART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Razorpay     RazorpayConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIRANACART_APP_ENV" required:"true"`
	Port         string `envconfig:"KIRANACART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KIRANACART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIRANACART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KIRANACART_DB_DSN"`
	Driver string `envconfig:"KIRANACART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KIRANACART_DB_HOST"`
	LegacyPort     int    `envconfig:"KIRANACART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIRANACART_DB_USER"`
	LegacyPassword string `envconfig:"KIRANACART_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIRANACART_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIRANACART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIRANACART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIRANACART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIRANACART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIRANACART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIRANACART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KIRANACART_REDIS_ADDR"`
	Password     string        `envconfig:"KIRANACART_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIRANACART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIRANACART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIRANACART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIRANACART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIRANACART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIRANACART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KIRANACART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIRANACART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KIRANACART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig carries the currency-unit constants the pricing engine depends
// on but does not own. Values are rupees.
type PricingConfig struct {
	FlatFee       float64 `envconfig:"KIRANACART_PRICING_FLAT_FEE" default:"40"`
	FreeThreshold float64 `envconfig:"KIRANACART_PRICING_FREE_THRESHOLD" default:"199"`
	TaxRate       float64 `envconfig:"KIRANACART_PRICING_TAX_RATE" default:"0.05"`
}

// FlatFeeAmount returns the flat delivery fee as an exact decimal.
func (p PricingConfig) FlatFeeAmount() decimal.Decimal {
	return decimal.NewFromFloat(p.FlatFee)
}

// FreeThresholdAmount returns the free-delivery subtotal threshold.
func (p PricingConfig) FreeThresholdAmount() decimal.Decimal {
	return decimal.NewFromFloat(p.FreeThreshold)
}

// TaxRateAmount returns the order tax rate.
func (p PricingConfig) TaxRateAmount() decimal.Decimal {
	return decimal.NewFromFloat(p.TaxRate)
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"KIRANACART_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"KIRANACART_RAZORPAY_KEY_SECRET"`
	BaseURL   string `envconfig:"KIRANACART_RAZORPAY_BASE_URL"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KIRANACART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KIRANACART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
