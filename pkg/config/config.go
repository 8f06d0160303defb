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
	EnvPrefix = "MERAKI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MERAKI_DB_DSN"
	EnvDBHost = "MERAKI_DB_HOST"
	EnvDBUser = "MERAKI_DB_USER"
	EnvDBName = "MERAKI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Paymob        PaymobConfig
	Shipping      ShippingConfig
	SMTP          SMTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERAKI_APP_ENV" required:"true"`
	Port         string `envconfig:"MERAKI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MERAKI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERAKI_LOG_WARN_STACK" default:"false"`

	// BootstrapAdminEmail, when set, promotes that registered account to
	// admin at startup. Solves first-admin provisioning; later role changes
	// go through the admin users API.
	BootstrapAdminEmail string `envconfig:"MERAKI_BOOTSTRAP_ADMIN_EMAIL"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MERAKI_DB_DSN"`
	Driver string `envconfig:"MERAKI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MERAKI_DB_HOST"`
	LegacyPort     int    `envconfig:"MERAKI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERAKI_DB_USER"`
	LegacyPassword string `envconfig:"MERAKI_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERAKI_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERAKI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERAKI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERAKI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERAKI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERAKI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERAKI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERAKI_REDIS_ADDR"`
	Password     string        `envconfig:"MERAKI_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERAKI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERAKI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERAKI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERAKI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERAKI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERAKI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MERAKI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MERAKI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MERAKI_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MERAKI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MERAKI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MERAKI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MERAKI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MERAKI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MERAKI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MERAKI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MERAKI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MERAKI_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MERAKI_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MERAKI_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MERAKI_AUTO_MIGRATE" default:"false"`
}

// PaymobConfig carries the payment gateway credentials and endpoints.
type PaymobConfig struct {
	BaseURL       string        `envconfig:"MERAKI_PAYMOB_BASE_URL" default:"https://accept.paymob.com"`
	APIKey        string        `envconfig:"MERAKI_PAYMOB_API_KEY"`
	IntegrationID int           `envconfig:"MERAKI_PAYMOB_INTEGRATION_ID"`
	IframeID      string        `envconfig:"MERAKI_PAYMOB_IFRAME_ID"`
	HMACSecret    string        `envconfig:"MERAKI_PAYMOB_HMAC_SECRET"`
	Currency      string        `envconfig:"MERAKI_PAYMOB_CURRENCY" default:"EGP"`
	Timeout       time.Duration `envconfig:"MERAKI_PAYMOB_TIMEOUT" default:"30s"`
}

const (
	// ShippingPolicyFlat charges the flat fee on every order.
	ShippingPolicyFlat = "flat"
	// ShippingPolicyThreshold waives the fee once the subtotal reaches the threshold.
	ShippingPolicyThreshold = "threshold"
)

// ShippingConfig selects the shipping fee policy applied at checkout.
type ShippingConfig struct {
	Policy        string          `envconfig:"MERAKI_SHIPPING_POLICY" default:"threshold"`
	FlatFee       decimal.Decimal `envconfig:"MERAKI_SHIPPING_FLAT_FEE" default:"50"`
	FreeThreshold decimal.Decimal `envconfig:"MERAKI_SHIPPING_FREE_THRESHOLD" default:"500"`
}

func (s ShippingConfig) validate() error {
	switch s.Policy {
	case ShippingPolicyFlat, ShippingPolicyThreshold:
		return nil
	default:
		return fmt.Errorf("shipping policy must be %q or %q", ShippingPolicyFlat, ShippingPolicyThreshold)
	}
}

type SMTPConfig struct {
	Host       string `envconfig:"MERAKI_SMTP_HOST"`
	Port       int    `envconfig:"MERAKI_SMTP_PORT" default:"587"`
	Username   string `envconfig:"MERAKI_SMTP_USERNAME"`
	Password   string `envconfig:"MERAKI_SMTP_PASSWORD"`
	From       string `envconfig:"MERAKI_SMTP_FROM"`
	AdminEmail string `envconfig:"MERAKI_ADMIN_EMAIL"`
}

// Enabled reports whether outbound mail is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != "" && s.AdminEmail != ""
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
