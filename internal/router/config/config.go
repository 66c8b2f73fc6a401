package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	MetricsAddress string        `mapstructure:"METRICS_ADDRESS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
	RequestTTL time.Duration `mapstructure:"REQUEST_TTL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	ExpirySweepSpec string  `mapstructure:"EXPIRY_SWEEP_SPEC"`
	RateLimitRPS    float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int     `mapstructure:"RATE_LIMIT_BURST"`
	TrustedProxies  string  `mapstructure:"TRUSTED_PROXIES"`
}

var defaults = map[string]interface{}{
	"ENV":               "local",
	"LOG_LEVEL":         "info",
	"SERVER_ADDRESS":    "0.0.0.0:8080",
	"METRICS_ADDRESS":   "0.0.0.0:9090",
	"REQUEST_TIMEOUT":   "5s",
	"STORAGE_DRIVER":    DriverPostgres,
	"POSTGRES_CONN":     "",
	"POSTGRES_USERNAME": "",
	"POSTGRES_PASSWORD": "",
	"POSTGRES_HOST":     "",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_DATABASE": "",
	"SQLITE_PATH":       "autoservice.db",
	"JWT_SECRET":        "",
	"TOKEN_TTL":         "24h",
	"REQUEST_TTL":       "168h",
	"REDIS_ADDR":        "",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"CACHE_TTL":         "1m",
	"KAFKA_BROKERS":     "",
	"KAFKA_TOPIC":       "service_request_events",
	"EXPIRY_SWEEP_SPEC": "@every 5m",
	"RATE_LIMIT_RPS":    20,
	"RATE_LIMIT_BURST":  40,
	"TRUSTED_PROXIES":   "",
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path и переменных окружения
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

// PostgresDSN возвращает POSTGRES_CONN, а если он пуст, собирает строку из отдельных параметров
func (c Config) PostgresDSN() string {
	if c.PostgresConn != "" {
		return c.PostgresConn
	}
	if c.PostgresUser == "" || c.PostgresPass == "" || c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDB == "" {
		return ""
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPass),
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}

// IsProduction сообщает, что сервис запущен в боевом окружении
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.PostgresDSN() == "" {
			return errors.New("POSTGRES_CONN or POSTGRES_USERNAME, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DATABASE are required for the postgres storage driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite storage driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// Secret возвращает ключ подписи токенов; вне боевого окружения допускается ключ по умолчанию
func (c Config) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte("local-development-secret")
	}
	return []byte(c.JWTSecret)
}
