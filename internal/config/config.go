// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
//
// Источники в порядке приоритета: переменные окружения, YAML-файл из CONFIG_PATH,
// значения env-default. Файл .env подгружается в окружение перед чтением.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"APP_ENV" env-default:"local"`
	MongoConnection `yaml:"mongo_connection"`
	RedisConnection `yaml:"redis_connection"`
	AMQPConnection  `yaml:"amqp_connection"`
	HTTPServer      `yaml:"http_server"`
	JWTToken        `yaml:"jwttoken"`
	PasswordHash    `yaml:"password_hash"`
	RateLimit       `yaml:"rate_limit"`
}

// MongoConnection структура для настройки подключения к MongoDB
type MongoConnection struct {
	MongoURI       string        `yaml:"mongo_uri" env:"MONGO_URI" env-required:"true"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"storefront"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env-default:"10s"`
	MigrationsPath string        `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_URL"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// AMQPConnection структура для публикации доменных событий. Пустой URL отключает публикацию.
type AMQPConnection struct {
	AMQPURL    string        `yaml:"amqp_url" env:"AMQP_URL"`
	Exchange   string        `yaml:"exchange" env-default:"storefront.events"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":3000"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	BasePath       string        `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api"`
	AllowedOrigin  string        `yaml:"allowed_origin" env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	TrustProxy     bool          `yaml:"trust_proxy" env:"TRUST_PROXY" env-default:"false"`
	ProductTTL     time.Duration `yaml:"product_cache_ttl" env-default:"1h"`
	ShutdownPeriod time.Duration `yaml:"shutdown_period" env-default:"15s"`
}

// JWTToken структура для работы с jwt-токеном и refresh-токенами
type JWTToken struct {
	JWTSecretKey    string        `yaml:"jwt_secret_key" env:"JWT_SECRET" env-required:"true"`
	TokenTTL        time.Duration `yaml:"token_ttl" env-default:"60m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

// PasswordHash параметры argon2id
type PasswordHash struct {
	Memory      uint32 `yaml:"memory_kb" env-default:"65536"`
	Iterations  uint32 `yaml:"iterations" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env-default:"2"`
	SaltLength  uint32 `yaml:"salt_length" env-default:"16"`
	KeyLength   uint32 `yaml:"key_length" env-default:"32"`
}

// RateLimit параметры ограничения частоты запросов
type RateLimit struct {
	Requests int           `yaml:"requests" env-default:"100"`
	Window   time.Duration `yaml:"window" env-default:"15m"`
}

// Load читает конфигурацию. Если CONFIG_PATH не задан, используется только окружение.
func Load() (*Config, error) {
	const op = "config.Load"

	// .env не обязателен
	_ = godotenv.Load()

	var cfg Config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return cfg.validated(op)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg.validated(op)
}

func (c *Config) validated(op string) (*Config, error) {
	if c.Requests <= 0 {
		return nil, fmt.Errorf("%s: rate_limit.requests must be positive, got %d", op, c.Requests)
	}
	if c.Window <= 0 {
		return nil, fmt.Errorf("%s: rate_limit.window must be positive, got %s", op, c.Window)
	}
	return c, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Mongo:\n"+
			"  Database: %s\n"+
			"  MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"AMQP:\n"+
			"  Enabled: %t\n"+
			"  Exchange: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  BasePath: %s\n"+
			"  AllowedOrigin: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"  RefreshTokenTTL: %s\n",
		c.Env,
		c.Database,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.MaxRetries,
		c.AMQPURL != "",
		c.Exchange,
		c.AddressHTTP,
		c.BasePath,
		c.AllowedOrigin,
		c.TokenTTL,
		c.RefreshTokenTTL,
	)
}
