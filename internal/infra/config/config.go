package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv  string `envconfig:"APP_ENV" default:"dev"`
	TZ      string `envconfig:"TZ" default:"Europe/Moscow"`
	Port    int    `envconfig:"PORT" default:"8080"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	SMTP struct {
		Host     string `envconfig:"SMTP_HOST"`
		Port     int    `envconfig:"SMTP_PORT" default:"587"`
		Username string `envconfig:"SMTP_USERNAME"`
		Password string `envconfig:"SMTP_PASSWORD"`
		From     string `envconfig:"SMTP_FROM" default:"news@newsportal.local"`
	} `envconfig:""`

	Mail struct {
		WelcomeVariant int `envconfig:"WELCOME_EMAIL_VARIANT" default:"1"`
	} `envconfig:""`

	Digest struct {
		Weekday int    `envconfig:"DIGEST_WEEKDAY" default:"1"`
		At      string `envconfig:"DIGEST_AT" default:"08:00"`
	} `envconfig:""`

	Queues struct {
		Notifications string `envconfig:"NOTIFICATION_QUEUE_KEY" default:"notification_jobs"`
	} `envconfig:""`

	Cache struct {
		ArticleTTLSeconds int `envconfig:"ARTICLE_CACHE_TTL" default:"300"`
		PageTTLSeconds    int `envconfig:"PAGE_CACHE_TTL" default:"60"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
