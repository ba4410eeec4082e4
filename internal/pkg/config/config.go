package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	CORS     CORSConfig
	Log      LogConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Checkout CheckoutConfig
	Worker   WorkerConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Jakarta"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"50"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key,X-Session-ID,X-Request-ID"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length,X-Request-ID"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Asia/Jakarta"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"25200"` // 7*60*60
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

type CookieConfig struct {
	Domain   string `envconfig:"COOKIE_DOMAIN" default:""`
	Secure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	SameSite string `envconfig:"COOKIE_SAMESITE" default:"Lax"`
}

type RedisConfig struct {
	Addr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"true"`
	AvailableTTL time.Duration `envconfig:"REDIS_AVAILABILITY_TTL" default:"5m"`
	DedupTTL     time.Duration `envconfig:"REDIS_DEDUP_TTL" default:"24h"`
}

type KafkaConfig struct {
	Brokers            []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Enabled            bool     `envconfig:"KAFKA_ENABLED" default:"true"`
	OrderEventsTopic   string   `envconfig:"KAFKA_ORDER_EVENTS_TOPIC" default:"order.events"`
	PaymentEventsTopic string   `envconfig:"KAFKA_PAYMENT_EVENTS_TOPIC" default:"payment.events"`
	PaymentGroupID     string   `envconfig:"KAFKA_PAYMENT_GROUP_ID" default:"storefront-checkout.payments"`
	ProducerName       string   `envconfig:"KAFKA_PRODUCER_NAME" default:"storefront-checkout"`
}

type CheckoutConfig struct {
	ReservationTTL   time.Duration `envconfig:"CHECKOUT_RESERVATION_TTL" default:"15m"`
	PaymentExpiry    time.Duration `envconfig:"CHECKOUT_PAYMENT_EXPIRY" default:"24h"`
	GuestCartTTL     time.Duration `envconfig:"CART_GUEST_TTL" default:"168h"`
	IdempotencyTTL   time.Duration `envconfig:"CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	FlatShippingRate int64         `envconfig:"SHIPPING_FLAT_RATE" default:"50000"`
	Currency         string        `envconfig:"CHECKOUT_CURRENCY" default:"IDR"`
}

type WorkerConfig struct {
	Enabled             bool          `envconfig:"WORKER_ENABLED" default:"true"`
	ReclaimInterval     time.Duration `envconfig:"WORKER_RECLAIM_INTERVAL" default:"1m"`
	OutboxInterval      time.Duration `envconfig:"WORKER_OUTBOX_INTERVAL" default:"2s"`
	BatchSize           int           `envconfig:"WORKER_BATCH_SIZE" default:"100"`
	PaymentConsumerSize int           `envconfig:"WORKER_PAYMENT_CONSUMERS" default:"4"`
}

type PaymentConfig struct {
	ProviderURL   string        `envconfig:"PAYMENT_PROVIDER_URL" default:""`
	APIKey        string        `envconfig:"PAYMENT_API_KEY" default:""`
	WebhookSecret string        `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`
	Sandbox       bool          `envconfig:"PAYMENT_SANDBOX" default:"false"`
	Timeout       time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// LoadConfig reads an optional .env file before processing the environment.
func LoadConfig() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load env file", "file", envFile, "error", err.Error())
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Asia/Jakarta",
			MaxConns: 40,
			MinConns: 2,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Asia/Jakarta",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 25200,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Cookie: CookieConfig{
			Secure:   false,
			SameSite: "Lax",
		},
		Redis: RedisConfig{
			Enabled: false,
		},
		Kafka: KafkaConfig{
			Enabled:            false,
			OrderEventsTopic:   "order.events",
			PaymentEventsTopic: "payment.events",
			ProducerName:       "storefront-checkout-test",
		},
		Checkout: CheckoutConfig{
			ReservationTTL:   15 * time.Minute,
			PaymentExpiry:    24 * time.Hour,
			GuestCartTTL:     7 * 24 * time.Hour,
			IdempotencyTTL:   24 * time.Hour,
			FlatShippingRate: 50000,
			Currency:         "IDR",
		},
		Worker: WorkerConfig{
			Enabled:   false,
			BatchSize: 50,
		},
		Payment: PaymentConfig{
			WebhookSecret: "test-webhook-secret",
			Sandbox:       true,
			Timeout:       time.Second,
		},
	}
}
