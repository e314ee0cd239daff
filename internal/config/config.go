package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	PaymentService      ServiceConfig
	NotificationService ServiceConfig
	Checkout            CheckoutConfig
	Reconciler          ReconcilerConfig
	Features            FeatureFlags
	LogLevel            string
	CartBackend         string
	PaymentMode         string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers        []string
	CheckoutTopic  string
	RetractedTopic string
	ConsumerGroup  string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

type CheckoutConfig struct {
	MockSuccessRate    float64
	MockDelay          time.Duration
	RetractMaxTries    int
	RetractInitialWait time.Duration
	RetractMaxWait     time.Duration
	RedirectAfter      time.Duration
}

type ReconcilerConfig struct {
	Interval  time.Duration
	GraceAge  time.Duration
	BatchSize int
}

type FeatureFlags struct {
	EnableCatalogCaching bool
	EnableOrderCaching   bool
	EnableCheckoutEvents bool
	EnableReconciler     bool
	EnableNotifications  bool
}

const (
	CartBackendPostgres = "postgres"
	CartBackendRedis    = "redis"

	PaymentModeMock = "mock"
	PaymentModeHTTP = "http"
)

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override it.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		// A missing or unreadable file falls back to env and defaults.
		_ = v.ReadInConfig()
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8084)
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "acme")
	v.SetDefault("DB_PASSWORD", "acme")
	v.SetDefault("DB_NAME", "acme_storefront")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MAX_LIFETIME", 300)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TTL", 300)

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CHECKOUT_TOPIC", "storefront.checkout")
	v.SetDefault("KAFKA_RETRACTED_TOPIC", "storefront.cart-retraction")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "storefront-reconciler")

	v.SetDefault("PAYMENT_SERVICE_URL", "http://localhost:8083")
	v.SetDefault("PAYMENT_SERVICE_TIMEOUT", 30)
	v.SetDefault("PAYMENT_SERVICE_API_KEY", "")
	v.SetDefault("NOTIFICATION_SERVICE_URL", "http://localhost:8085")
	v.SetDefault("NOTIFICATION_SERVICE_TIMEOUT", 10)
	v.SetDefault("NOTIFICATION_SERVICE_API_KEY", "")

	v.SetDefault("CHECKOUT_MOCK_SUCCESS_RATE", 0.9)
	v.SetDefault("CHECKOUT_MOCK_DELAY_MS", 1000)
	v.SetDefault("CHECKOUT_RETRACT_MAX_TRIES", 5)
	v.SetDefault("CHECKOUT_RETRACT_INITIAL_WAIT_MS", 100)
	v.SetDefault("CHECKOUT_RETRACT_MAX_WAIT_MS", 2000)
	v.SetDefault("CHECKOUT_REDIRECT_AFTER", 30)

	v.SetDefault("RECONCILE_INTERVAL", 60)
	v.SetDefault("RECONCILE_GRACE_AGE", 120)
	v.SetDefault("RECONCILE_BATCH_SIZE", 50)

	v.SetDefault("FEATURE_CATALOG_CACHING", true)
	v.SetDefault("FEATURE_ORDER_CACHING", true)
	v.SetDefault("FEATURE_CHECKOUT_EVENTS", true)
	v.SetDefault("FEATURE_RECONCILER", true)
	v.SetDefault("FEATURE_NOTIFICATIONS", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CART_BACKEND", CartBackendPostgres)
	v.SetDefault("PAYMENT_MODE", PaymentModeMock)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetInt("SERVER_PORT"),
			ReadTimeout:  seconds(v, "SERVER_READ_TIMEOUT"),
			WriteTimeout: seconds(v, "SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxLifetime:  seconds(v, "DB_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      seconds(v, "REDIS_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(v.GetString("KAFKA_BROKERS")),
			CheckoutTopic:  v.GetString("KAFKA_CHECKOUT_TOPIC"),
			RetractedTopic: v.GetString("KAFKA_RETRACTED_TOPIC"),
			ConsumerGroup:  v.GetString("KAFKA_CONSUMER_GROUP"),
		},
		PaymentService: ServiceConfig{
			BaseURL: v.GetString("PAYMENT_SERVICE_URL"),
			Timeout: seconds(v, "PAYMENT_SERVICE_TIMEOUT"),
			APIKey:  v.GetString("PAYMENT_SERVICE_API_KEY"),
		},
		NotificationService: ServiceConfig{
			BaseURL: v.GetString("NOTIFICATION_SERVICE_URL"),
			Timeout: seconds(v, "NOTIFICATION_SERVICE_TIMEOUT"),
			APIKey:  v.GetString("NOTIFICATION_SERVICE_API_KEY"),
		},
		Checkout: CheckoutConfig{
			MockSuccessRate:    v.GetFloat64("CHECKOUT_MOCK_SUCCESS_RATE"),
			MockDelay:          millis(v, "CHECKOUT_MOCK_DELAY_MS"),
			RetractMaxTries:    v.GetInt("CHECKOUT_RETRACT_MAX_TRIES"),
			RetractInitialWait: millis(v, "CHECKOUT_RETRACT_INITIAL_WAIT_MS"),
			RetractMaxWait:     millis(v, "CHECKOUT_RETRACT_MAX_WAIT_MS"),
			RedirectAfter:      seconds(v, "CHECKOUT_REDIRECT_AFTER"),
		},
		Reconciler: ReconcilerConfig{
			Interval:  seconds(v, "RECONCILE_INTERVAL"),
			GraceAge:  seconds(v, "RECONCILE_GRACE_AGE"),
			BatchSize: v.GetInt("RECONCILE_BATCH_SIZE"),
		},
		Features: FeatureFlags{
			EnableCatalogCaching: v.GetBool("FEATURE_CATALOG_CACHING"),
			EnableOrderCaching:   v.GetBool("FEATURE_ORDER_CACHING"),
			EnableCheckoutEvents: v.GetBool("FEATURE_CHECKOUT_EVENTS"),
			EnableReconciler:     v.GetBool("FEATURE_RECONCILER"),
			EnableNotifications:  v.GetBool("FEATURE_NOTIFICATIONS"),
		},
		LogLevel:    v.GetString("LOG_LEVEL"),
		CartBackend: strings.ToLower(v.GetString("CART_BACKEND")),
		PaymentMode: strings.ToLower(v.GetString("PAYMENT_MODE")),
	}
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Millisecond
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
