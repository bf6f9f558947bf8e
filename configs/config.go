package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CARTAPI_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		GRPCAddr string `koanf:"grpc_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		HandlerTimeout time.Duration `koanf:"handler_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		URL      string `koanf:"url"`
		Exchange string `koanf:"exchange"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers    []string `koanf:"brokers"`
		GroupID    string   `koanf:"group_id"`
		TopicLogin string   `koanf:"topic_login"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		// service tokens minted for upstream calls
		ServiceIssuer   string `koanf:"service_issuer"`
		ServiceAudience string `koanf:"service_audience"`
	} `koanf:"security"`

	Services struct {
		CartURL    string        `koanf:"cart_url"`
		OrderURL   string        `koanf:"order_url"`
		CatalogURL string        `koanf:"catalog_url"`
		Timeout    time.Duration `koanf:"timeout"`
	} `koanf:"services"`

	Cart struct {
		LoginPolicy     string        `koanf:"login_policy"`
		SessionTTL      time.Duration `koanf:"session_ttl"`
		SlotTTL         time.Duration `koanf:"slot_ttl"`
		ProductCacheTTL time.Duration `koanf:"product_cache_ttl"`
	} `koanf:"cart"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env file (dev/staging/prod); missing is fine for local runs
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables, nested with __
	// e.g. CARTAPI_MYSQL__DSN, CARTAPI_CART__LOGIN_POLICY
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	required := []struct{ key, val string }{
		{"app.http_addr", c.App.HTTPAddr},
		{"redis.addr", c.Redis.Addr},
		{"mysql.dsn", c.MySQL.DSN},
		{"security.jwt_secret", c.Security.JWTSecret},
		{"services.cart_url", c.Services.CartURL},
		{"services.order_url", c.Services.OrderURL},
		{"services.catalog_url", c.Services.CatalogURL},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s required", r.key)
		}
	}
	switch c.Cart.LoginPolicy {
	case "", "replace", "discard", "merge":
	default:
		return fmt.Errorf("cart.login_policy: unknown value %q", c.Cart.LoginPolicy)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.TopicLogin == "" {
		return fmt.Errorf("kafka.topic_login required when kafka.brokers is set")
	}
	return nil
}
