package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Etcd       EtcdConfig       `mapstructure:"etcd"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MySQL      MySQLConfig      `mapstructure:"mysql"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Payments   PaymentsConfig   `mapstructure:"payments"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Media      MediaConfig      `mapstructure:"media"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// UpstreamConfig points at the hosted commerce API used as the secondary
// order-read path when the document store is unreachable.
type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	ServiceName string        `mapstructure:"service_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	IdentityBaseURL string        `mapstructure:"identity_base_url"`
	TokenCacheTTL   time.Duration `mapstructure:"token_cache_ttl"`
	CSRFKey         string        `mapstructure:"csrf_key"`
	CSRFSecure      bool          `mapstructure:"csrf_secure"`
	TrustedOrigins  []string      `mapstructure:"trusted_origins"`
}

type PaymentsConfig struct {
	Currency string         `mapstructure:"currency"`
	Card     ProviderConfig `mapstructure:"card"`
	PayPal   ProviderConfig `mapstructure:"paypal"`
	Wallet   ProviderConfig `mapstructure:"wallet"`
}

type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ReconcilerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	SettleWithin time.Duration `mapstructure:"settle_within"`
}

type MediaConfig struct {
	UploadDir      string `mapstructure:"upload_dir"`
	ThumbnailWidth int    `mapstructure:"thumbnail_width"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Auth.TokenCacheTTL == 0 {
		c.Auth.TokenCacheTTL = time.Minute
	}
	if c.Reconciler.PollInterval == 0 {
		c.Reconciler.PollInterval = 15 * time.Second
	}
	if c.Reconciler.MaxBackoff == 0 {
		c.Reconciler.MaxBackoff = 2 * time.Minute
	}
	if c.Reconciler.SettleWithin == 0 {
		c.Reconciler.SettleWithin = 24 * time.Hour
	}
	if c.Media.ThumbnailWidth == 0 {
		c.Media.ThumbnailWidth = 320
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "USD"
	}
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
