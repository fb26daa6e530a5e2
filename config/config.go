package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Log           LogConfig           `mapstructure:"log"`
	Feed          FeedConfig          `mapstructure:"feed"`
	Post          PostConfig          `mapstructure:"post"`
	Search        SearchConfig        `mapstructure:"search"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Sentry        SentryConfig        `mapstructure:"sentry"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// SlowThreshold 慢查询阈值，超过即 Warn 日志
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

type FeedConfig struct {
	PostsPerPage int `mapstructure:"posts_per_page"`
}

type PostConfig struct {
	MaxLength int `mapstructure:"max_length"`
}

type SearchConfig struct {
	Backend      string        `mapstructure:"backend"` // sql, elasticsearch
	MaxResults   int           `mapstructure:"max_results"`
	IndexWorkers int           `mapstructure:"index_workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ClaimLimit   int           `mapstructure:"claim_limit"`
	// ClaimLease processing 事件超过该时长未完成即可被重新认领
	ClaimLease   time.Duration `mapstructure:"claim_lease"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

type NotifyConfig struct {
	Sink         string   `mapstructure:"sink"` // log, redis, kafka
	QueueSize    int      `mapstructure:"queue_size"`
	Workers      int      `mapstructure:"workers"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// ProviderSecret 身份提供方回调共享密钥
	ProviderSecret string `mapstructure:"provider_secret"`
}

type RateLimitConfig struct {
	PostsPerSecond float64 `mapstructure:"posts_per_second"`
	Burst          int     `mapstructure:"burst"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Load 读取 config/config.yaml，并允许环境变量覆盖（database.driver -> DATABASE_DRIVER）
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom 从指定目录读取配置
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "microblog.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.slow_threshold", "500ms")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("feed.posts_per_page", 10)
	v.SetDefault("post.max_length", 140)

	v.SetDefault("search.backend", "sql")
	v.SetDefault("search.max_results", 50)
	v.SetDefault("search.index_workers", 2)
	v.SetDefault("search.poll_interval", "200ms")
	v.SetDefault("search.claim_limit", 64)
	v.SetDefault("search.claim_lease", "1m")

	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "microblog-posts")

	v.SetDefault("notify.sink", "log")
	v.SetDefault("notify.queue_size", 10000)
	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.kafka_topic", "microblog.follows")

	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("ratelimit.posts_per_second", 1)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "microblog")
}

// Validate 校验必须为正数的选项以及枚举值
func (c *Config) Validate() error {
	if c.Feed.PostsPerPage <= 0 {
		return fmt.Errorf("feed.posts_per_page must be > 0, got %d", c.Feed.PostsPerPage)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0, got %d", c.Search.MaxResults)
	}
	if c.Post.MaxLength <= 0 {
		return fmt.Errorf("post.max_length must be > 0, got %d", c.Post.MaxLength)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Search.Backend {
	case "sql", "elasticsearch":
	default:
		return fmt.Errorf("unsupported search backend: %s", c.Search.Backend)
	}
	switch c.Notify.Sink {
	case "log", "redis", "kafka":
	default:
		return fmt.Errorf("unsupported notify sink: %s", c.Notify.Sink)
	}
	return nil
}
