package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `env:"ENV" env-required:"true"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level, debug, info, etc."`
	HttpServer HttpServer
	Database   Database
	Limiter    Limiter
	Auth       AuthConfig
	Cache      Cache
	Partners   PartnersConfig
	Sync       SyncConfig
	Locations  LocationsConfig
	Resolver   ResolverConfig
	AI         AIConfig
	SMTP       SMTPConfig
	Email      EmailConfig
}

type HttpServer struct {
	Port           string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout        time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	SwaggerEnabled bool          `env:"HTTP_SWAGGER_ENABLED" env-default:"false"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" env-default:"http://localhost:3000,http://localhost:5173"`
}

type Database struct {
	Driver             string        `env:"DB_DRIVER" env-default:"mysql" env-description:"one of mysql/postgres/sqlite"`
	Net                string        `env:"DB_NET" env-default:"tcp"`
	Server             string        `env:"DB_SERVER" env-default:"localhost:3306"`
	DBName             string        `env:"DB_NAME" env-default:"locations"`
	User               string        `env:"DB_USER" env-default:""`
	Password           string        `env:"DB_PASSWORD" env-default:""`
	SSLMode            string        `env:"DB_SSLMODE" env-default:"disable"`
	Path               string        `env:"DB_PATH" env-default:"locations.db" env-description:"sqlite database file"`
	TimeZone           string        `env:"DB_TIMEZONE" env-default:"UTC"`
	Timeout            time.Duration `env:"DB_TIMEOUT" env-default:"2s"`
	MaxIdleConnections int           `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"40"`
	MaxOpenConnections int           `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"40"`
	Migrate            bool          `env:"DB_MIGRATE" env-default:"true"`
}

type Limiter struct {
	RPS   int           `env:"LIMITER_RPS" env-default:"10"`
	Burst int           `env:"LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"LIMITER_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWT JWTConfig
}

type JWTConfig struct {
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
}

type Cache struct {
	Type  string `env:"REDIS_TYPE" env-default:"redis" env-description:"specifies provider, one of redis/redisCluster"`
	Redis struct {
		Address  string `env:"REDIS_ADDR" env-default:"localhost:6379" env-description:"redis host:port single instance"`
		Password string `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
		DB       int    `env:"REDIS_DB" env-default:"0"`
	}
	Timeout time.Duration `env:"REDIS_TIMEOUT" env-default:"1s" env-description:"dial, read and write timeout"`
	RedisCluster struct {
		Addresses []string `env:"REDIS_CLUSTER_ADDRS" env-description:"redis cluster nodes: ['172.27.29.90:7000','172.27.29.91:7001'', '172.27.29.92:7002'']"`
		Password  string   `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize  int      `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
}

type PartnersConfig struct {
	ProxyURL     string        `env:"PARTNER_PROXY_URL" env-required:"true" env-description:"base url of the authenticated partner api proxy"`
	ProxyKey     string        `env:"PARTNER_PROXY_KEY" env-default:""`
	CatalogFile  string        `env:"PARTNER_CATALOG_FILE" env-default:"" env-description:"yaml partner catalog, embedded default when empty"`
	Timeout      time.Duration `env:"PARTNER_TIMEOUT" env-default:"60s"`
	RPS          float64       `env:"PARTNER_RPS" env-default:"5"`
	DefaultToken string        `env:"PARTNER_DEFAULT_TOKEN" env-default:""`
}

type SyncConfig struct {
	BatchSize         int               `env:"SYNC_BATCH_SIZE" env-default:"100"`
	CityConcurrency   int               `env:"SYNC_CITY_CONCURRENCY" env-default:"1"`
	StaleAfter        time.Duration     `env:"SYNC_STALE_AFTER" env-default:"30m"`
	TaskTimeout       time.Duration     `env:"SYNC_TASK_TIMEOUT" env-default:"2h"`
	Schedule          string            `env:"SYNC_SCHEDULE" env-default:"" env-description:"cron spec for periodic syncs, disabled when empty"`
	ScheduledBy       string            `env:"SYNC_SCHEDULED_BY" env-default:"scheduler"`
	ScheduledTokens   map[string]string `env:"SYNC_SCHEDULE_TOKENS" env-description:"partner:token pairs used by the scheduler"`
	WorkerConcurrency int               `env:"SYNC_WORKER_CONCURRENCY" env-default:"2"`
}

type LocationsConfig struct {
	PageSize  int           `env:"CACHE_PAGE_SIZE" env-default:"1000"`
	PageDelay time.Duration `env:"CACHE_PAGE_DELAY" env-default:"50ms"`
}

type ResolverConfig struct {
	FuzzyDistance     int `env:"RESOLVER_FUZZY_DISTANCE" env-default:"1"`
	RegionSampleLimit int `env:"RESOLVER_REGION_SAMPLE" env-default:"200"`
}

type AIConfig struct {
	Provider    string        `env:"AI_PROVIDER" env-default:"openai" env-description:"one of openai/gigachat/yandexgpt"`
	BaseURL     string        `env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey      string        `env:"AI_API_KEY" env-default:"" env-description:"resolver falls back to deterministic matching when empty"`
	Models      []string      `env:"AI_MODELS" env-default:"gpt-4o-mini,gpt-4.1-mini,gpt-4o"`
	Temperature float64       `env:"AI_TEMPERATURE" env-default:"0.1"`
	MaxTokens   int           `env:"AI_MAX_TOKENS" env-default:"500"`
	Timeout     time.Duration `env:"AI_TIMEOUT" env-default:"30s"`

	GigaChatScope  string `env:"AI_GIGACHAT_SCOPE" env-default:"GIGACHAT_API_PERS"`
	YandexFolderID string `env:"AI_YANDEX_FOLDER_ID" env-default:""`
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" env-default:""`
	Port int    `env:"SMTP_PORT" env-default:"587"`
	From string `env:"SMTP_FROM" env-default:""`
	Pass string `env:"SMTP_PASS" env-default:""`
}

type EmailConfig struct {
	Enabled    bool     `env:"EMAIL_ENABLED" env-default:"false"`
	Recipients []string `env:"EMAIL_SYNC_FAILURE_RECIPIENTS"`
	Templates  EmailTemplates
}

type EmailTemplates struct {
	SyncFailed string `env:"EMAIL_TEMPLATE_SYNC_FAILED" env-default:"sync_failed.html"`
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}

	return cfg
}

func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
