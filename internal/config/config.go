package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Remote    RemoteConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sync      SyncConfig
	School    SchoolConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Storage   StorageConfig
	Push      PushConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	ForceMigrate bool `mapstructure:"-"` // migrate the cache tables even in release mode
	MigrateOnly  bool `mapstructure:"-"` // exit after migrating
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

// RemoteConfig selects the live document store: memory, redis or firestore.
type RemoteConfig struct {
	Driver           string `mapstructure:"driver"`
	FirestoreProject string `mapstructure:"firestore_project"`
	CredentialsFile  string `mapstructure:"credentials_file"`
	RedisPrefix      string `mapstructure:"redis_prefix"`
}

// DatabaseConfig is the local durable cache. Driver none keeps the cache
// in memory only.
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	LogSQL    bool   `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SyncConfig struct {
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryMaxBackoff time.Duration `mapstructure:"retry_max_backoff"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PurgeInterval   time.Duration `mapstructure:"purge_interval"`
}

type SchoolConfig struct {
	FirstWeekday    string `mapstructure:"first_weekday"`
	Timezone        string `mapstructure:"timezone"`
	LeaderboardSize int    `mapstructure:"leaderboard_size"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// AdminConfig holds the bootstrap admin password, used only while no
// password has been stored yet.
type AdminConfig struct {
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests      int `mapstructure:"max_requests"`
	WindowMinutes    int `mapstructure:"window_minutes"`
	LoginMaxRequests int `mapstructure:"login_max_requests"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("remote.driver", "memory")
	v.SetDefault("remote.redis_prefix", "hifz:")
	v.SetDefault("database.driver", "none")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("sync.retry_attempts", 5)
	v.SetDefault("sync.retry_backoff", "500ms")
	v.SetDefault("sync.retry_max_backoff", "30s")
	v.SetDefault("sync.write_timeout", "15s")
	v.SetDefault("sync.ping_interval", "10s")
	v.SetDefault("sync.purge_interval", "1h")
	v.SetDefault("school.first_weekday", "saturday")
	v.SetDefault("school.timezone", "Local")
	v.SetDefault("school.leaderboard_size", 5)
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "backups")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.login_max_requests", 10)
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("HIFZ")
	v.AutomaticEnv()
	setDefaults(v)

	// Server
	v.BindEnv("server.port", "HIFZ_SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Remote store
	v.BindEnv("remote.driver", "REMOTE_DRIVER")
	v.BindEnv("remote.firestore_project", "FIRESTORE_PROJECT")
	v.BindEnv("remote.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")

	// Cache database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT / admin
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("admin.password", "ADMIN_PASSWORD")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Push
	v.BindEnv("push.enabled", "PUSH_ENABLED")
	v.BindEnv("push.credentials_file", "PUSH_CREDENTIALS_FILE")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// Release builds need a real signing secret.
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Remote.Driver {
	case "memory", "redis":
	case "firestore":
		if c.Remote.FirestoreProject == "" {
			return fmt.Errorf("remote.firestore_project is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote.Driver)
	}
	switch c.Database.Driver {
	case "none", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Sync.RetryAttempts < 1 {
		return fmt.Errorf("sync.retry_attempts must be at least 1")
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.LoginMaxRequests < 1 || c.RateLimit.WindowMinutes < 1 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}
