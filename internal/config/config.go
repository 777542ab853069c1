package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type UploadsConfig struct {
	Root     string
	MaxBytes int64
}

type MirrorConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	SessionSecret     string
	SessionIssuer     string
	SessionCookie     string
	SessionTTL        time.Duration
	AdminEmails       []string
	SeedAdminName     string
	SeedAdminEmail    string
	SeedAdminPassword string
}

type AuditConfig struct {
	Retention time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Uploads          UploadsConfig
	Mirror           MirrorConfig
	Security         SecurityConfig
	Audit            AuditConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("DEVNOTES")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server must not start with. A missing
// signing secret would silently disable session verification, so it is a
// hard startup failure rather than a default.
func (c *AppConfig) Validate() error {
	if c.Security.SessionSecret == "" {
		return errors.New("security.sessionsecret is required")
	}
	if c.Security.SessionTTL <= 0 {
		return errors.New("security.sessionttl must be positive")
	}
	if c.Uploads.Root == "" {
		return errors.New("uploads.root is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("uploads.root", "./uploads")
	v.SetDefault("uploads.maxbytes", 64<<20)

	v.SetDefault("mirror.usessl", false)
	v.SetDefault("mirror.region", "us-east-1")
	v.SetDefault("mirror.bucket", "devnotes-uploads")

	v.SetDefault("security.sessionissuer", "devnotes")
	v.SetDefault("security.sessioncookie", "devnotes_session")
	v.SetDefault("security.sessionttl", "168h") // 7 days
	v.SetDefault("security.seedadminname", "Administrator")

	v.SetDefault("audit.retention", "2160h") // 90 days
}
