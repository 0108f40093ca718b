package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	AdminUsernames []string      `mapstructure:"admin_usernames"`
}

type HistoryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type Config struct {
	Mode           string          `mapstructure:"mode"`
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	ReadLimit      int64           `mapstructure:"read_limit"`
	PingPeriod     time.Duration   `mapstructure:"ping_period"`
	SendBuffer     int             `mapstructure:"send_buffer"`
	Secret         string          `mapstructure:"secret"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	Auth           AuthConfig      `mapstructure:"auth"`
	History        HistoryConfig   `mapstructure:"history"`
	Store          StoreConfig     `mapstructure:"store"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("auth.jwt_secret", "dev-secret-please-change")
	v.SetDefault("auth.token_ttl", "8h")
	v.SetDefault("auth.issuer", "chat")
	v.SetDefault("auth.admin_usernames", []string{"admin"})
	v.SetDefault("history.default_limit", 50)
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.path", "./data")
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 300)
}

// Load reads an optional .env, then config/config.<CONFIG_ENV>.yaml, then
// CHAT_* environment overrides (CHAT_AUTH_JWT_SECRET for auth.jwt_secret).
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreBadger:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is empty")
	}
	return nil
}
