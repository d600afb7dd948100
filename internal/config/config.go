package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	KickSlow       bool          `mapstructure:"kick_slow"`
	SyncRateLimit  int           `mapstructure:"sync_rate_limit"`
	SyncRateWindow time.Duration `mapstructure:"sync_rate_interval"`
	NatsURL        string        `mapstructure:"nats_url"`
	NatsSubject    string        `mapstructure:"nats_subject"`
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping_period %s must be below pong_wait %s", c.PingPeriod, c.PongWait))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.SyncRateLimit <= 0 || c.SyncRateWindow <= 0 {
		errs = append(errs, errors.New("sync rate limit and interval must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads config/config.<env>.yaml, then WATCHPARTY_* environment
// overrides. A missing file is not an error.
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.SetEnvPrefix("watchparty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "dev-secret")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("kick_slow", false)
	v.SetDefault("sync_rate_limit", 20)
	v.SetDefault("sync_rate_interval", "1s")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "watchparty.sessions")

	switch err := v.ReadInConfig(); {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
	default:
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Bool("nats", cfg.NatsURL != "").Msg("config ready")
	return &cfg, nil
}
