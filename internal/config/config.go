package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls" yaml:"urls"`
	Username   string   `mapstructure:"username" yaml:"username"`
	Credential string   `mapstructure:"credential" yaml:"credential"`
}

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	ReadLimit  int64  `mapstructure:"read_limit"`
	Secret     string `mapstructure:"secret"`

	DBPath     string `mapstructure:"db_path"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`

	PingPeriod       time.Duration `mapstructure:"ping_period"`
	MaxMissedPings   int           `mapstructure:"max_missed_pings"`
	TaskPollInterval time.Duration `mapstructure:"task_poll_interval"`
	SystemInfoDelay  time.Duration `mapstructure:"system_info_delay"`

	LoginRateLimit    int           `mapstructure:"login_rate_limit"`
	LoginRateInterval time.Duration `mapstructure:"login_rate_interval"`

	SendQueue    int    `mapstructure:"send_queue"`
	Backpressure string `mapstructure:"backpressure"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

// Load reads config/config.<CONFIG_ENV>.yaml. A missing file is not an
// error; every key has a default and WEBCAT_* variables override.
func Load() (*Config, error) {
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
	v.SetEnvPrefix("webcat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("secret", "")
	v.SetDefault("db_path", "webcat.db")
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("max_missed_pings", 2)
	v.SetDefault("task_poll_interval", "10s")
	v.SetDefault("system_info_delay", "30s")
	v.SetDefault("login_rate_limit", 5)
	v.SetDefault("login_rate_interval", "1m")
	v.SetDefault("send_queue", 256)
	v.SetDefault("backpressure", "drop")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.PingPeriod <= 0 {
		return fmt.Errorf("config: ping_period must be positive, got %s", c.PingPeriod)
	}
	if c.TaskPollInterval <= 0 {
		return fmt.Errorf("config: task_poll_interval must be positive, got %s", c.TaskPollInterval)
	}
	if c.MaxMissedPings < 1 {
		return fmt.Errorf("config: max_missed_pings must be at least 1, got %d", c.MaxMissedPings)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Secret == "" {
		return errors.New("config: secret must be set")
	}
	return nil
}
