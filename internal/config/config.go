package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "APIDOCK"

type Config struct {
	HTTP   HTTP   `mapstructure:"http"`
	DB     DB     `mapstructure:"db"`
	Log    Log    `mapstructure:"log"`
	Export Export `mapstructure:"export"`
	Auth   Auth   `mapstructure:"auth"`
	Notify Notify `mapstructure:"notify"`
	Import Import `mapstructure:"import"`
}

type HTTP struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

type DB struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type Export struct {
	Dir           string        `mapstructure:"dir" validate:"required"`
	Retention     time.Duration `mapstructure:"retention" validate:"gt=0"`
	PurgeInterval time.Duration `mapstructure:"purge_interval" validate:"gt=0"`
}

type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type Notify struct {
	DiscordWebhook string `mapstructure:"discord_webhook" validate:"omitempty,url"`
}

type Import struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "127.0.0.1:5000")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "host=localhost user=postgres password=123 dbname=apidock")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.retention", 24*time.Hour)
	v.SetDefault("export.purge_interval", time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("notify.discord_webhook", "")
	v.SetDefault("import.timeout", 30*time.Second)
}

// Load reads .env (when present), then the optional config file, then
// APIDOCK_* environment variables, in increasing precedence.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
