package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	DB          DatabaseConfig  `mapstructure:"db"`
	RabbitURL   string          `mapstructure:"rabbit_url"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Mirror      MirrorConfig    `mapstructure:"mirror"`
	Google      GoogleConfig    `mapstructure:"google"`
	Reconcile   ReconcileConfig `mapstructure:"reconcile"`
	Gate        GateConfig      `mapstructure:"gate"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig enables distributed mirror locks when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MirrorConfig struct {
	// Backend is one of "postgres", "sheets" or "memory".
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GoogleConfig struct {
	SheetID            string `mapstructure:"sheet_id"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
	KeyFile            string `mapstructure:"key_file"`
}

type ReconcileConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BatchSize   int           `mapstructure:"batch_size"`
}

type GateConfig struct {
	Queue      string `mapstructure:"queue"`
	BindingKey string `mapstructure:"binding_key"`
}

// Load reads .env (if present) and the process environment. Nested keys map
// to upper-case env names joined by underscores, e.g. DB_HOST or MIRROR_TIMEOUT.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatal().Err(err).Msg("unable to decode configuration")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", "8080")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "checkin_db")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("rabbit_url", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mirror.backend", "postgres")
	v.SetDefault("mirror.timeout", "10s")

	v.SetDefault("google.sheet_id", "")
	v.SetDefault("google.service_account_json", "")
	v.SetDefault("google.key_file", "google-key.json")

	v.SetDefault("reconcile.interval", "30s")
	v.SetDefault("reconcile.max_attempts", 10)
	v.SetDefault("reconcile.batch_size", 100)

	v.SetDefault("gate.queue", "checkin.gate.scans")
	v.SetDefault("gate.binding_key", "scan.*")
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}
