// Package config reads process settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the bot process
type Config struct {
	TelegramToken         string        `mapstructure:"TELEGRAM_BOT_TOKEN" validate:"required"`
	DBType                string        `mapstructure:"DB_TYPE" validate:"oneof=sqlite sqlite3 postgres"`
	DBPath                string        `mapstructure:"DB_PATH" validate:"required_unless=DBType postgres"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL" validate:"required_if=DBType postgres"`
	DatasetPath           string        `mapstructure:"DATASET_PATH"`
	Timezone              string        `mapstructure:"TIMEZONE" validate:"required"`
	ReminderDays          int           `mapstructure:"REMINDER_DAYS" validate:"min=1,max=30"`
	ReminderCheckInterval time.Duration `mapstructure:"REMINDER_CHECK_INTERVAL" validate:"min=1s"`
	EnableScheduler       bool          `mapstructure:"ENABLE_SCHEDULER"`
	AdminUserIDs          []int64       `mapstructure:"-"`
	Debug                 bool          `mapstructure:"DEBUG"`
	LogFile               string        `mapstructure:"LOG_FILE"`

	location *time.Location
}

var keys = []string{
	"TELEGRAM_BOT_TOKEN", "DB_TYPE", "DB_PATH", "DATABASE_URL", "DATASET_PATH",
	"TIMEZONE", "REMINDER_DAYS", "REMINDER_CHECK_INTERVAL", "ENABLE_SCHEDULER",
	"ADMIN_USER_IDS", "DEBUG", "LOG_FILE",
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "data/geostreak.db")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("REMINDER_DAYS", 7)
	v.SetDefault("REMINDER_CHECK_INTERVAL", time.Minute)
	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("DEBUG", false)
}

// Load reads the configuration. A missing .env or YAML file is not an
// error; configFile may be empty.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	ids, err := parseIDs(v.GetString("ADMIN_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminUserIDs = ids

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	return &cfg, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Location is the time zone that defines calendar days
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// DriverName maps DB_TYPE to a database/sql driver name
func (c *Config) DriverName() string {
	if c.DBType == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// DataSource returns the DSN for DriverName
func (c *Config) DataSource() string {
	if c.DBType == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}
