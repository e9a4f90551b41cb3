// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Bot      BotConfig      `mapstructure:"bot"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig holds the chat socket server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// BotConfig holds bot identity configuration.
type BotConfig struct {
	// Variant selects which game the bot runs: "lowcard" or "sicbo".
	Variant string `mapstructure:"variant"`
	// StartingBalance is credited to accounts provisioned on first contact.
	StartingBalance int64 `mapstructure:"starting_balance"`
}

// GameConfig holds the game engine timings and caps.
type GameConfig struct {
	JoinWindow      time.Duration `mapstructure:"join_window"`
	DrawWindow      time.Duration `mapstructure:"draw_window"`
	InterRoundDelay time.Duration `mapstructure:"inter_round_delay"`
	FinishDelay     time.Duration `mapstructure:"finish_delay"`
	MaxBet          int64         `mapstructure:"max_bet"`
	MaxPlayers      int           `mapstructure:"max_players"`
	HouseCutPercent int64         `mapstructure:"house_cut_percent"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, GAME_MAX_BET, BOT_VARIANT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Bot.Variant != "lowcard" && cfg.Bot.Variant != "sicbo" {
		return nil, fmt.Errorf("unknown bot variant %q", cfg.Bot.Variant)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gamebot")
	v.SetDefault("database.name", "gamebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("bot.variant", "lowcard")
	v.SetDefault("bot.starting_balance", 1000)

	v.SetDefault("game.join_window", "30s")
	v.SetDefault("game.draw_window", "20s")
	v.SetDefault("game.inter_round_delay", "5s")
	v.SetDefault("game.finish_delay", "3s")
	v.SetDefault("game.max_bet", 10000)
	v.SetDefault("game.max_players", 200)
	v.SetDefault("game.house_cut_percent", 10)
}
