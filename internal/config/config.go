// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled selects the postgres score and settings stores. When false the
	// server keeps them in memory.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GatewayConfig holds the gRPC event bridge listener settings.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Buffer is the per-subscriber outbound queue length.
	Buffer int `mapstructure:"buffer"`
}

// Addr returns the "host:port" listen address.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// GameConfig holds simulation tuning.
type GameConfig struct {
	// TickRate is the number of fixed simulation steps per second.
	TickRate              int           `mapstructure:"tick_rate"`
	CellSize              float64       `mapstructure:"cell_size"`
	MapWidth              int           `mapstructure:"map_width"`
	MapHeight             int           `mapstructure:"map_height"`
	PoolSize              int           `mapstructure:"pool_size"`
	MaxRounds             int           `mapstructure:"max_rounds"`
	RoundEnemies          int           `mapstructure:"round_enemies"`
	RoundDelay            time.Duration `mapstructure:"round_delay"`
	RespawnDelay          time.Duration `mapstructure:"respawn_delay"`
	BossMilestone         int           `mapstructure:"boss_milestone"`
	BossMinions           int           `mapstructure:"boss_minions"`
	ContactDamage         int           `mapstructure:"contact_damage"`
	Invulnerability       time.Duration `mapstructure:"invulnerability"`
	PathIterationsPerTick int           `mapstructure:"path_iterations_per_tick"`
	RoomSweep             time.Duration `mapstructure:"room_sweep"`
	// ScriptInstructionLimit bounds opcodes per Lua hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// TickInterval returns the duration of one fixed step.
//
// Precondition: TickRate > 0.
func (g GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(g.TickRate)
}

// ContentConfig names the content directories.
type ContentConfig struct {
	Weapons string `mapstructure:"weapons"`
	Enemies string `mapstructure:"enemies"`
	Story   string `mapstructure:"story"`
	Scripts string `mapstructure:"scripts"`
	// Levels may be empty; generated layouts are used then.
	Levels string `mapstructure:"levels"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Game     GameConfig     `mapstructure:"game"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateGateway(c.Gateway),
		validateMetrics(c.Metrics),
		validateGame(c.Game),
		validateContent(c.Content),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGateway(g GatewayConfig) error {
	var errs []string
	if g.Host == "" {
		errs = append(errs, "gateway.host must not be empty")
	}
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("gateway.port must be 1-65535, got %d", g.Port))
	}
	if g.Buffer < 1 {
		errs = append(errs, fmt.Sprintf("gateway.buffer must be >= 1, got %d", g.Buffer))
	}
	return joined(errs)
}

func validateMetrics(m MetricsConfig) error {
	if m.Enabled && m.Addr == "" {
		return errors.New("metrics.addr must not be empty when metrics are enabled")
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	positive := func(name string, v int) {
		if v < 1 {
			errs = append(errs, fmt.Sprintf("game.%s must be >= 1, got %d", name, v))
		}
	}
	positive("tick_rate", g.TickRate)
	positive("pool_size", g.PoolSize)
	positive("max_rounds", g.MaxRounds)
	positive("round_enemies", g.RoundEnemies)
	positive("boss_milestone", g.BossMilestone)
	positive("path_iterations_per_tick", g.PathIterationsPerTick)
	if g.CellSize <= 0 {
		errs = append(errs, fmt.Sprintf("game.cell_size must be > 0, got %v", g.CellSize))
	}
	if g.MapWidth < 8 || g.MapHeight < 6 {
		errs = append(errs, fmt.Sprintf("game.map_width x game.map_height must be at least 8x6, got %dx%d", g.MapWidth, g.MapHeight))
	}
	if g.BossMinions < 0 {
		errs = append(errs, "game.boss_minions must not be negative")
	}
	if g.ContactDamage < 0 {
		errs = append(errs, "game.contact_damage must not be negative")
	}
	nonNegative := func(name string, d time.Duration) {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("game.%s must not be negative", name))
		}
	}
	nonNegative("round_delay", g.RoundDelay)
	nonNegative("respawn_delay", g.RespawnDelay)
	nonNegative("invulnerability", g.Invulnerability)
	if g.RoomSweep <= 0 {
		errs = append(errs, "game.room_sweep must be > 0")
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, "game.script_instruction_limit must not be negative")
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Weapons == "" {
		errs = append(errs, "content.weapons must not be empty")
	}
	if c.Enemies == "" {
		errs = append(errs, "content.enemies must not be empty")
	}
	if c.Story == "" {
		errs = append(errs, "content.story must not be empty")
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with GTIL_ prefix
	v.SetEnvPrefix("GTIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic("config.Default: " + err.Error())
	}
	return cfg
}

// SetDefaults installs every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gtil")
	v.SetDefault("database.password", "gtil")
	v.SetDefault("database.name", "gtil")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 50061)
	v.SetDefault("gateway.buffer", 256)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", "127.0.0.1:9102")

	v.SetDefault("game.tick_rate", 60)
	v.SetDefault("game.cell_size", 32)
	v.SetDefault("game.map_width", 40)
	v.SetDefault("game.map_height", 30)
	v.SetDefault("game.pool_size", 100)
	v.SetDefault("game.max_rounds", 3)
	v.SetDefault("game.round_enemies", 3)
	v.SetDefault("game.round_delay", "2s")
	v.SetDefault("game.respawn_delay", "5s")
	v.SetDefault("game.boss_milestone", 23)
	v.SetDefault("game.boss_minions", 23)
	v.SetDefault("game.contact_damage", 10)
	v.SetDefault("game.invulnerability", "1s")
	v.SetDefault("game.path_iterations_per_tick", 1000)
	v.SetDefault("game.room_sweep", "500ms")
	v.SetDefault("game.script_instruction_limit", 100000)

	v.SetDefault("content.weapons", "content/weapons")
	v.SetDefault("content.enemies", "content/enemies")
	v.SetDefault("content.story", "content/story")
	v.SetDefault("content.scripts", "content/scripts")
	v.SetDefault("content.levels", "content/levels")
}
