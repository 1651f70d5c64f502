package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Loop      LoopConfig      `toml:"loop"`
	Teardown  TeardownConfig  `toml:"teardown"`
	Scene     SceneConfig     `toml:"scene"`
	Scripting ScriptingConfig `toml:"scripting"`
	Database  DatabaseConfig  `toml:"database"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logging   LoggingConfig   `toml:"logging"`
	Profile   ProfileConfig   `toml:"profile"`
	StartTime int64           // set at boot, not from config
}

type LoopConfig struct {
	TickRate    time.Duration `toml:"tick_rate"`
	TimeScale   float64       `toml:"time_scale"` // 1.0 = real time
	StartPaused bool          `toml:"start_paused"`
}

type TeardownConfig struct {
	// StrictHooks aborts an entity's remaining teardown steps on the first
	// failing hook instead of isolating the failure.
	StrictHooks bool `toml:"strict_hooks"`
}

type SceneConfig struct {
	PrefabFile string `toml:"prefab_file"` // empty = start with an empty scene
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables diagnostics persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushEvery      int           `toml:"flush_every"` // ticks between diagnostics flushes
}

type MetricsConfig struct {
	Namespace     string `toml:"namespace"`
	ListenAddress string `toml:"listen_address"` // empty = no HTTP exposition
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Path string `toml:"path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Loop.TickRate <= 0 {
		return fmt.Errorf("loop.tick_rate must be positive, got %s", c.Loop.TickRate)
	}
	if c.Loop.TimeScale < 0 {
		return fmt.Errorf("loop.time_scale must not be negative, got %g", c.Loop.TimeScale)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("profile.mode %q: want cpu, mem or empty", c.Profile.Mode)
	}
	if c.Database.FlushEvery <= 0 {
		c.Database.FlushEvery = 1
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Loop: LoopConfig{
			TickRate:  16 * time.Millisecond,
			TimeScale: 1.0,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			FlushEvery:      60,
		},
		Metrics: MetricsConfig{
			Namespace: "scenecore",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}
