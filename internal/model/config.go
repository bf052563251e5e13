package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreConfig holds settings for the local durable store.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" keeps everything in RAM.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// Telemetry sink kinds.
const (
	SinkLog  = "log"
	SinkNATS = "nats"
	SinkNone = "none"
)

// TelemetryConfig selects where masked analytics events are sent.
type TelemetryConfig struct {
	Sink    string `mapstructure:"sink" yaml:"sink"`
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// DeviceConfig describes the device the app runs on.
type DeviceConfig struct {
	Platform Platform `mapstructure:"platform" yaml:"platform"`

	// Timezone is the IANA zone prompt schedules are planned in. Empty means
	// the host's local zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// NotificationTitle overrides the title of presented prompts.
	NotificationTitle string `mapstructure:"notification_title" yaml:"notification_title"`
}

// Location resolves Timezone.
func (d DeviceConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("device timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// QuestConfig points at the quest configuration to load on startup.
type QuestConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Quest     QuestConfig     `mapstructure:"quest" yaml:"quest"`
}

// configDir returns ~/.config/fusion-prompts, or "." if the home directory
// cannot be determined.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fusion-prompts")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/fusion-prompts/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Path: filepath.Join(configDir(), "prompts.db"),
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Telemetry: TelemetryConfig{
			Sink:    SinkLog,
			Subject: "fusion.telemetry",
		},
		Device: DeviceConfig{
			Platform: PlatformIOS,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.console", def.Log.Console)
	v.SetDefault("telemetry.sink", def.Telemetry.Sink)
	v.SetDefault("telemetry.subject", def.Telemetry.Subject)
	v.SetDefault("device.platform", string(def.Device.Platform))

	v.SetEnvPrefix("FUSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Telemetry.Sink {
	case SinkLog, SinkNATS, SinkNone:
	default:
		return nil, fmt.Errorf("config %s: unknown telemetry sink %q", path, cfg.Telemetry.Sink)
	}
	if cfg.Telemetry.Sink == SinkNATS && cfg.Telemetry.NATSURL == "" {
		return nil, fmt.Errorf("config %s: telemetry.nats_url is required for the nats sink", path)
	}
	if _, err := cfg.Device.Location(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("telemetry", cfg.Telemetry)
	v.Set("device", cfg.Device)
	v.Set("quest", cfg.Quest)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
