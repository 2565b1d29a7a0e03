package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface is the read side of the configuration plus the setters the CLI uses to apply
// flag overrides.
type Interface interface {
	Logger() LoggerConfig
	Snapshot() SnapshotConfig
	Browser() BrowserConfig
	Output() OutputConfig

	SetSnapshotPreciseVisibility(bool)
	SetSnapshotConcurrency(int)
	SetBrowserHeadless(bool)
	SetBrowserNavigationTimeout(time.Duration)
	SetOutputFormat(string)
	SetOutputPretty(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	SnapshotCfg SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	OutputCfg   OutputConfig   `mapstructure:"output" yaml:"output"`
}

var _ Interface = (*Config)(nil)

// --- Getters ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Snapshot() SnapshotConfig { return c.SnapshotCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Output() OutputConfig     { return c.OutputCfg }

// --- Setters ---

func (c *Config) SetSnapshotPreciseVisibility(b bool) { c.SnapshotCfg.PreciseVisibility = b }
func (c *Config) SetSnapshotConcurrency(n int)        { c.SnapshotCfg.Concurrency = n }
func (c *Config) SetBrowserHeadless(b bool)           { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserNavigationTimeout(d time.Duration) {
	c.BrowserCfg.NavigationTimeout = d
}
func (c *Config) SetOutputFormat(f string) { c.OutputCfg.Format = f }
func (c *Config) SetOutputPretty(b bool)   { c.OutputCfg.Pretty = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color of each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// SnapshotConfig controls how documents are classified.
type SnapshotConfig struct {
	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`
	// PreciseVisibility enables the style-tree visibility query for offline documents.
	// When false, classification relies on estimated geometry and computed styles.
	PreciseVisibility bool     `mapstructure:"precise_visibility" yaml:"precise_visibility"`
	ExcludedIDs       []string `mapstructure:"excluded_ids" yaml:"excluded_ids"`
	// Concurrency bounds batch runs.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// BrowserConfig holds settings for the headless browser used for live pages.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// OutputConfig selects how results are written.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // json or text
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagesnap")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Snapshot --
	v.SetDefault("snapshot.viewport_width", 1280)
	v.SetDefault("snapshot.viewport_height", 720)
	v.SetDefault("snapshot.precise_visibility", true)
	v.SetDefault("snapshot.excluded_ids", []string{"__playwright_runner__"})
	v.SetDefault("snapshot.concurrency", 4)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.post_load_wait", "500ms")

	// -- Output --
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pretty", false)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.SnapshotCfg.ViewportWidth <= 0 || c.SnapshotCfg.ViewportHeight <= 0 {
		return fmt.Errorf("snapshot.viewport_width and snapshot.viewport_height must be positive")
	}
	if c.SnapshotCfg.Concurrency <= 0 {
		return fmt.Errorf("snapshot.concurrency must be a positive integer")
	}
	if c.BrowserCfg.NavigationTimeout < 0 {
		return fmt.Errorf("browser.navigation_timeout must not be negative")
	}
	if c.BrowserCfg.PostLoadWait < 0 {
		return fmt.Errorf("browser.post_load_wait must not be negative")
	}
	switch strings.ToLower(c.OutputCfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("output.format must be json or text, got %q", c.OutputCfg.Format)
	}
	switch strings.ToLower(c.LoggerCfg.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.LoggerCfg.Format)
	}
	return nil
}

// EnvPrefix prefixes environment overrides: PAGESNAP_SNAPSHOT_CONCURRENCY sets
// snapshot.concurrency.
const EnvPrefix = "PAGESNAP"

// BindEnv makes every key with a default overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
