package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"fitts-go/internal/models"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// current holds the active configuration. The file watcher swaps it on
// reload while request goroutines read it.
var current atomic.Pointer[Config]

// Get returns the active configuration, or nil before Init or Set.
func Get() *Config {
	return current.Load()
}

// Set replaces the active configuration.
func Set(c *Config) {
	current.Store(c)
}

// Config struct is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Experiment ExperimentConfig `mapstructure:"experiment"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
	// StartRateLimit caps session starts per client IP per minute.
	StartRateLimit uint `mapstructure:"start_rate_limit"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ExperimentConfig holds the trial design and session settings.
type ExperimentConfig struct {
	DesignsFile    string        `mapstructure:"designs_file"`
	DefaultDesign  string        `mapstructure:"default_design"`
	FeedbackDelay  time.Duration `mapstructure:"feedback_delay"`
	ExportDir      string        `mapstructure:"export_dir"`
	ParticipantIDs string        `mapstructure:"participant_ids"`
	Design         models.Design `mapstructure:"design"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "")
	v.SetDefault("server.start_rate_limit", 10)

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "debug")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Experiment defaults
	v.SetDefault("experiment.designs_file", "config/designs.yaml")
	v.SetDefault("experiment.default_design", "")
	v.SetDefault("experiment.feedback_delay", "1s")
	v.SetDefault("experiment.export_dir", "exports")
	v.SetDefault("experiment.participant_ids", "short")
	v.SetDefault("experiment.design.name", "standard")
	v.SetDefault("experiment.design.sizes", []float64{30, 60, 90})
	v.SetDefault("experiment.design.distances", []float64{100, 200, 300})
	v.SetDefault("experiment.design.directions", []string{"left", "right"})
	v.SetDefault("experiment.design.repetitions", 10)
}

// Load reads config/config.yaml under projectRoot, layered over the
// defaults and under FITTS_* environment variables.
func Load(projectRoot string) (*Config, *viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("FITTS") // e.g., FITTS_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// validate checks the decoded settings and normalizes design directions
// to lower case, matching the design catalogue.
func (c *Config) validate() error {
	if c.Experiment.FeedbackDelay < 0 {
		return fmt.Errorf("experiment.feedback_delay must not be negative")
	}
	dirs := c.Experiment.Design.Directions
	for i, d := range dirs {
		dir, err := models.ParseDirection(string(d))
		if err != nil {
			return fmt.Errorf("experiment.design: %w", err)
		}
		dirs[i] = dir
	}
	return nil
}

// Init loads the configuration, makes it the active one and watches the
// file for changes.
func Init(projectRoot string, log *zap.Logger) error {
	cfg, v, err := Load(projectRoot)
	if err != nil {
		return err
	}
	Set(cfg)

	// Set up a watch for configuration changes for hot-reloading
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		if err := next.validate(); err != nil {
			log.Error("Rejected reloaded configuration", zap.Error(err))
			return
		}
		Set(next)
	})
	v.WatchConfig()

	log.Info("Configuration loaded successfully", zap.String("file", v.ConfigFileUsed()))
	return nil
}
