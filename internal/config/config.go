// Package config loads the forgeml YAML configuration file.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/trainer"
)

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Training TrainingConfig `yaml:"training"`
	Engine   trainer.Params `yaml:"engine"`
}

// LogConfig configures the zerolog backend. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// StorageConfig configures the artifact database.
type StorageConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	MaxBodyMB int    `yaml:"max_body_mb"`
}

// TrainingConfig holds the defaults for runs that do not specify them.
type TrainingConfig struct {
	TestSplit float64  `yaml:"test_split"`
	Models    []string `yaml:"models"`
	ReportDir string   `yaml:"report_dir"`

	// Workers bounds how many targets the CLI trains concurrently.
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Storage: StorageConfig{
			Path:      "forgeml.db",
			CacheSize: 32,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			MaxBodyMB: 32,
		},
		Training: TrainingConfig{
			TestSplit: 0.2,
			Models:    []string{string(trainer.KindLinear), string(trainer.KindRandomForest), string(trainer.KindGradientBoosting)},
			Workers:   2,
		},
		Engine: trainer.DefaultParams(),
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", err.Error(), c.Log.Level)
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		return errors.NewValidationError("log.max_size_mb", "must be positive", c.Log.MaxSizeMB)
	}
	if c.Log.MaxBackups < 0 {
		return errors.NewValidationError("log.max_backups", "must not be negative", c.Log.MaxBackups)
	}
	if c.Storage.CacheSize < 0 {
		return errors.NewValidationError("storage.cache_size", "must not be negative", c.Storage.CacheSize)
	}
	if c.Server.MaxBodyMB <= 0 {
		return errors.NewValidationError("server.max_body_mb", "must be positive", c.Server.MaxBodyMB)
	}
	if !(c.Training.TestSplit > 0 && c.Training.TestSplit < 1) {
		return errors.NewValidationError("training.test_split", "must be in (0, 1)", c.Training.TestSplit)
	}
	for _, m := range c.Training.Models {
		if _, err := trainer.ParseModelKind(m); err != nil {
			return err
		}
	}
	if c.Training.Workers < 0 {
		return errors.NewValidationError("training.workers", "must not be negative", c.Training.Workers)
	}
	return c.Engine.Validate()
}

// TrainingFor builds a run configuration for target and features using the
// training defaults.
func (c *Config) TrainingFor(target string, features []string) trainer.Config {
	return trainer.Config{
		Target:    target,
		Features:  append([]string(nil), features...),
		TestSplit: c.Training.TestSplit,
		Models:    append([]string(nil), c.Training.Models...),
	}
}
