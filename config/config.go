package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	// EnvBaseDir selects the directory every data path is derived from.
	EnvBaseDir = "PROJECT_PATH"
	// EnvConfigFile optionally points at a YAML file with the settings below.
	EnvConfigFile = "PREDICT_CONFIG"
)

type ErrorPolicy string

const (
	// PolicyAbort stops the whole batch on the first failing file.
	PolicyAbort ErrorPolicy = "abort"
	// PolicyIsolate records the failure on the file's row and keeps going.
	PolicyIsolate ErrorPolicy = "isolate"
)

type CollisionPolicy string

const (
	CollisionOverwrite CollisionPolicy = "overwrite"
	CollisionUnique    CollisionPolicy = "unique"
	CollisionFail      CollisionPolicy = "fail"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type InputConfig struct {
	Encoding string `yaml:"encoding"`
}

type InferenceConfig struct {
	Batch   bool        `yaml:"batch"`
	OnError ErrorPolicy `yaml:"on_error"`
}

type ReportConfig struct {
	OnCollision CollisionPolicy `yaml:"on_collision"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	ColumnBindings int `yaml:"column_bindings"`
}

// Config is the resolved configuration of one prediction run. Directory
// fields are absolute or relative to the working directory once Resolve has
// been applied.
type Config struct {
	BaseDir        string `yaml:"-"`
	ModelsDir      string `yaml:"models_dir"`
	TestDir        string `yaml:"test_dir"`
	PredictionsDir string `yaml:"predictions_dir"`
	ModelExt       string `yaml:"model_ext"`
	InputExt       string `yaml:"input_ext"`

	Log       LogConfig       `yaml:"log"`
	Input     InputConfig     `yaml:"input"`
	Inference InferenceConfig `yaml:"inference"`
	Report    ReportConfig    `yaml:"report"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
}

func Default() Config {
	return Config{
		ModelsDir:      filepath.Join("data", "models"),
		TestDir:        filepath.Join("data", "test"),
		PredictionsDir: filepath.Join("data", "predictions"),
		ModelExt:       ".pkl",
		InputExt:       ".json",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Input:     InputConfig{Encoding: "utf-8"},
		Inference: InferenceConfig{OnError: PolicyAbort},
		Report:    ReportConfig{OnCollision: CollisionOverwrite},
		Cache:     CacheConfig{ColumnBindings: 64},
	}
}

// Load builds the run configuration from the environment.
func Load() (Config, error) {
	base := os.Getenv(EnvBaseDir)
	if base == "" {
		base = "."
	}

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg = cfg.Resolve(base)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// An empty file leaves the defaults in place.
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Resolve roots every relative data path at base.
func (c Config) Resolve(base string) Config {
	c.BaseDir = base
	c.ModelsDir = under(base, c.ModelsDir)
	c.TestDir = under(base, c.TestDir)
	c.PredictionsDir = under(base, c.PredictionsDir)
	if c.Database.Path != "" {
		c.Database.Path = under(base, c.Database.Path)
	}
	if c.Log.File != "" {
		c.Log.File = under(base, c.Log.File)
	}
	return c
}

func under(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (c Config) Validate() error {
	var problems []string
	if !strings.HasPrefix(c.ModelExt, ".") {
		problems = append(problems, fmt.Sprintf("model_ext %q must start with a dot", c.ModelExt))
	}
	if !strings.HasPrefix(c.InputExt, ".") {
		problems = append(problems, fmt.Sprintf("input_ext %q must start with a dot", c.InputExt))
	}
	switch c.Inference.OnError {
	case PolicyAbort, PolicyIsolate:
	default:
		problems = append(problems, fmt.Sprintf("inference.on_error %q is not one of abort, isolate", c.Inference.OnError))
	}
	switch c.Report.OnCollision {
	case CollisionOverwrite, CollisionUnique, CollisionFail:
	default:
		problems = append(problems, fmt.Sprintf("report.on_collision %q is not one of overwrite, unique, fail", c.Report.OnCollision))
	}
	if c.Cache.ColumnBindings <= 0 {
		problems = append(problems, "cache.column_bindings must be positive")
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
