package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBaseDir, base)
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseDir != base {
		t.Fatalf("expected base %s, got %s", base, cfg.BaseDir)
	}
	if want := filepath.Join(base, "data", "models"); cfg.ModelsDir != want {
		t.Fatalf("expected models dir %s, got %s", want, cfg.ModelsDir)
	}
	if want := filepath.Join(base, "data", "test"); cfg.TestDir != want {
		t.Fatalf("expected test dir %s, got %s", want, cfg.TestDir)
	}
	if want := filepath.Join(base, "data", "predictions"); cfg.PredictionsDir != want {
		t.Fatalf("expected predictions dir %s, got %s", want, cfg.PredictionsDir)
	}
	if cfg.ModelExt != ".pkl" || cfg.InputExt != ".json" {
		t.Fatalf("unexpected extensions: %s %s", cfg.ModelExt, cfg.InputExt)
	}
	if cfg.Inference.OnError != PolicyAbort {
		t.Fatalf("expected abort policy, got %s", cfg.Inference.OnError)
	}
}

func TestLoadDefaultBaseIsWorkingDir(t *testing.T) {
	t.Setenv(EnvBaseDir, "")
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModelsDir != filepath.Join(".", "data", "models") {
		t.Fatalf("unexpected models dir: %s", cfg.ModelsDir)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "predict.yaml")
	content := `
test_dir: inbox
model_ext: .model
inference:
  batch: true
  on_error: isolate
report:
  on_collision: unique
database:
  path: history.db
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvBaseDir, base)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TestDir != filepath.Join(base, "inbox") {
		t.Fatalf("unexpected test dir: %s", cfg.TestDir)
	}
	if cfg.ModelsDir != filepath.Join(base, "data", "models") {
		t.Fatalf("models dir should keep its default, got %s", cfg.ModelsDir)
	}
	if cfg.ModelExt != ".model" || cfg.InputExt != ".json" {
		t.Fatalf("unexpected extensions: %s %s", cfg.ModelExt, cfg.InputExt)
	}
	if !cfg.Inference.Batch || cfg.Inference.OnError != PolicyIsolate {
		t.Fatalf("unexpected inference config: %+v", cfg.Inference)
	}
	if cfg.Report.OnCollision != CollisionUnique {
		t.Fatalf("unexpected collision policy: %s", cfg.Report.OnCollision)
	}
	if cfg.Database.Path != filepath.Join(base, "history.db") {
		t.Fatalf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Log.Level != "debug" || cfg.Log.MaxBackups != 3 {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvBaseDir, t.TempDir())
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvBaseDir, base)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Report.OnCollision != CollisionOverwrite {
		t.Fatalf("expected default collision policy, got %s", cfg.Report.OnCollision)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad model ext", mutate: func(c *Config) { c.ModelExt = "pkl" }, wantErr: "model_ext"},
		{name: "bad input ext", mutate: func(c *Config) { c.InputExt = "" }, wantErr: "input_ext"},
		{name: "bad error policy", mutate: func(c *Config) { c.Inference.OnError = "skip" }, wantErr: "on_error"},
		{name: "bad collision policy", mutate: func(c *Config) { c.Report.OnCollision = "append" }, wantErr: "on_collision"},
		{name: "bad cache size", mutate: func(c *Config) { c.Cache.ColumnBindings = 0 }, wantErr: "column_bindings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveKeepsAbsolutePaths(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "models")
	cfg := Default()
	cfg.ModelsDir = abs
	cfg = cfg.Resolve("base")
	if cfg.ModelsDir != abs {
		t.Fatalf("expected %s, got %s", abs, cfg.ModelsDir)
	}
	if cfg.TestDir != filepath.Join("base", "data", "test") {
		t.Fatalf("unexpected test dir: %s", cfg.TestDir)
	}
}
