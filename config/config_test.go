package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeFS struct {
	files  map[string]bool
	loaded []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }

func (f *fakeFS) LoadEnv(path string) error {
	f.loaded = append(f.loaded, path)
	return nil
}

type schedulerSection struct {
	BetweenNodes time.Duration `mapstructure:"between_nodes"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Scheduler     schedulerSection `mapstructure:"scheduler"`
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()
	if cfg.Name != "flowgen" {
		t.Errorf("expected default name flowgen, got %q", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
	}
	if cfg.Logging.ServiceName != "flowgen" {
		t.Errorf("expected logging service name to follow config name, got %q", cfg.Logging.ServiceName)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug {
		t.Error("expected debug=false for production")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"bad environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment"},
		{"bad log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ServiceConfig{}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestResolver_PrefersExplicitPaths(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{"./config.yml": true, "./.env": true}}
	r := &Resolver{FileSystem: fs}

	got := r.Resolve("flowgen", LoaderConfig{ConfigFile: "/etc/flowgen.yml"})
	if got.ConfigFile != "/etc/flowgen.yml" {
		t.Errorf("expected explicit config file, got %q", got.ConfigFile)
	}
	if got.EnvFile != "./.env" {
		t.Errorf("expected discovered env file, got %q", got.EnvFile)
	}
}

func TestResolver_SearchOrder(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{
		"./cmd/flowgen/config.yml": true,
		"./config.yml":             true,
	}}
	got := (&Resolver{FileSystem: fs}).Resolve("flowgen", LoaderConfig{})
	if got.ConfigFile != "./cmd/flowgen/config.yml" {
		t.Errorf("expected cmd config to win, got %q", got.ConfigFile)
	}
	if got.EnvFile != "" {
		t.Errorf("expected no env file, got %q", got.EnvFile)
	}
}

func TestLoadConfig_YAMLDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: flowgen
environment: staging
logging:
  level: debug
  format: json
scheduler:
  between_nodes: 300ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FLOWGEN_SCHEDULER_BETWEEN_NODES", "50ms")

	var cfg testConfig
	err := LoadConfig("flowgen", &cfg,
		WithConfigFile(path),
		WithFileSystem(&fakeFS{files: map[string]bool{}}),
		WithDefaults(map[string]any{"scheduler.run_timeout": "5m"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected staging, got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Scheduler.BetweenNodes != 50*time.Millisecond {
		t.Errorf("expected env override 50ms, got %s", cfg.Scheduler.BetweenNodes)
	}
	if cfg.Scheduler.RunTimeout != 5*time.Minute {
		t.Errorf("expected default 5m, got %s", cfg.Scheduler.RunTimeout)
	}
}

func TestLoadConfig_LoadsEnvFile(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{"./.env": true}}
	var cfg testConfig
	if err := LoadConfig("flowgen", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != "./.env" {
		t.Fatalf("expected .env to be loaded, got %v", fs.loaded)
	}
}

func TestLoadConfig_ValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("environment: qa\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var cfg testConfig
	err := LoadConfig("flowgen", &cfg, WithConfigFile(path), WithFileSystem(&fakeFS{}))
	if err == nil || !strings.Contains(err.Error(), "config.environment") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
