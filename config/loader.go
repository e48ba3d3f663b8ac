package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kbukum/flowgen/logger"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FLOWGEN"

// FileSystem abstracts file lookups so tests can run without touching disk.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config.yml and .env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolve returns the explicit paths from opts, falling back to a search of
// the usual locations.
func (r *Resolver) Resolve(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(configCandidates(serviceName))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(envCandidates(serviceName))
	}
	return files
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
}

func envCandidates(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		paths = append(paths,
			fmt.Sprintf("./cmd/%s/%s", serviceName, name),
			"./"+name,
			"../"+name,
		)
	}
	return paths
}

// LoaderConfig holds loader dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	Defaults   map[string]any
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithDefaults registers default values keyed by dotted path. Registering a
// key also makes it overridable from the environment even when the config
// file omits it.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Defaults == nil {
			lc.Defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			lc.Defaults[k] = v
		}
	}
}

// LoadConfig resolves files, merges defaults, YAML and environment, and
// unmarshals into cfg. When cfg implements Defaultable and Validatable those
// hooks run after unmarshalling.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = OSFileSystem{}
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).Resolve(serviceName, lc)
	log := logger.WithComponent("config")

	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	v := viper.New()
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}

	if d, ok := cfg.(Defaultable); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validatable); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("invalid config for %s: %w", serviceName, err)
		}
	}
	return nil
}
