package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kincore/internal/core"
	"kincore/internal/filterstore"
)

// Config is the kinquery configuration file. Every field may be left out;
// environment variables fill storage gaps the same way the library does.
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Filters  FiltersConfig `yaml:"filters"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// FiltersConfig selects where the filter library document lives.
type FiltersConfig struct {
	Driver  string   `yaml:"driver"`
	Root    string   `yaml:"root"`
	Library string   `yaml:"library"`
	S3      S3Config `yaml:"s3"`
}

// S3Config mirrors filterstore.S3Config for YAML.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// MetricsConfig enables the optional metrics exporters.
type MetricsConfig struct {
	// Textfile writes Prometheus metrics in text exposition format on exit,
	// for node_exporter's textfile collector.
	Textfile string `yaml:"textfile"`
	Expvar   bool   `yaml:"expvar"`
}

const defaultLibraryKey = "library.yaml"

func defaultConfig() Config {
	return Config{
		Storage:  StorageConfig{Driver: envOr("KINCORE_STORAGE_DRIVER", string(core.StorageSQLite)), Path: os.Getenv("KINCORE_SQLITE_PATH"), DSN: os.Getenv("KINCORE_POSTGRES_DSN")},
		Filters:  FiltersConfig{Driver: envOr("KINCORE_FILTERSTORE_DRIVER", string(filterstore.DriverFilesystem)), Root: os.Getenv("KINCORE_FILTERSTORE_FS_ROOT"), Library: defaultLibraryKey},
		LogLevel: "warn",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports unsupported driver names and log levels.
func (c Config) Validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch filterstore.Driver(c.Filters.Driver) {
	case filterstore.DriverFilesystem, filterstore.DriverMemory:
	case filterstore.DriverS3:
		if c.Filters.S3.Bucket == "" {
			return errors.New("filters.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown filterstore driver %q", c.Filters.Driver)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func (c Config) openFilterStore(ctx context.Context) (filterstore.Store, error) {
	switch filterstore.Driver(c.Filters.Driver) {
	case filterstore.DriverMemory:
		return filterstore.NewMemory(), nil
	case filterstore.DriverS3:
		return filterstore.NewS3(ctx, filterstore.S3Config{
			Bucket:    c.Filters.S3.Bucket,
			Prefix:    c.Filters.S3.Prefix,
			Region:    c.Filters.S3.Region,
			Endpoint:  c.Filters.S3.Endpoint,
			PathStyle: c.Filters.S3.PathStyle,
		})
	default:
		return filterstore.NewFilesystem(c.Filters.Root)
	}
}
