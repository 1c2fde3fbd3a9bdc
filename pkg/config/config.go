// Package config handles loading and managing imagepress configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imagepress/imagepress/pkg/compress"
)

// Config is the top-level configuration shared by imagepressd and the CLI.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Compression CompressionConfig `yaml:"compression"`
	Events      EventsConfig      `yaml:"events"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string `yaml:"port"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// DatabaseConfig selects the record repository.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres | memory
	URL         string `yaml:"url"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// StorageConfig selects the artifact store. Bucket and the S3 fields are
// ignored by the local backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // local | s3 | gcs
	LocalPath string `yaml:"local_path"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// CompressionConfig controls the engine and its worker pool.
type CompressionConfig struct {
	Engine         string `yaml:"engine"`  // std | vips
	Workers        int    `yaml:"workers"` // 0 means one per CPU
	QueueSize      int    `yaml:"queue_size"`
	QueueTimeout   int    `yaml:"queue_timeout"` // seconds
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxPixels      int    `yaml:"max_pixels"` // width*height decode bound
}

// EventsConfig enables completion events. An empty RedisURL disables them.
type EventsConfig struct {
	RedisURL string `yaml:"redis_url"`
	Channel  string `yaml:"channel"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Accepted values for the selector fields.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Driver:      DriverPostgres,
			URL:         "postgres://localhost:5432/imagepress?sslmode=disable",
			AutoMigrate: true,
		},
		Storage: StorageConfig{
			Backend:   BackendLocal,
			LocalPath: "/tmp/imagepress-data",
		},
		Compression: CompressionConfig{
			Engine:         compress.DefaultEngine,
			QueueSize:      64,
			QueueTimeout:   30,
			MaxUploadBytes: 10 << 20,
			MaxPixels:      compress.DefaultMaxPixels,
		},
		Events: EventsConfig{
			Channel: "imagepress.events",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from well-known environment variables. Unset or
// empty variables leave the field alone.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"PORT":                  &c.Server.Port,
		"DATABASE_DRIVER":       &c.Database.Driver,
		"DATABASE_URL":          &c.Database.URL,
		"STORAGE_BACKEND":       &c.Storage.Backend,
		"LOCAL_STORAGE_PATH":    &c.Storage.LocalPath,
		"STORAGE_PREFIX":        &c.Storage.Prefix,
		"S3_REGION":             &c.Storage.Region,
		"S3_ENDPOINT":           &c.Storage.Endpoint,
		"AWS_ACCESS_KEY_ID":     &c.Storage.AccessKey,
		"AWS_SECRET_ACCESS_KEY": &c.Storage.SecretKey,
		"COMPRESSION_ENGINE":    &c.Compression.Engine,
		"REDIS_URL":             &c.Events.RedisURL,
		"EVENTS_CHANNEL":        &c.Events.Channel,
		"LOG_LEVEL":             &c.Log.Level,
		"LOG_FORMAT":            &c.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Either bucket variable selects the bucket; GCS_BUCKET wins when both
	// are set since it also implies the backend.
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}

	ints := map[string]*int{
		"SHUTDOWN_TIMEOUT":    &c.Server.ShutdownTimeout,
		"COMPRESSION_WORKERS": &c.Compression.Workers,
		"QUEUE_SIZE":          &c.Compression.QueueSize,
		"QUEUE_TIMEOUT":       &c.Compression.QueueTimeout,
		"MAX_PIXELS":          &c.Compression.MaxPixels,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("env MAX_UPLOAD_BYTES: %w", err)
		}
		c.Compression.MaxUploadBytes = n
	}
	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env AUTO_MIGRATE: %w", err)
		}
		c.Database.AutoMigrate = b
	}
	return nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of postgres, memory", c.Database.Driver))
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalPath == "" {
			errs = append(errs, errors.New("storage.local_path is required for the local backend"))
		}
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of local, s3, gcs", c.Storage.Backend))
	}

	if c.Compression.Workers < 0 {
		errs = append(errs, errors.New("compression.workers must not be negative"))
	}
	if c.Compression.QueueSize <= 0 {
		errs = append(errs, errors.New("compression.queue_size must be positive"))
	}
	if c.Compression.QueueTimeout <= 0 {
		errs = append(errs, errors.New("compression.queue_timeout must be positive"))
	}
	if c.Compression.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("compression.max_upload_bytes must be positive"))
	}
	if c.Compression.MaxPixels <= 0 {
		errs = append(errs, errors.New("compression.max_pixels must be positive"))
	}

	return errors.Join(errs...)
}

// WorkerCount resolves the configured worker count, defaulting to one per CPU.
func (c CompressionConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// QueueWait is QueueTimeout as a duration.
func (c CompressionConfig) QueueWait() time.Duration {
	return time.Duration(c.QueueTimeout) * time.Second
}

// ShutdownWait is ShutdownTimeout as a duration.
func (c ServerConfig) ShutdownWait() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// FindConfigFile looks for .imagepress/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".imagepress", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Resolve loads the config at path, or the nearest .imagepress/config.yaml
// above the working directory when path is empty, then applies environment
// overrides and validates the result.
func Resolve(path string) (*Config, error) {
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = FindConfigFile(wd)
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
