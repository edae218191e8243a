// Package config loads slotdb settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stevemurr/slotdb/docdb"
	"github.com/stevemurr/slotdb/store"
)

// S3 holds the settings of the "s3" backend.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Config is the full runtime configuration.
type Config struct {
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
	LogLevel       string `yaml:"log_level"`

	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
	S3      S3     `yaml:"s3"`

	// Ref is the slot key holding the document.
	Ref     string `yaml:"ref"`
	IDField string `yaml:"id_field"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           "8080",
		AllowedOrigins: "*",
		LogLevel:       "info",
		Backend:        "json",
		DataDir:        "./data",
		Ref:            "slotdb",
		IDField:        string(docdb.FieldID),
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	env("HOST", &c.Host)
	env("PORT", &c.Port)
	env("ALLOWED_ORIGINS", &c.AllowedOrigins)
	env("LOG_LEVEL", &c.LogLevel)
	env("DATA_DIR", &c.DataDir)
	env("STORE_BACKEND", &c.Backend)
	env("SLOTDB_REF", &c.Ref)
	env("SLOTDB_ID_FIELD", &c.IDField)
	env("S3_BUCKET", &c.S3.Bucket)
	env("S3_PREFIX", &c.S3.Prefix)
	env("S3_REGION", &c.S3.Region)
	env("S3_ENDPOINT", &c.S3.Endpoint)
	env("S3_ACCESS_KEY", &c.S3.AccessKey)
	env("S3_SECRET_KEY", &c.S3.SecretKey)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := docdb.ParseIdentifierField(c.IDField); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Backend {
	case "", "json", "sqlite", "memory":
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 backend requires s3.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend: %q", c.Backend))
	}
	if c.Ref == "" {
		errs = append(errs, errors.New("ref must not be empty"))
	} else if strings.ContainsAny(c.Ref, `/\`) {
		errs = append(errs, fmt.Errorf("ref %q must not contain a path separator", c.Ref))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// IdentifierField returns the validated identifier field.
func (c Config) IdentifierField() docdb.IdentifierField {
	f, err := docdb.ParseIdentifierField(c.IDField)
	if err != nil {
		return docdb.FieldID
	}
	return f
}

// OpenSlot builds the configured backing store.
func (c Config) OpenSlot(ctx context.Context) (store.Slot, error) {
	if c.Backend == "s3" {
		return store.NewS3Store(ctx, store.S3Config{
			Bucket:    c.S3.Bucket,
			Prefix:    c.S3.Prefix,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		})
	}
	return store.New(c.Backend, c.DataDir)
}
