// Package config loads kinvault settings from defaults, an optional TOML
// file and KINVAULT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dukerupert/kinvault/internal/logging"
)

const (
	defaultDBPath   = "kinvault.db"
	defaultLogLevel = "info"
	defaultRegion   = "us-east-1"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Logging    LoggingConfig    `toml:"logging"`
	S3         S3Config         `toml:"s3"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type EncryptionConfig struct {
	// Key is the secret the field key is derived from. Empty means the
	// built-in development default.
	Key string `toml:"key"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// Enabled reports whether enough is configured to reach a bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
}

func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: defaultDBPath},
		Logging:  LoggingConfig{Level: defaultLogLevel},
		S3:       S3Config{Region: defaultRegion},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg, opts)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Database   *rawDatabase   `toml:"database"`
	Encryption *rawEncryption `toml:"encryption"`
	Logging    *rawLogging    `toml:"logging"`
	S3         *rawS3         `toml:"s3"`
}

type rawDatabase struct {
	Path *string `toml:"path"`
}

type rawEncryption struct {
	Key *string `toml:"key"`
}

type rawLogging struct {
	Level *string `toml:"level"`
}

type rawS3 struct {
	Endpoint  *string `toml:"endpoint"`
	Bucket    *string `toml:"bucket"`
	Region    *string `toml:"region"`
	AccessKey *string `toml:"access_key"`
	SecretKey *string `toml:"secret_key"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	if raw.Database != nil {
		setString(raw.Database.Path, &cfg.Database.Path)
	}
	if raw.Encryption != nil {
		setString(raw.Encryption.Key, &cfg.Encryption.Key)
	}
	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
	}
	if raw.S3 != nil {
		setString(raw.S3.Endpoint, &cfg.S3.Endpoint)
		setString(raw.S3.Bucket, &cfg.S3.Bucket)
		setString(raw.S3.Region, &cfg.S3.Region)
		setString(raw.S3.AccessKey, &cfg.S3.AccessKey)
		setString(raw.S3.SecretKey, &cfg.S3.SecretKey)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) {
	for key, target := range map[string]*string{
		"KINVAULT_DB_PATH":        &cfg.Database.Path,
		"KINVAULT_ENCRYPTION_KEY": &cfg.Encryption.Key,
		"KINVAULT_LOG_LEVEL":      &cfg.Logging.Level,
		"KINVAULT_S3_ENDPOINT":    &cfg.S3.Endpoint,
		"KINVAULT_S3_BUCKET":      &cfg.S3.Bucket,
		"KINVAULT_S3_REGION":      &cfg.S3.Region,
		"KINVAULT_S3_ACCESS_KEY":  &cfg.S3.AccessKey,
		"KINVAULT_S3_SECRET_KEY":  &cfg.S3.SecretKey,
	} {
		if value, ok := lookupEnv(opts, key); ok {
			*target = value
		}
	}
}

func validate(cfg Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path must not be empty", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "KINVAULT_CONFIG"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	configHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME")
	if !ok || configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve user home: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "kinvault", "config.toml"), nil
}
