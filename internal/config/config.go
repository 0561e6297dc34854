package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full agent configuration: one database per process, a set of
// candidate replicas, the staging directory, retention windows per tier and
// the remote store settings.
type Config struct {
	Database   string            `mapstructure:"database"`
	Replicas   map[string]string `mapstructure:"replicas"`
	StagingDir string            `mapstructure:"staging_dir"`
	Interval   time.Duration     `mapstructure:"interval"`
	Retention  RetentionConfig   `mapstructure:"retention"`
	Runner     RunnerConfig      `mapstructure:"runner"`
	S3         S3Config          `mapstructure:"s3"`
	Log        LogConfig         `mapstructure:"log"`
}

// RetentionConfig holds the per-tier age thresholds beyond which an artifact
// becomes eligible for deletion.
type RetentionConfig struct {
	Local  time.Duration `mapstructure:"local"`
	Remote time.Duration `mapstructure:"remote"`
}

// RunnerConfig selects where the backup tool runs. An empty container name
// means the tool is executed directly on the agent host.
type RunnerConfig struct {
	Container string `mapstructure:"container"`
}

// S3Config holds the remote store connection settings. Endpoint is optional
// and only set for third-party S3 providers.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// LogConfig configures the agent's own log output and rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// New loads configuration from file and environment variables.
// configPath: path to the config file (e.g. "config.yaml"). If empty, looks
// for "config.yaml" in the current directory.
func New(configPath string) (*Config, error) {
	config := new(Config)

	viper.SetDefault("staging_dir", "/var/lib/xbagent/staging")
	viper.SetDefault("interval", "6h")
	viper.SetDefault("retention.local", "24h")
	viper.SetDefault("retention.remote", "720h")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "stdout")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the fields every cycle depends on. Replica lookup itself is
// the resolver's job; here we only reject configs that can never work.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database is required")
	}
	if len(c.Replicas) == 0 {
		return errors.New("at least one replica is required")
	}
	if c.StagingDir == "" {
		return errors.New("staging_dir is required")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.Retention.Local <= 0 || c.Retention.Remote <= 0 {
		return errors.New("retention windows must be positive")
	}
	if c.S3.Bucket == "" {
		return errors.New("s3.bucket is required")
	}
	if c.S3.Region == "" {
		return errors.New("s3.region is required")
	}
	return nil
}
