package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "NOTES"
	configFileName = "config"

	defaultLogLevel            = "info"
	defaultLogFormat           = "text"
	defaultDecryptionBatchSize = 10
)

// Sync target kinds.
const (
	TargetMemory     = "memory"
	TargetFilesystem = "filesystem"
	TargetS3         = "s3"
)

// TargetConfig describes one sync target. Which fields apply depends on
// Kind: Path for filesystem targets, the S3 block for s3 targets.
type TargetConfig struct {
	ID   int    `mapstructure:"id"`
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`

	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// Config holds runtime settings for the gophnotes client.
//
// DatabaseDSN and ResourceDir default to locations inside ProfileDir.
type Config struct {
	ProfileDir          string         `mapstructure:"profile_dir"`
	DatabaseDSN         string         `mapstructure:"database_dsn"`
	ResourceDir         string         `mapstructure:"resource_dir"`
	LogLevel            string         `mapstructure:"log_level"`
	LogFormat           string         `mapstructure:"log_format"`
	DecryptionBatchSize int            `mapstructure:"decryption_batch_size"`
	SyncTargets         []TargetConfig `mapstructure:"sync_targets"`
}

func defaultProfileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gophnotes"
	}
	return filepath.Join(dir, "gophnotes")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ProfileDir = defaultProfileDir()
	c.DatabaseDSN = ""
	c.ResourceDir = ""
	c.LogLevel = defaultLogLevel
	c.LogFormat = defaultLogFormat
	c.DecryptionBatchSize = defaultDecryptionBatchSize
	c.SyncTargets = nil
}

// resolve fills the locations derived from ProfileDir.
func (c *Config) resolve() {
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = filepath.Join(c.ProfileDir, "database.sqlite")
	}
	if c.ResourceDir == "" {
		c.ResourceDir = filepath.Join(c.ProfileDir, "resources")
	}
}

func (c *Config) Validate() error {
	if c.ProfileDir == "" {
		return errors.New("profile_dir must not be empty")
	}
	if c.DecryptionBatchSize <= 0 {
		return fmt.Errorf("decryption_batch_size must be positive, got %d", c.DecryptionBatchSize)
	}

	seen := make(map[int]struct{}, len(c.SyncTargets))
	for _, t := range c.SyncTargets {
		if t.ID <= 0 {
			return fmt.Errorf("sync target id must be positive, got %d", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate sync target id %d", t.ID)
		}
		seen[t.ID] = struct{}{}

		switch t.Kind {
		case TargetMemory:
		case TargetFilesystem:
			if t.Path == "" {
				return fmt.Errorf("sync target %d: path is required", t.ID)
			}
		case TargetS3:
			if t.Bucket == "" {
				return fmt.Errorf("sync target %d: bucket is required", t.ID)
			}
		default:
			return fmt.Errorf("sync target %d: unknown kind %q", t.ID, t.Kind)
		}
	}
	return nil
}

// TargetIDs returns the ids of the configured sync targets in file order.
func (c *Config) TargetIDs() []int {
	ids := make([]int, 0, len(c.SyncTargets))
	for _, t := range c.SyncTargets {
		ids = append(ids, t.ID)
	}
	return ids
}

func (c *Config) Target(id int) (TargetConfig, bool) {
	for _, t := range c.SyncTargets {
		if t.ID == id {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"profile":    "profile_dir",
	"database":   "database_dsn",
	"resources":  "resource_dir",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default <profile>/config.yaml or config.json)")
	fs.String("profile", "", "profile directory")
	fs.String("database", "", "sqlite database path")
	fs.String("resources", "", "resource blob directory")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")
}

// Load builds a Config from defaults, the config file, the environment and
// fs, in increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	var def Config
	def.LoadDefaults()

	v := viper.New()
	v.SetDefault("profile_dir", def.ProfileDir)
	v.SetDefault("database_dsn", def.DatabaseDSN)
	v.SetDefault("resource_dir", def.ResourceDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("decryption_batch_size", def.DecryptionBatchSize)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var configFile string
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(v.GetString("profile_dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
