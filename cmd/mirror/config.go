package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jrhy/parchment"
	"github.com/jrhy/parchment/persist/file"
	s3Persist "github.com/jrhy/parchment/persist/s3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the mirror configuration file.
type Config struct {
	// Store is a directory, or s3://bucket/prefix, holding snapshots.
	Store string `yaml:"store"`
	// Region of the S3 store, if not taken from the environment.
	Region   string `yaml:"region,omitempty"`
	LogLevel string `yaml:"logLevel"`
	// CacheSize bounds the snapshot node cache.
	CacheSize int `yaml:"cacheSize"`
}

func DefaultConfig() Config {
	return Config{
		Store:     ".mirror",
		LogLevel:  "info",
		CacheSize: 4096,
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// leaves the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.CacheSize <= 0 {
		return cfg, fmt.Errorf("config %s: cacheSize must be positive", path)
	}
	return cfg, nil
}

func (cfg Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = "console"
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Persist opens the configured snapshot store.
func (cfg Config) Persist() (parchment.Persist, error) {
	rest, isS3 := strings.CutPrefix(cfg.Store, "s3://")
	if !isS3 {
		p, err := file.NewPersistForPath(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return p, nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("open store %s: no bucket", cfg.Store)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store, err)
	}
	return s3Persist.NewPersist(s3.New(sess), bucket, prefix), nil
}
