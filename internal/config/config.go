package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/funny-ai-box/paraluxflow/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Tasks     TasksConfig     `yaml:"tasks"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type FetcherConfig struct {
	ProxyURL       string `yaml:"proxy_url"`
	FeedTimeout    string `yaml:"feed_timeout"`
	ContentTimeout string `yaml:"content_timeout"`
}

type SchedulerConfig struct {
	SyncInterval string `yaml:"sync_interval"`
	Enabled      bool   `yaml:"enabled"`
}

type TasksConfig struct {
	// StaleLockTimeout controls when a crashed worker's article lock
	// becomes reclaimable.
	StaleLockTimeout string `yaml:"stale_lock_timeout"`
	// ClaimTimeout controls when a claimed hot-topic task with missing
	// platform results is marked failed.
	ClaimTimeout string `yaml:"claim_timeout"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5466
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Fetcher.FeedTimeout == "" {
		cfg.Fetcher.FeedTimeout = "30s"
	}
	if cfg.Fetcher.ContentTimeout == "" {
		cfg.Fetcher.ContentTimeout = "15s"
	}
	if cfg.Scheduler.SyncInterval == "" {
		cfg.Scheduler.SyncInterval = "30m"
	}
	if cfg.Tasks.StaleLockTimeout == "" {
		cfg.Tasks.StaleLockTimeout = "10m"
	}
	if cfg.Tasks.ClaimTimeout == "" {
		cfg.Tasks.ClaimTimeout = "6h"
	}

	return cfg, nil
}
