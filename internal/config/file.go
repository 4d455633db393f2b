package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML overlay. Fields the file leaves empty
// keep the env-derived defaults; zero sweep durations are ignored, and a
// redis address in the file also replaces the password and db.
type FileConfig struct {
	Dispatch struct {
		Policy              string `yaml:"policy"`
		PendingSweep        *bool  `yaml:"pending_sweep"`
		SweepIntervalSec    int    `yaml:"sweep_interval_sec"`
		SweepAfterSec       int    `yaml:"sweep_after_sec"`
		ProgressIntervalSec *int   `yaml:"progress_interval_sec"`
	} `yaml:"dispatch"`

	Worker struct {
		FilterMode string `yaml:"filter_mode"`
	} `yaml:"worker"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Log struct {
		Level       string `yaml:"level"`
		Development *bool  `yaml:"development"`
	} `yaml:"log"`
}

// ApplyFile overlays the YAML file at path onto cfg. An empty path is
// not an error; the env defaults simply stand. A path that cannot be
// read is an error.
func ApplyFile(cfg *AppConfig, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if file.Dispatch.Policy != "" {
		cfg.DispatchConfig.Policy = file.Dispatch.Policy
	}
	if file.Dispatch.PendingSweep != nil {
		cfg.DispatchConfig.SweepEnabled = *file.Dispatch.PendingSweep
	}
	if file.Dispatch.SweepIntervalSec > 0 {
		cfg.DispatchConfig.SweepInterval = time.Duration(file.Dispatch.SweepIntervalSec) * time.Second
	}
	if file.Dispatch.SweepAfterSec > 0 {
		cfg.DispatchConfig.SweepAfter = time.Duration(file.Dispatch.SweepAfterSec) * time.Second
	}
	if file.Dispatch.ProgressIntervalSec != nil {
		cfg.DispatchConfig.ProgressInterval = time.Duration(*file.Dispatch.ProgressIntervalSec) * time.Second
	}

	if file.Worker.FilterMode != "" {
		cfg.WorkerConfig.FilterMode = file.Worker.FilterMode
	}

	if file.Redis.Addr != "" {
		cfg.RedisConfig.Addr = file.Redis.Addr
		cfg.RedisConfig.Password = file.Redis.Password
		cfg.RedisConfig.DB = file.Redis.DB
	}

	if file.Log.Level != "" {
		cfg.LogConfig.Level = file.Log.Level
	}
	if file.Log.Development != nil {
		cfg.LogConfig.Development = *file.Log.Development
	}

	return nil
}
