package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is dstore's on-disk configuration, loaded from a YAML file via
// --config. It picks one backend kind and the options that backend
// needs; the other backend sections are ignored.
type Config struct {
	// Backend selects which backend section below to use: "file",
	// "memory", or "remote".
	Backend string `yaml:"backend"`

	File struct {
		Path string `yaml:"path"`
	} `yaml:"file"`

	Remote struct {
		Addr           string `yaml:"addr"`
		MaxReadRetries int    `yaml:"max_read_retries"`
	} `yaml:"remote"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	return cfg, nil
}
