// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package config loads runtime configuration from a YAML file and
// command-line flags, flags taking precedence.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds all runtime settings.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Audit    AuditConfig    `koanf:"audit"`
	Cache    CacheConfig    `koanf:"cache"`
	Migrate  MigrateConfig  `koanf:"migrate"`
	Nickname NicknameConfig `koanf:"nickname"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Format string `koanf:"format"` // json or text
	Level  string `koanf:"level"`
}

// MongoConfig locates the guild settings database.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// AuditConfig controls the evaluation audit trail.
type AuditConfig struct {
	Mode        string `koanf:"mode"` // off, errors, all
	DatabaseURL string `koanf:"database_url"`
}

// CacheConfig controls the guild document cache.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// MigrateConfig controls legacy bind conversion behavior.
type MigrateConfig struct {
	SaveConverted   bool `koanf:"save_converted"`
	PopLegacyFields bool `koanf:"pop_legacy_fields"`
}

// NicknameConfig controls template resolution.
type NicknameConfig struct {
	Prefix    string `koanf:"prefix"`
	VerifyURL string `koanf:"verify_url"`
}

// Default returns the configuration used when no file or flags are given.
func Default() Config {
	return Config{
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "bindery",
		},
		Audit: AuditConfig{
			Mode: "off",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Migrate: MigrateConfig{
			SaveConverted: true,
		},
		Nickname: NicknameConfig{
			Prefix:    "/",
			VerifyURL: "https://blox.link/verify",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and an
// optional flag set. Later sources override earlier ones.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.Code("CONFIG_INVALID").Wrapf(err, "load flags")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code("CONFIG_INVALID").Wrapf(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no component could act on.
func (c Config) Validate() error {
	switch c.Audit.Mode {
	case "off", "errors", "all":
	default:
		return oops.Code("CONFIG_INVALID").With("mode", c.Audit.Mode).Errorf("audit mode must be off, errors, or all")
	}
	if c.Audit.Mode != "off" && c.Audit.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("audit database_url is required when audit mode is %s", c.Audit.Mode)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("format", c.Log.Format).Errorf("log format must be json or text")
	}
	if c.Cache.TTL < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("cache ttl cannot be negative")
	}
	return nil
}
