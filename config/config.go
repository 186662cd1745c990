// Package config loads the process configuration: the API credential,
// the stop queries to monitor, label substitution tables and the cache
// backend. Loaded once at startup and immutable afterwards.
package config

import (
	"time"
)

// DefaultRefreshIntervalSeconds applies when refresh_interval_seconds is
// unset.
const DefaultRefreshIntervalSeconds = 180

// PrefixSub rewrites any raw line label starting with Prefix to Label.
type PrefixSub struct {
	Prefix string `yaml:"prefix" validate:"required"`
	Label  string `yaml:"label" validate:"required"`
}

// StopQuery names one agency and the stops to monitor at it. Prefix
// rules are ordered: the first rule whose prefix matches a raw line
// label replaces the whole label, and later rules are not consulted.
type StopQuery struct {
	Agency         string      `yaml:"agency" validate:"required"`
	Stops          []string    `yaml:"stops" validate:"min=1,dive,required"`
	LinePrefixSubs []PrefixSub `yaml:"line_prefix_subs" validate:"dive"`
}

// CacheConfig selects the snapshot store backend.
type CacheConfig struct {
	Backend   string `yaml:"backend" validate:"omitempty,oneof=filesystem memory sqlite postgres"`
	Directory string `yaml:"directory"`
	DSN       string `yaml:"dsn"`
}

// Config is the root configuration structure.
type Config struct {
	APIKey                 string            `yaml:"api_key" validate:"required"`
	RefreshIntervalSeconds int               `yaml:"refresh_interval_seconds" validate:"gte=0"`
	DestinationSubs        map[string]string `yaml:"destination_subs"`
	Stops                  []StopQuery       `yaml:"stops" validate:"min=1,dive"`
	StopsFile              string            `yaml:"stops_file"`
	Cache                  CacheConfig       `yaml:"cache"`
}

func (c *Config) RefreshInterval() time.Duration {
	seconds := c.RefreshIntervalSeconds
	if seconds <= 0 {
		seconds = DefaultRefreshIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}
