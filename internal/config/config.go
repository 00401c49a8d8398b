// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the complete retrainer configuration.
type Config struct {
	Data     DataConfig     `koanf:"data"`
	Samples  SamplesConfig  `koanf:"samples"`
	Registry RegistryConfig `koanf:"registry"`
	Training TrainingConfig `koanf:"training"`
	Signal   SignalConfig   `koanf:"signal"`
	Events   EventsConfig   `koanf:"events"`
	Serving  ServingConfig  `koanf:"serving"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Schedule ScheduleConfig `koanf:"schedule"`
}

// DataConfig locates the accumulation ledger.
type DataConfig struct {
	Dir        string `koanf:"dir" validate:"required"`
	LedgerPath string `koanf:"ledger_path" validate:"required"`
}

// SamplesConfig selects and configures the sample store backend.
type SamplesConfig struct {
	Backend string `koanf:"backend" validate:"oneof=csv badger duckdb"`
	Dir     string `koanf:"dir"`

	// FallbackDir is read only when Dir holds no sample files. Never cleared.
	FallbackDir string `koanf:"fallback_dir"`

	BadgerPath string `koanf:"badger_path"`
	DuckDBPath string `koanf:"duckdb_path"`
}

// RegistryConfig configures the versioned model store.
type RegistryConfig struct {
	Dir string `koanf:"dir" validate:"required"`

	// Keep is the number of newest artifacts kept by Prune. 0 disables pruning.
	Keep int `koanf:"keep" validate:"gte=0"`
}

// TrainingConfig holds the retraining policy.
type TrainingConfig struct {
	Threshold       int           `koanf:"threshold" validate:"gte=1"`
	TestSize        float64       `koanf:"test_size" validate:"gt=0,lt=1"`
	Seed            int64         `koanf:"seed"`
	MinSplitSamples int           `koanf:"min_split_samples" validate:"gte=1"`
	FitTimeout      time.Duration `koanf:"fit_timeout" validate:"gte=0"`
}

// SignalConfig names the CI environment file variable.
type SignalConfig struct {
	EnvVar string `koanf:"env_var"`
}

// EventsConfig configures promotion event delivery.
type EventsConfig struct {
	Backend      string        `koanf:"backend" validate:"oneof=gochannel nats"`
	Topic        string        `koanf:"topic" validate:"required"`
	NATSURL      string        `koanf:"nats_url"`
	EmbeddedNATS bool          `koanf:"embedded_nats"`
	NATSStoreDir string        `koanf:"nats_store_dir"`
	MaxFailures  uint32        `koanf:"max_failures" validate:"gte=1"`
	BreakerReset time.Duration `koanf:"breaker_reset" validate:"gt=0"`
}

// ServingConfig configures the serving adapter.
type ServingConfig struct {
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host               string        `koanf:"host"`
	Port               int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	RateLimitRequests  int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RetrainMinInterval time.Duration `koanf:"retrain_min_interval" validate:"gte=0"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ScheduleConfig configures periodic retraining in service mode.
type ScheduleConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval" validate:"gt=0"`
	TrainOnStartup bool          `koanf:"train_on_startup"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ModelFile returns the artifact path reported for a version.
func (r RegistryConfig) ModelFile(version int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("v%d.gob.gz", version))
}
