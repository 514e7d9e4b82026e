// Package config provides the configuration structure for the
// voice-clone-service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied when the corresponding TOML key is omitted or zero.
const (
	DefaultIndividualThreshold    = 6
	DefaultCategoryThreshold      = 3
	DefaultOrchestrationTimeoutMS = 300000
	DefaultProviderTimeoutSeconds = 60
)

// Static validation errors.
var (
	ErrPublicBaseURLEmpty = errors.New("cloning.public_base_url cannot be empty")
	ErrProviderURLEmpty   = errors.New("cloning.provider_url cannot be empty")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	SamplesRecordedSubject string `toml:"samples_recorded_subject"`
	VoicesCreatedSubject   string `toml:"voices_created_subject"`
	SampleKVBucket         string `toml:"sample_kv_bucket"`
	NarrationAudioBucket   string `toml:"narration_audio_bucket"`
}

// CloningConfig holds the segmentation thresholds, the shared orchestration
// deadline, and the provider endpoints.
type CloningConfig struct {
	IndividualThreshold    int    `toml:"individual_threshold"`
	CategoryThreshold      int    `toml:"category_threshold"`
	OrchestrationTimeoutMS int    `toml:"orchestration_timeout_ms"`
	PublicBaseURL          string `toml:"public_base_url"`
	ProviderURL            string `toml:"provider_url"`
	ProviderTimeoutSeconds int    `toml:"provider_timeout_seconds"`
}

// OrchestrationTimeout returns the shared deadline for one full
// plan-execute-reconcile run.
func (c CloningConfig) OrchestrationTimeout() time.Duration {
	return time.Duration(c.OrchestrationTimeoutMS) * time.Millisecond
}

// ProviderTimeout returns the HTTP timeout for individual provider calls.
func (c CloningConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	Cloning CloningConfig `toml:"cloning"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the voice-clone-service, applies the
// documented defaults, and validates the required endpoints.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// ApplyDefaults fills zero-valued tunables with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Cloning.IndividualThreshold <= 0 {
		c.Cloning.IndividualThreshold = DefaultIndividualThreshold
	}

	if c.Cloning.CategoryThreshold <= 0 {
		c.Cloning.CategoryThreshold = DefaultCategoryThreshold
	}

	if c.Cloning.OrchestrationTimeoutMS <= 0 {
		c.Cloning.OrchestrationTimeoutMS = DefaultOrchestrationTimeoutMS
	}

	if c.Cloning.ProviderTimeoutSeconds <= 0 {
		c.Cloning.ProviderTimeoutSeconds = DefaultProviderTimeoutSeconds
	}
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	if c.Cloning.PublicBaseURL == "" {
		return ErrPublicBaseURLEmpty
	}

	if c.Cloning.ProviderURL == "" {
		return ErrProviderURLEmpty
	}

	return nil
}
