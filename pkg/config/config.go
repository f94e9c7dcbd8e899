// Package config loads GARLC settings with precedence:
// 1. CLI flags (applied by the caller)
// 2. Environment variables (GARLC_*)
// 3. Config file (~/.garlc/config.yaml)
// 4. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/irlrobot/garlc/pkg/batch"
	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/fleet"
)

const (
	DefaultPipelineName = "GARLC"

	configFileName = ".garlc/config.yaml"
)

// Config holds every tunable of the trigger, helper and bootstrap functions
// and of the CLI.
type Config struct {
	PipelineName string `yaml:"pipeline_name"`
	TagKey       string `yaml:"tag_key"`
	ChunkSize    int    `yaml:"chunk_size"`

	Dispatch DispatchConfig `yaml:"dispatch"`

	// JobsTable enables the progress ledger when set.
	JobsTable string `yaml:"jobs_table"`
}

// DispatchConfig tunes the dispatch engine.
type DispatchConfig struct {
	HelperFunction      string        `yaml:"helper_function"`
	DocumentName        string        `yaml:"document_name"`
	ExecutionTimeout    time.Duration `yaml:"execution_timeout"`
	ChunksPerInvocation int           `yaml:"chunks_per_invocation"`
	SafetyMargin        time.Duration `yaml:"safety_margin"`
	ThrottleAttempts    int           `yaml:"throttle_attempts"`
	HandoffAttempts     int           `yaml:"handoff_attempts"`
	OutputBucket        string        `yaml:"output_bucket"`
	OutputPrefix        string        `yaml:"output_prefix"`
}

// Default returns the built-in settings.
func Default() *Config {
	engine := dispatch.DefaultConfig()
	return &Config{
		PipelineName: DefaultPipelineName,
		TagKey:       fleet.DefaultTagKey,
		ChunkSize:    batch.DefaultSize,
		Dispatch: DispatchConfig{
			HelperFunction:      engine.FunctionName,
			DocumentName:        engine.DocumentName,
			ExecutionTimeout:    engine.ExecutionTimeout,
			ChunksPerInvocation: engine.ChunksPerInvocation,
			SafetyMargin:        engine.SafetyMargin,
			ThrottleAttempts:    engine.Throttle.MaxAttempts,
			HandoffAttempts:     engine.Handoff.MaxAttempts,
		},
	}
}

// Load returns defaults overlaid with the file at path and the environment.
// An empty path means ~/.garlc/config.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns defaults overlaid with the environment only. Lambda
// functions have no config file.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns ~/.garlc/config.yaml, or "" without a home directory.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, configFileName)
}

// fileLimits tells an explicit 0 (unlimited) retry limit from an absent one.
type fileLimits struct {
	Dispatch struct {
		ThrottleAttempts *int `yaml:"throttle_attempts"`
		HandoffAttempts  *int `yaml:"handoff_attempts"`
	} `yaml:"dispatch"`
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	var limits fileLimits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.PipelineName, file.PipelineName)
	setString(&c.TagKey, file.TagKey)
	setInt(&c.ChunkSize, file.ChunkSize)
	setString(&c.JobsTable, file.JobsTable)

	d, f := &c.Dispatch, file.Dispatch
	setString(&d.HelperFunction, f.HelperFunction)
	setString(&d.DocumentName, f.DocumentName)
	setDuration(&d.ExecutionTimeout, f.ExecutionTimeout)
	setInt(&d.ChunksPerInvocation, f.ChunksPerInvocation)
	setDuration(&d.SafetyMargin, f.SafetyMargin)
	if limits.Dispatch.ThrottleAttempts != nil {
		d.ThrottleAttempts = *limits.Dispatch.ThrottleAttempts
	}
	if limits.Dispatch.HandoffAttempts != nil {
		d.HandoffAttempts = *limits.Dispatch.HandoffAttempts
	}
	setString(&d.OutputBucket, f.OutputBucket)
	setString(&d.OutputPrefix, f.OutputPrefix)
	return nil
}

func (c *Config) mergeEnv() error {
	c.PipelineName = getEnv("GARLC_PIPELINE_NAME", c.PipelineName)
	c.TagKey = getEnv("GARLC_TAG_KEY", c.TagKey)
	c.JobsTable = getEnv("GARLC_JOBS_TABLE", c.JobsTable)

	d := &c.Dispatch
	d.HelperFunction = getEnv("GARLC_HELPER_FUNCTION", d.HelperFunction)
	d.DocumentName = getEnv("GARLC_DOCUMENT_NAME", d.DocumentName)
	d.OutputBucket = getEnv("GARLC_OUTPUT_BUCKET", d.OutputBucket)
	d.OutputPrefix = getEnv("GARLC_OUTPUT_PREFIX", d.OutputPrefix)

	var err error
	if c.ChunkSize, err = getEnvInt("GARLC_CHUNK_SIZE", c.ChunkSize); err != nil {
		return err
	}
	if d.ChunksPerInvocation, err = getEnvInt("GARLC_CHUNKS_PER_INVOCATION", d.ChunksPerInvocation); err != nil {
		return err
	}
	if d.ThrottleAttempts, err = getEnvInt("GARLC_THROTTLE_ATTEMPTS", d.ThrottleAttempts); err != nil {
		return err
	}
	if d.HandoffAttempts, err = getEnvInt("GARLC_HANDOFF_ATTEMPTS", d.HandoffAttempts); err != nil {
		return err
	}
	if d.ExecutionTimeout, err = getEnvDuration("GARLC_EXECUTION_TIMEOUT", d.ExecutionTimeout); err != nil {
		return err
	}
	if d.SafetyMargin, err = getEnvDuration("GARLC_SAFETY_MARGIN", d.SafetyMargin); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the dispatcher cannot work with.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", c.ChunkSize)
	}
	if c.TagKey == "" {
		return fmt.Errorf("tag_key must not be empty")
	}
	if c.Dispatch.ChunksPerInvocation < 1 {
		return fmt.Errorf("chunks_per_invocation must be at least 1, got %d", c.Dispatch.ChunksPerInvocation)
	}
	if c.Dispatch.ThrottleAttempts < 0 || c.Dispatch.HandoffAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative")
	}
	return nil
}

// EngineConfig converts the settings into a dispatch.Config.
func (c *Config) EngineConfig() dispatch.Config {
	cfg := dispatch.DefaultConfig()
	d := c.Dispatch

	setString(&cfg.FunctionName, d.HelperFunction)
	setString(&cfg.DocumentName, d.DocumentName)
	setDuration(&cfg.ExecutionTimeout, d.ExecutionTimeout)
	setInt(&cfg.ChunksPerInvocation, d.ChunksPerInvocation)
	setDuration(&cfg.SafetyMargin, d.SafetyMargin)
	cfg.OutputS3Bucket = d.OutputBucket
	cfg.OutputS3Prefix = d.OutputPrefix
	cfg.Throttle.MaxAttempts = d.ThrottleAttempts
	cfg.Handoff.MaxAttempts = d.HandoffAttempts
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
