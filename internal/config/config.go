// Package config provides configuration management for sabrget using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultLiveSegmentTargetDurationSec = 5
	defaultHTTPRetries                  = 10
	defaultHostFallbackThreshold        = 8
	defaultLiveEndWaitSec               = 10
	defaultHTTPTimeout                  = 60 * time.Second
	defaultRetryDelay                   = 1 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Transport TransportConfig `mapstructure:"transport"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FormatSelector is a caller format selector. The itag identifies the exact
// format. Mime is carried through to the session config but is not used for
// matching; without an itag, a selector matches any format of its track type.
type FormatSelector struct {
	Itag int    `mapstructure:"itag"`
	Mime string `mapstructure:"mime"`
}

// ClientInfoConfig holds the identity fields sent in every StreamerContext.
type ClientInfoConfig struct {
	HL            string `mapstructure:"hl"`
	GL            string `mapstructure:"gl"`
	DeviceMake    string `mapstructure:"device_make"`
	DeviceModel   string `mapstructure:"device_model"`
	VisitorData   string `mapstructure:"visitor_data"`
	UserAgent     string `mapstructure:"user_agent"`
	ClientName    int32  `mapstructure:"client_name"`
	ClientVersion string `mapstructure:"client_version"`
	OSName        string `mapstructure:"os_name"`
	OSVersion     string `mapstructure:"os_version"`
}

// SessionConfig holds the caller-facing session options from spec.md §6.
type SessionConfig struct {
	ServerABRStreamingURL        string           `mapstructure:"server_abr_streaming_url"`
	VideoPlaybackUstreamerConfig string           `mapstructure:"video_playback_ustreamer_config"`
	ClientInfo                   ClientInfoConfig `mapstructure:"client_info"`
	AudioSelection               []FormatSelector `mapstructure:"audio_selection"`
	VideoSelection               []FormatSelector `mapstructure:"video_selection"`
	POToken                      string           `mapstructure:"po_token"`
	StartTimeMs                  int64            `mapstructure:"start_time_ms"`
	LiveSegmentTargetDurationSec int              `mapstructure:"live_segment_target_duration_sec"`
	HTTPRetries                  int              `mapstructure:"http_retries"`
	HostFallbackThreshold        int              `mapstructure:"host_fallback_threshold"`
	LiveEndWaitSec               int              `mapstructure:"live_end_wait_sec"`
	Debug                        bool             `mapstructure:"debug"` // enables the per-session disk-spilling trace buffer
}

// TransportConfig holds HTTP transport tuning, layered on pkg/httpclient.
type TransportConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	RetryDelay          Duration      `mapstructure:"retry_delay"`
	RetryMaxDelay       Duration      `mapstructure:"retry_max_delay"`
	BackoffMultiplier   float64       `mapstructure:"backoff_multiplier"`
	EnableDecompression bool          `mapstructure:"enable_decompression"`
	MaxResponseSize     ByteSize      `mapstructure:"max_response_size"`
	UserAgent           string        `mapstructure:"user_agent"`
	DebugHTTPAddr       string        `mapstructure:"debug_http_addr"` // empty = debug endpoint disabled
}

// StorageConfig holds the output and progress file locations for a session.
type StorageConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	ProgressDir string `mapstructure:"progress_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with SABRGO_ and use underscores for nesting.
// Example: SABRGO_SESSION_HTTP_RETRIES=5.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sabrget")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath("/etc/sabrget")
	}

	v.SetEnvPrefix("SABRGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a Config populated with default values only, skipping
// Validate. Used by `sabrget config dump` to print a template that still
// needs the caller-required fields (server_abr_streaming_url, a format
// selection) filled in before it will pass Load.
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshaling default config: %v", err))
	}
	return &cfg
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Session defaults
	v.SetDefault("session.start_time_ms", 0)
	v.SetDefault("session.live_segment_target_duration_sec", defaultLiveSegmentTargetDurationSec)
	v.SetDefault("session.http_retries", defaultHTTPRetries)
	v.SetDefault("session.host_fallback_threshold", defaultHostFallbackThreshold)
	v.SetDefault("session.live_end_wait_sec", defaultLiveEndWaitSec)
	v.SetDefault("session.debug", false)

	// Transport defaults
	v.SetDefault("transport.timeout", defaultHTTPTimeout)
	v.SetDefault("transport.retry_delay", defaultRetryDelay.String())
	v.SetDefault("transport.retry_max_delay", "30s")
	v.SetDefault("transport.backoff_multiplier", 2.0)
	v.SetDefault("transport.enable_decompression", true)
	v.SetDefault("transport.max_response_size", 0)
	v.SetDefault("transport.user_agent", "sabrgo-httpclient/1.0")
	v.SetDefault("transport.debug_http_addr", "")

	// Storage defaults
	v.SetDefault("storage.output_dir", "./output")
	v.SetDefault("storage.progress_dir", "./progress")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Session.ServerABRStreamingURL == "" {
		return errors.New("session.server_abr_streaming_url is required")
	}
	if len(c.Session.AudioSelection) == 0 && len(c.Session.VideoSelection) == 0 {
		return errors.New("at least one of session.audio_selection or session.video_selection is required")
	}
	if c.Session.LiveSegmentTargetDurationSec < 1 {
		return errors.New("session.live_segment_target_duration_sec must be at least 1")
	}
	if c.Session.HTTPRetries < 0 {
		return errors.New("session.http_retries must be non-negative")
	}
	if c.Session.HostFallbackThreshold < 1 {
		return errors.New("session.host_fallback_threshold must be at least 1")
	}
	if c.Session.HostFallbackThreshold > c.Session.HTTPRetries && c.Session.HTTPRetries > 0 {
		return errors.New("session.host_fallback_threshold must not exceed session.http_retries")
	}
	if c.Session.LiveEndWaitSec < 1 {
		return errors.New("session.live_end_wait_sec must be at least 1")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Storage.OutputDir == "" {
		return errors.New("storage.output_dir is required")
	}
	if c.Storage.ProgressDir == "" {
		return errors.New("storage.progress_dir is required")
	}

	return nil
}
