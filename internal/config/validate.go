package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	if c.Transcription.MaxSpeakers < 2 || c.Transcription.MaxSpeakers > 10 {
		return errors.New("transcription.max_speakers must be between 2 and 10")
	}
	if c.Transcription.SilenceThresholdMs <= 0 {
		return errors.New("transcription.silence_threshold_ms must be positive")
	}
	if c.Transcription.MaxSegmentMs < 0 {
		return errors.New("transcription.max_segment_ms must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.MaxConcurrent <= 0 {
		return errors.New("jobs.max_concurrent must be positive")
	}
	if c.Jobs.MaxAttempts <= 0 {
		return errors.New("jobs.max_attempts must be positive")
	}
	if c.Jobs.RetryInitialBackoffMs < 0 || c.Jobs.RetryMaxBackoffMs < c.Jobs.RetryInitialBackoffMs {
		return errors.New("jobs.retry_max_backoff_ms must be >= jobs.retry_initial_backoff_ms >= 0")
	}
	if c.Jobs.PollInitialIntervalSeconds <= 0 {
		return errors.New("jobs.poll_initial_interval_seconds must be positive")
	}
	if c.Jobs.PollMaxIntervalSeconds < c.Jobs.PollInitialIntervalSeconds {
		return errors.New("jobs.poll_max_interval_seconds must be >= jobs.poll_initial_interval_seconds")
	}
	if c.Jobs.PollBackoffFactor < 1 {
		return errors.New("jobs.poll_backoff_factor must be >= 1")
	}
	if c.Jobs.TimeoutMinutes <= 0 {
		return errors.New("jobs.timeout_minutes must be positive")
	}
	if c.Jobs.CleanupTimeoutSeconds <= 0 {
		return errors.New("jobs.cleanup_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.DefaultFormat {
	case "text", "json", "srt", "vtt", "csv":
		return nil
	default:
		return fmt.Errorf("output.default_format: unsupported value %q", c.Output.DefaultFormat)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
