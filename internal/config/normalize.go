package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAWS()
	c.normalizeTranscription()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = defaultAudioDir
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAWS() {
	c.AWS.Region = strings.TrimSpace(c.AWS.Region)
	if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
		c.AWS.Region = strings.TrimSpace(value)
	}
	if c.AWS.Region == "" {
		c.AWS.Region = defaultRegion
	}
	c.AWS.S3Bucket = strings.TrimSpace(c.AWS.S3Bucket)
	if c.AWS.S3Bucket == "" {
		if value, ok := os.LookupEnv("TRANSCRIPTOR_S3_BUCKET"); ok {
			c.AWS.S3Bucket = strings.TrimSpace(value)
		}
	}
	c.AWS.Profile = strings.TrimSpace(c.AWS.Profile)
	c.AWS.S3Endpoint = strings.TrimSpace(c.AWS.S3Endpoint)
	c.AWS.AccessKeyID = strings.TrimSpace(c.AWS.AccessKeyID)
	c.AWS.SecretAccessKey = strings.TrimSpace(c.AWS.SecretAccessKey)
	c.AWS.SessionToken = strings.TrimSpace(c.AWS.SessionToken)
	prefix := strings.TrimLeft(strings.TrimSpace(c.AWS.S3KeyPrefix), "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	c.AWS.S3KeyPrefix = prefix
}

func (c *Config) normalizeTranscription() {
	c.Transcription.DefaultLanguage = strings.TrimSpace(c.Transcription.DefaultLanguage)
	if c.Transcription.MaxSpeakers == 0 {
		c.Transcription.MaxSpeakers = defaultMaxSpeakers
	}
}

func (c *Config) normalizeOutput() {
	format := strings.ToLower(strings.TrimSpace(c.Output.DefaultFormat))
	if format == "" || format == "txt" {
		format = defaultOutputFormat
	}
	c.Output.DefaultFormat = format
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
