package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// AWS contains account, bucket, and endpoint settings.
type AWS struct {
	Region         string `toml:"region"`
	Profile        string `toml:"profile"`
	S3Bucket       string `toml:"s3_bucket"`
	S3KeyPrefix    string `toml:"s3_key_prefix"`
	S3Endpoint     string `toml:"s3_endpoint"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// Static credentials override the default provider chain when both are set.
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	SessionToken    string `toml:"session_token"`
}

// HasStaticCredentials reports whether an access key pair is configured.
func (a AWS) HasStaticCredentials() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}

// Transcription contains defaults applied to every submitted job.
type Transcription struct {
	DefaultLanguage    string `toml:"default_language"`
	SpeakerLabels      bool   `toml:"speaker_labels"`
	MaxSpeakers        int    `toml:"max_speakers"`
	DetailedTimestamps bool   `toml:"detailed_timestamps"`
	SilenceThresholdMs int    `toml:"silence_threshold_ms"`
	MaxSegmentMs       int    `toml:"max_segment_ms"`
}

// Jobs contains scheduler and job controller tuning.
type Jobs struct {
	MaxConcurrent              int     `toml:"max_concurrent"`
	MaxAttempts                int     `toml:"max_attempts"`
	RetryInitialBackoffMs      int     `toml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs          int     `toml:"retry_max_backoff_ms"`
	PollInitialIntervalSeconds int     `toml:"poll_initial_interval_seconds"`
	PollMaxIntervalSeconds     int     `toml:"poll_max_interval_seconds"`
	PollBackoffFactor          float64 `toml:"poll_backoff_factor"`
	TimeoutMinutes             int     `toml:"timeout_minutes"`
	CleanupTimeoutSeconds      int     `toml:"cleanup_timeout_seconds"`
	FailFast                   bool    `toml:"fail_fast"`
	RetainUploads              bool    `toml:"retain_uploads"`
}

// Paths contains local directories.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	WorkDir  string `toml:"work_dir"`
	AudioDir string `toml:"audio_dir"`
}

// Output contains rendering defaults.
type Output struct {
	DefaultFormat string `toml:"default_format"`
	Timestamps    bool   `toml:"timestamps"`
}

// History controls the local job ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   bool   `toml:"file"`
}

// Config encapsulates all configuration values for transcriptor.
//
// Configuration sections by subsystem:
//   - AWS: region, credentials profile, and the upload bucket
//   - Transcription: per-job recognition defaults and segmenting thresholds
//   - Jobs: concurrency, retry, polling, and timeout budgets
//   - Paths: data, work, and saved-audio directories
//   - Output: default format and text timestamps
//   - History: local SQLite job ledger
//   - Logging: log format, level, and optional file output
type Config struct {
	AWS           AWS           `toml:"aws"`
	Transcription Transcription `toml:"transcription"`
	Jobs          Jobs          `toml:"jobs"`
	Paths         Paths         `toml:"paths"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory and, when configured, the work
// directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireBucket reports a configuration error when no upload bucket is set.
// Only commands that submit jobs need a bucket.
func (c *Config) RequireBucket() error {
	if strings.TrimSpace(c.AWS.S3Bucket) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("aws.s3_bucket is required. Set TRANSCRIPTOR_S3_BUCKET or edit %s (create with 'transcriptor config init')", defaultPath)
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LogPath returns the log file location used when logging.file is set.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "logs", "transcriptor.log")
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for audio conversion.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// YtDlpBinary returns the yt-dlp executable name used for platform downloads.
func (c *Config) YtDlpBinary() string {
	return "yt-dlp"
}

// RetryBackoff returns the initial and maximum delay between retried calls.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Jobs.RetryInitialBackoffMs) * time.Millisecond,
		time.Duration(c.Jobs.RetryMaxBackoffMs) * time.Millisecond
}

// PollInterval returns the initial and maximum delay between status polls.
func (c *Config) PollInterval() (time.Duration, time.Duration) {
	return time.Duration(c.Jobs.PollInitialIntervalSeconds) * time.Second,
		time.Duration(c.Jobs.PollMaxIntervalSeconds) * time.Second
}

// JobTimeout returns the total wall-clock budget for one job.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.TimeoutMinutes) * time.Minute
}

// CleanupTimeout returns the budget for deleting an upload after a job ends.
func (c *Config) CleanupTimeout() time.Duration {
	return time.Duration(c.Jobs.CleanupTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
