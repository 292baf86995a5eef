package config

const (
	defaultRegion               = "us-east-1"
	defaultS3KeyPrefix          = "transcriptor/"
	defaultMaxSpeakers          = 10
	defaultSilenceThresholdMs   = 1000
	defaultMaxSegmentMs         = 10000
	defaultMaxConcurrent        = 3
	defaultMaxAttempts          = 4
	defaultRetryInitialBackoff  = 1000
	defaultRetryMaxBackoff      = 20000
	defaultPollInitialInterval  = 5
	defaultPollMaxInterval      = 30
	defaultPollBackoffFactor    = 1.5
	defaultJobTimeoutMinutes    = 120
	defaultCleanupTimeoutSecond = 30
	defaultDataDir              = "~/.local/share/transcriptor"
	defaultAudioDir             = "."
	defaultOutputFormat         = "text"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultConfigPath           = "~/.config/transcriptor/config.toml"
	projectConfigName           = "transcriptor.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		AWS: AWS{
			Region:      defaultRegion,
			S3KeyPrefix: defaultS3KeyPrefix,
		},
		Transcription: Transcription{
			MaxSpeakers:        defaultMaxSpeakers,
			SilenceThresholdMs: defaultSilenceThresholdMs,
			MaxSegmentMs:       defaultMaxSegmentMs,
		},
		Jobs: Jobs{
			MaxConcurrent:              defaultMaxConcurrent,
			MaxAttempts:                defaultMaxAttempts,
			RetryInitialBackoffMs:      defaultRetryInitialBackoff,
			RetryMaxBackoffMs:          defaultRetryMaxBackoff,
			PollInitialIntervalSeconds: defaultPollInitialInterval,
			PollMaxIntervalSeconds:     defaultPollMaxInterval,
			PollBackoffFactor:          defaultPollBackoffFactor,
			TimeoutMinutes:             defaultJobTimeoutMinutes,
			CleanupTimeoutSeconds:      defaultCleanupTimeoutSecond,
		},
		Paths: Paths{
			DataDir:  defaultDataDir,
			AudioDir: defaultAudioDir,
		},
		Output: Output{
			DefaultFormat: defaultOutputFormat,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
