// Package config loads, normalizes, and validates transcriptor configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AWS_REGION and TRANSCRIPTOR_S3_BUCKET. The Config type centralizes every
// knob the CLI and job pipeline need so they are discovered in one pass.
package config
