package preflight

import (
	"context"

	"transcriptor/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Remote checks AWS resources. A nil Remote skips those checks.
type Remote interface {
	CheckCredentials(ctx context.Context) error
	CheckBucket(ctx context.Context) error
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, remote Remote) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.WorkDir != "" {
		results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	}
	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}

	bucket := CheckBucketConfigured(cfg)
	results = append(results, bucket)
	if remote != nil {
		creds := CheckCredentials(ctx, remote)
		results = append(results, creds)
		if bucket.Passed && creds.Passed {
			results = append(results, CheckBucketAccess(ctx, remote, cfg.AWS.S3Bucket))
		}
	}
	return results
}

// Failed returns required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
