package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"transcriptor/internal/config"
	"transcriptor/internal/deps"
)

const remoteCheckTimeout = 15 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBucketConfigured verifies an upload bucket is set.
func CheckBucketConfigured(cfg *config.Config) Result {
	const name = "Upload bucket"
	if err := cfg.RequireBucket(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: cfg.AWS.S3Bucket}
}

// CheckCredentials verifies AWS credentials resolve.
func CheckCredentials(ctx context.Context, remote Remote) Result {
	const name = "AWS credentials"
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()
	if err := remote.CheckCredentials(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "resolved"}
}

// CheckBucketAccess verifies the bucket is reachable.
func CheckBucketAccess(ctx context.Context, remote Remote, bucket string) Result {
	const name = "Bucket access"
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()
	if err := remote.CheckBucket(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", bucket, summarizeRemoteError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", bucket)}
}

// CheckSystemDeps evaluates the external binaries used to prepare audio.
// Both the transcribe and check commands use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required to convert unsupported containers",
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDlpBinary(),
			Description: "Required to download from video platforms",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	return err.Error()
}
