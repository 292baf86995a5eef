package main

import (
	"errors"
	"strings"
	"testing"
)

func TestPlatformsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "platforms")
	if err != nil {
		t.Fatalf("platforms: %v", err)
	}
	for _, want := range []string{"YouTube", "youtu.be", "Direct media URLs", "Local files"} {
		requireContains(t, out, want)
	}
}

func TestCheckCommandReportsRemoteFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.remote.bucketErr = errors.New("NoSuchBucket")

	out, _, err := runCLI(t, env, "check")
	if err == nil {
		t.Fatal("expected failure when bucket is unreachable")
	}
	requireContains(t, out, "Transcriptor checks")
	requireContains(t, out, "Data directory")
	requireContains(t, out, "NoSuchBucket")
}

func TestCheckCommandOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	env.remote.credsErr = errors.New("should not be called")

	out, _, _ := runCLI(t, env, "check", "--offline")
	requireContains(t, out, "Upload bucket")
	if strings.Contains(out, "should not be called") {
		t.Fatalf("offline check contacted AWS: %q", out)
	}
}
