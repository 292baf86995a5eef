package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transcriptor/internal/history"
	"transcriptor/internal/job"
	"transcriptor/internal/services"
	"transcriptor/internal/testsupport"
)

func TestTranscribeSingleToStdout(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "talk.mp3")

	out, _, err := runCLI(t, env, "transcribe", input)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if out != "Hello there. Hi.\n" {
		t.Fatalf("unexpected stdout %q", out)
	}
	if got := env.storage.Stored(); len(got) != 1 || got[0] != input {
		t.Fatalf("unexpected uploads %v", got)
	}
	if len(env.storage.Deleted()) != 1 {
		t.Fatalf("expected upload cleanup, got %v", env.storage.Deleted())
	}
}

func TestTranscribeSpeakerLabelsAndFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "talk.mp3")

	out, stderr, err := runCLI(t, env, "transcribe", "--max-speakers", "20", "-f", "srt", input)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,000\n[Speaker0]: Hello there.\n\n" +
		"2\n00:00:01,500 --> 00:00:02,000\n[Speaker1]: Hi.\n\n"
	if out != want {
		t.Fatalf("unexpected srt:\n%s\nwant\n%s", out, want)
	}
	requireContains(t, stderr, "--max-speakers 20 is outside 2-10; using 10")

	submits := env.recognizer.Submits()
	if len(submits) != 1 || submits[0].MaxSpeakers != 10 || submits[0].MinSpeakers != 2 {
		t.Fatalf("unexpected submit options %+v", submits)
	}
}

func TestTranscribeWritesOutputFile(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "talk.mp3")
	target := filepath.Join(env.baseDir, "out", "talk.json")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env, "transcribe", "-o", target, "--format", "json", input)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	requireContains(t, out, "Transcription saved to: "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	requireContains(t, string(data), `"language_code": "en-US"`)
}

func TestTranscribeBatchWithHeaders(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.audioFile(t, "a.mp3")
	second := env.audioFile(t, "b.mp3")

	out, stderr, err := runCLI(t, env, "transcribe", first, second)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	want := "==> " + first + " <==\nHello there. Hi.\n\n==> " + second + " <==\nHello there. Hi.\n"
	if out != want {
		t.Fatalf("unexpected stdout:\n%q\nwant\n%q", out, want)
	}
	requireContains(t, stderr, "2 succeeded, 0 failed, 0 cancelled")
}

func TestTranscribeBatchToDirectoryWithFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	good := env.audioFile(t, "good.mp3")
	bad := env.audioFile(t, "bad.mp3")
	missing := filepath.Join(env.baseDir, "in", "missing.mp3")
	env.recognizer.SubmitFunc = func(ctx context.Context, handle job.Handle, opts job.SubmitOptions) (string, error) {
		if strings.HasSuffix(handle.Key, "bad.mp3") {
			return "", services.Wrap(services.ErrSubmit, "test", "submit", "rejected", services.ErrPermanent)
		}
		return "remote-" + filepath.Base(handle.Key), nil
	}
	outDir := filepath.Join(env.baseDir, "transcripts")

	out, stderr, err := runCLI(t, env, "transcribe", "-o", outDir, "-f", "vtt", good, bad, missing)
	if !errors.Is(err, errBatchIncomplete) {
		t.Fatalf("expected errBatchIncomplete, got %v", err)
	}
	target := filepath.Join(outDir, "good.vtt")
	requireContains(t, out, "Transcription saved to: "+target)
	data, readErr := os.ReadFile(target)
	if readErr != nil {
		t.Fatalf("read output: %v", readErr)
	}
	if !strings.HasPrefix(string(data), "WEBVTT\n\n") {
		t.Fatalf("unexpected vtt %q", data)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "bad.vtt")); !os.IsNotExist(statErr) {
		t.Fatalf("failed job must not produce output, stat err %v", statErr)
	}
	requireContains(t, stderr, "1 succeeded, 2 failed, 0 cancelled")
	requireContains(t, stderr, "submit")
	requireContains(t, stderr, "validation")
}

func TestTranscribeRejectsFileOutputForBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.audioFile(t, "a.mp3")
	second := env.audioFile(t, "b.mp3")
	file := filepath.Join(env.baseDir, "out.txt")
	testsupport.WriteFile(t, file, 1)

	_, _, err := runCLI(t, env, "transcribe", "-o", file, first, second)
	if err == nil || !strings.Contains(err.Error(), "several sources need a directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
	if len(env.storage.Stored()) != 0 {
		t.Fatal("nothing should be uploaded")
	}
}

func TestTranscribeRejectsUnsupportedLanguage(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "talk.mp3")

	_, _, err := runCLI(t, env, "transcribe", "-l", "klingon", input)
	if err == nil || !strings.Contains(err.Error(), "invalid --language") {
		t.Fatalf("expected language error, got %v", err)
	}
}

func TestTranscribeRequiresBucket(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBucket(""))
	input := env.audioFile(t, "talk.mp3")

	_, _, err := runCLI(t, env, "transcribe", input)
	if err == nil || !strings.Contains(err.Error(), "aws.s3_bucket is required") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestTranscribeStopsOnFailedCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.remote.credsErr = errors.New("no valid providers")
	input := env.audioFile(t, "talk.mp3")

	_, _, err := runCLI(t, env, "transcribe", input)
	if err == nil || !strings.Contains(err.Error(), "AWS credentials check failed") {
		t.Fatalf("expected credentials error, got %v", err)
	}

	if _, _, err := runCLI(t, env, "transcribe", "--skip-checks", input); err != nil {
		t.Fatalf("--skip-checks should bypass remote checks: %v", err)
	}
}

func TestTranscribeTimestampsAndSaveAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "my_talk.mp3")

	out, _, err := runCLI(t, env, "transcribe", "--timestamps", "--save-audio", input)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	requireContains(t, out, "[00:00:00] Hello there. Hi.\n")
	saved := filepath.Join(env.cfg.Paths.AudioDir, "my_talk.mp3")
	requireContains(t, out, "Audio saved to: "+saved)
	if _, err := os.Stat(saved); err != nil {
		t.Fatalf("expected saved audio: %v", err)
	}
}

func TestTranscribeRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.audioFile(t, "talk.mp3")

	if _, _, err := runCLI(t, env, "transcribe", input); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	out, _, err := runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, "English (en-US)")

	out, _, err = runCLI(t, env, "history", "list", "--state", "failed")
	if err != nil {
		t.Fatalf("history list --state: %v", err)
	}
	requireContains(t, out, "No failed jobs recorded")

	entries := historyEntries(t, env)
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %+v", entries)
	}
	out, _, err = runCLI(t, env, "history", "show", entries[0].JobID[:6])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Job:       "+entries[0].JobID)
	requireContains(t, out, "Source:    "+input)
	requireContains(t, out, "Language:  English (en-US)")

	out, _, err = runCLI(t, env, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 job(s)")

	out, _, err = runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No jobs recorded")
}

func TestHistoryCommandErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "history", "list", "--state", "done")
	if err == nil || !strings.Contains(err.Error(), "invalid --state") || !strings.Contains(err.Error(), "succeeded") {
		t.Fatalf("expected state error listing valid states, got %v", err)
	}

	_, _, err = runCLI(t, env, "history", "show", "no-such-job")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTranscribeHistoryKeepsBatchPosition(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "in", "missing.mp3")
	good := env.audioFile(t, "good.mp3")

	if _, _, err := runCLI(t, env, "transcribe", missing, good); !errors.Is(err, errBatchIncomplete) {
		t.Fatalf("expected errBatchIncomplete, got %v", err)
	}
	entries := historyEntries(t, env)
	if len(entries) != 1 {
		t.Fatalf("expected one recorded job, got %+v", entries)
	}
	if entries[0].Source != good || entries[0].Index != 1 {
		t.Fatalf("recorded %s at index %d, want %s at 1", entries[0].Source, entries[0].Index, good)
	}
}

func historyEntries(t *testing.T, env *cliTestEnv) []history.Entry {
	t.Helper()
	store, err := history.Open(context.Background(), env.cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	entries, err := store.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return entries
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Jobs.MaxAttempts = 6
	cfg.Jobs.PollBackoffFactor = 2
	cfg.Transcription.MaxSegmentMs = 0

	policy := policyFromConfig(cfg)
	if policy.MaxAttempts != 6 {
		t.Fatalf("MaxAttempts = %d", policy.MaxAttempts)
	}
	if policy.PollBackoff.Multiplier != 2 || policy.PollBackoff.Initial.Seconds() != 5 {
		t.Fatalf("unexpected poll backoff %+v", policy.PollBackoff)
	}
	if policy.RetryBackoff.Initial.Seconds() != 1 || policy.RetryBackoff.Max.Seconds() != 20 {
		t.Fatalf("unexpected retry backoff %+v", policy.RetryBackoff)
	}
	if policy.MaxSegmentMs != 0 || policy.SilenceThresholdMs != 1000 {
		t.Fatalf("unexpected segmentation settings %+v", policy)
	}
}
