package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transcriptor/internal/config"
	"transcriptor/internal/logging"
	"transcriptor/internal/media/ffprobe"
	"transcriptor/internal/source"
	"transcriptor/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	storage    *testsupport.FakeStorage
	recognizer *testsupport.FakeRecognizer
	remote     *stubRemote
}

type stubRemote struct {
	credsErr  error
	bucketErr error
}

func (s *stubRemote) CheckCredentials(context.Context) error { return s.credsErr }
func (s *stubRemote) CheckBucket(context.Context) error      { return s.bucketErr }

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("AWS_REGION", "")
	t.Setenv("TRANSCRIPTOR_S3_BUCKET", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		storage:    &testsupport.FakeStorage{},
		recognizer: &testsupport.FakeRecognizer{},
		remote:     &stubRemote{},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) commandContext() *commandContext {
	ctx := newCommandContext()
	ctx.logger = logging.NewNop()
	ctx.backends = func(context.Context, *config.Config, *slog.Logger) (backends, error) {
		return backends{Storage: e.storage, Recognizer: e.recognizer, Remote: e.remote}, nil
	}
	ctx.resolverOptions = []source.Option{source.WithProber(audioProber)}
	return ctx
}

func audioProber(context.Context, string, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{Index: 0, CodecName: "mp3", CodecType: "audio"}},
		Format:  ffprobe.Format{Duration: "2.0"},
	}, nil
}

// audioFile creates a small local source file under the test directory.
func (e *cliTestEnv) audioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "in", name)
	testsupport.WriteFile(t, path, 1024)
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWithContext(env.commandContext())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
