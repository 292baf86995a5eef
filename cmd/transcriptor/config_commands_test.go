package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "loaded from "+env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.AWS.AccessKeyID = "AKIAEXAMPLE1234"
	env.cfg.AWS.SecretAccessKey = "super-secret"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") || strings.Contains(out, "AKIAEXAMPLE1234") {
		t.Fatalf("secrets leaked in %q", out)
	}
	requireContains(t, out, "********1234")
	requireContains(t, out, "test-bucket")

	out, _, err = runCLI(t, env, "config", "show", "--show-secrets")
	if err != nil {
		t.Fatalf("config show --show-secrets: %v", err)
	}
	requireContains(t, out, "super-secret")
}

func TestConfigPath(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, env.configPath+"\n")
	requireContains(t, out, "exists: yes")
}

func TestMaskKeyID(t *testing.T) {
	cases := map[string]string{
		"abc":             redacted,
		"AKIAEXAMPLE1234": redacted + "1234",
	}
	for input, want := range cases {
		if got := maskKeyID(input); got != want {
			t.Fatalf("maskKeyID(%q) = %q, want %q", input, got, want)
		}
	}
}
