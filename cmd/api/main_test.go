package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"focus-tasks-backend/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("FOCUS_AUTH_SECRET", "s3cret")
	t.Setenv("FOCUS_LOG_LEVEL", "error")

	out, err := execute(t, "token", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := auth.ParseToken([]byte("s3cret"), strings.TrimSpace(out)); err != nil {
		t.Errorf("printed token does not verify: %v", err)
	}
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("FOCUS_AUTH_SECRET", "")
	if _, err := execute(t, "token"); err == nil {
		t.Error("token without a secret should fail")
	}
}

func TestTrainAndGenerateCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOCUS_DATABASE_DSN", filepath.Join(dir, "cli.db"))
	t.Setenv("FOCUS_MODEL_PATH", filepath.Join(dir, "model.json"))
	t.Setenv("FOCUS_LOG_LEVEL", "error")

	if _, err := execute(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := execute(t, "generate"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := execute(t, "train")
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if !strings.Contains(out, "not enough focus sessions") {
		t.Errorf("train output = %q", out)
	}
	if _, err := execute(t, "prune"); err != nil {
		t.Fatalf("prune: %v", err)
	}
}
