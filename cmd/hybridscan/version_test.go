package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestGetVersion tests the version helpers.
func TestGetVersion(t *testing.T) {
	t.Parallel()

	t.Run("version is never empty", func(t *testing.T) {
		t.Parallel()
		if getVersion() == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("commit is never empty", func(t *testing.T) {
		t.Parallel()
		if getCommit() == "" {
			t.Error("expected non-empty commit")
		}
	})

	t.Run("date is never empty", func(t *testing.T) {
		t.Parallel()
		if getDate() == "" {
			t.Error("expected non-empty date")
		}
	})
}

// TestVersionCmd tests the version command output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"hybridscan version", "commit:", "built:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got %q", want, out.String())
		}
	}
}
