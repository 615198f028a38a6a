//go:build !windows

package system

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestOSExecutor_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &osExecutor{}

	var streamed bytes.Buffer
	res, err := e.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "echo out; echo err >&2; exit 4"},
		Stdout: &streamed,
		Env:    []string{"PATH=/usr/bin:/bin"},
	})
	if err == nil {
		t.Fatal("expected exit error")
	}
	if res.ExitCode != 4 {
		t.Errorf("ExitCode = %d, want 4", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" || streamed.String() != "out\n" {
		t.Errorf("stdout = %q, streamed = %q", res.Stdout, streamed.String())
	}
	if strings.TrimSpace(string(res.Stderr)) != "err" {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestOSExecutor_RunMissingBinary(t *testing.T) {
	e := &osExecutor{}
	_, err := e.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	if !IsNotFound(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}
