package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetup_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected 'test message' in output, got: %s", output)
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, true, &buf)

	Info("test message", "key", "value")

	output := buf.String()
	// JSON output should contain braces
	if !strings.Contains(output, "{") {
		t.Errorf("Expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected 'test message' in output, got: %s", output)
	}
}

func TestSetup_VerboseMode(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, false, &buf)

	if !Verbose {
		t.Error("Verbose flag should be true after Setup(true, ...)")
	}

	Debug("debug message")

	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("Debug message should appear in verbose mode, got: %s", output)
	}
}

func TestSetup_NonVerboseMode(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	if Verbose {
		t.Error("Verbose flag should be false after Setup(false, ...)")
	}

	Debug("debug message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Errorf("Debug message should NOT appear in non-verbose mode, got: %s", output)
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		log     func(string, ...any)
		verbose bool
		shown   bool
	}{
		{"debug verbose", Debug, true, true},
		{"debug quiet", Debug, false, false},
		{"info", Info, false, true},
		{"warn", Warn, false, true},
		{"error", Error, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, false, &buf)

			tt.log("level test", "session", "abcd1234")

			if got := strings.Contains(buf.String(), "level test"); got != tt.shown {
				t.Errorf("message shown = %v, want %v; output: %s", got, tt.shown, buf.String())
			}
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	logger := With("session", "abcd1234")
	if logger == nil {
		t.Error("With() returned nil")
	}

	logger.Info("with test")

	output := buf.String()
	if !strings.Contains(output, "with test") {
		t.Errorf("Expected 'with test' in output, got: %s", output)
	}
	if !strings.Contains(output, "session=abcd1234") {
		t.Errorf("Expected the session attribute in output, got: %s", output)
	}
}

func TestSetup_NilWriter(t *testing.T) {
	// Should not panic with nil writer
	Setup(false, false, nil)

	// Logger should still work (writes to stderr)
	if Logger == nil {
		t.Error("Logger should not be nil after Setup with nil writer")
	}
}

func TestAttachFile_TeesToBoth(t *testing.T) {
	var console, file bytes.Buffer
	Setup(false, false, &console)
	AttachFile(&file)

	Info("tee message", "key", "value")
	Debug("file only")

	if !strings.Contains(console.String(), "tee message") {
		t.Errorf("console missing message: %s", console.String())
	}
	if !strings.Contains(file.String(), `"msg":"tee message"`) {
		t.Errorf("file missing JSON message: %s", file.String())
	}
	if strings.Contains(console.String(), "file only") {
		t.Errorf("debug message leaked to non-verbose console: %s", console.String())
	}
	if !strings.Contains(file.String(), "file only") {
		t.Errorf("file should record debug messages: %s", file.String())
	}
}

func TestUserOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	SetUserOutput(&out, &errOut)
	defer SetUserOutput(os.Stderr, os.Stderr)

	UserInfo("hello %s", "world")
	UserSuccess("done")
	UserWarning("careful")
	UserError("broken")

	if got := out.String(); got != "ℹ hello world\n✓ done\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "⚠ careful\n✗ broken\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestIsTerminal_Buffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
