package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

func TestLogInit_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(nil)

	LogInit("warn")
	Logger.Info().Msg("quiet")
	Logger.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info message written at warn level: %s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn message missing: %s", out)
	}

	buf.Reset()
	LogInit("disabled")
	Logger.Error().Msg("nothing")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}

func TestSetLogFile(t *testing.T) {
	defer SetLogOutput(nil)
	path := filepath.Join(t.TempDir(), "device.log")

	if err := SetLogFile(path); err != nil {
		t.Fatalf("SetLogFile(%s) = %v", path, err)
	}
	// loggers copied before a reopen keep writing to the same sink
	LogInit("info")
	copied := Logger
	if err := SetLogFile(path); err != nil {
		t.Fatalf("reopening the same file = %v", err)
	}
	copied.Info().Msg("to the file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to the file") {
		t.Errorf("log file missing message: %q", data)
	}

	var buf bytes.Buffer
	if err := SetLogFile(""); err != nil {
		t.Fatal(err)
	}
	SetLogOutput(&buf)
	// an empty path does not undo an explicit writer
	if err := SetLogFile(""); err != nil {
		t.Fatal(err)
	}
	copied.Warn().Msg("to the buffer")
	if !strings.Contains(buf.String(), "to the buffer") {
		t.Errorf("buffer missing message: %q", buf.String())
	}
}

func TestSetLogFile_BadPath(t *testing.T) {
	defer SetLogOutput(nil)
	if err := SetLogFile(filepath.Join(t.TempDir(), "missing", "device.log")); err == nil {
		t.Error("SetLogFile into a missing directory should fail")
	}
}
