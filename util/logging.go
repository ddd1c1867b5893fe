package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// logSink is the writer every logger built by LogInit shares, so loggers
// copied out of Logger follow later output changes.
type logSink struct {
	mu   sync.Mutex
	w    io.Writer
	file *os.File
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// swap installs w (and the file backing it, if any) and closes the file
// it replaces.
func (s *logSink) swap(w io.Writer, file *os.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil && s.file != file {
		_ = s.file.Close()
	}
	s.w = w
	s.file = file
}

var (
	Logger    zerolog.Logger = zerolog.Nop()
	logOutput                = &logSink{w: os.Stderr}
)

// SetLogOutput redirects logging; nil restores stderr.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput.swap(w, nil)
}

// SetLogFile appends logging to path. An empty path moves logging from a
// previously set file back to stderr and leaves any other output alone.
// Reopening the file already in use is a no-op.
func SetLogFile(path string) error {
	logOutput.mu.Lock()
	current := logOutput.file
	logOutput.mu.Unlock()

	if path == "" {
		if current != nil {
			logOutput.swap(os.Stderr, nil)
		}
		return nil
	}
	if current != nil && current.Name() == path {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logOutput.swap(f, f)
	return nil
}

func ParseLevel(inlevel string) zerolog.Level {
	switch strings.ToLower(inlevel) {
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func LogInit(inlevel string) {
	level := ParseLevel(inlevel)
	Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.RFC3339, NoColor: true},
	).Level(level).With().Timestamp().Caller().Logger()

	Logger.Info().Msgf("logging initialized at level %v", level)
}
