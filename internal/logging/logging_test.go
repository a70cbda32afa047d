package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 7, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			t.Setenv("XDG_STATE_HOME", tempDir)

			SetupLogger(tt.verbosity)

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("SetupLogger(%d) set level to %v, want %v",
					tt.verbosity, zerolog.GlobalLevel(), tt.wantLevel)
			}

			logPath := filepath.Join(tempDir, "steerkit", "steerkit.log")
			if _, err := os.Stat(logPath); os.IsNotExist(err) {
				t.Errorf("log file was not created at %s", logPath)
			}
		})
	}
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")
	if got := LogFilePath(); got != filepath.Join("/custom/state", "steerkit", "steerkit.log") {
		t.Errorf("LogFilePath() = %q", got)
	}
}

func TestGetLogger(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	defer func() { log.Logger = orig }()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := GetLogger("installer")
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"installer"`) {
		t.Errorf("missing component field: %s", buf.String())
	}
}
