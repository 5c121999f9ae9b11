package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, runStart.Format("20060102_150405")),
	)
}

// NewZerolog builds the zerolog logger handed to the database and influx
// managers. Level strings follow the slog ones.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = zerolog.DebugLevel
	case "WARN":
		lvl = zerolog.WarnLevel
	case "ERROR":
		lvl = zerolog.ErrorLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
