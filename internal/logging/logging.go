// Package logging wires slog-based logging for the engine: a manager
// that fans records out to console, session log file and an optional
// OTel bridge, plus adapters for collaborators with their own logger
// interfaces.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds a session log file path using OS-appropriate path
// separators.
func LogFilePath(logsDir, engineName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", engineName, sessionStart.Format("20060102_150405")),
	)
}
