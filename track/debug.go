package track

import (
	"os"

	"go.uber.org/zap"
)

// Package-wide debug switch for verbose logging in the tracking stack.
// Default is off to keep logs clean unless explicitly enabled by tests or
// callers.
var DebugLogsEnabled = false

func init() {
	if os.Getenv("TRACK_DEBUG") == "1" || os.Getenv("TRACK_DEBUG") == "true" {
		DebugLogsEnabled = true
	}
}

// EnableDebugLogs toggles all tracking debug logs. This is the single public
// entrypoint for enabling verbose logging without wiring a logger.
func EnableDebugLogs(on bool) { DebugLogsEnabled = on }

// defaultLogger returns the logger used when no WithLogger option is given:
// a development logger when debug logging is on, a nop logger otherwise.
func defaultLogger() *zap.SugaredLogger {
	if !DebugLogsEnabled {
		return zap.NewNop().Sugar()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
