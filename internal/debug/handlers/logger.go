package handlers

import (
	"context"
	"log/slog"
)

// LogLevel is a log sink level.
type LogLevel string

const (
	LevelWarning  LogLevel = "warning"
	LevelCritical LogLevel = "critical"
)

// SlogLevelCritical sits above slog.LevelError.
const SlogLevelCritical = slog.Level(12)

// Logger is the sink LogErrorHandler writes to.
type Logger interface {
	Log(level LogLevel, message string)
}

// SlogLogger writes to a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts logger, or slog.Default() when it is nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

func (s *SlogLogger) Log(level LogLevel, message string) {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), toSlogLevel(level), message)
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelWarning:
		return slog.LevelWarn
	case LevelCritical:
		return SlogLevelCritical
	default:
		return slog.LevelError
	}
}
