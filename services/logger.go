package services

import (
	"log/slog"
	"sync/atomic"
)

var serviceLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used by package-level service functions
func SetLogger(l *slog.Logger) {
	serviceLogger.Store(l)
}

func logger() *slog.Logger {
	if l := serviceLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
