// Package logging provides the process-wide level-based logger used by the
// pipeline runner, worker daemon, and agent drivers. Everything goes to
// stderr so it never collides with an agent CLI's own stdout protocol (a
// single JSON envelope or JSON-lines stream).
package logging

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	debugEnabled bool
	infoLogger   *log.Logger
	debugLogger  *log.Logger
	warnLogger   *log.Logger
	errorLogger  *log.Logger
}

var globalLogger *Logger

// Initialize sets up the global logger. Call once at process startup.
func Initialize(debugMode bool) {
	var output io.Writer = os.Stderr

	globalLogger = &Logger{
		debugEnabled: debugMode,
		infoLogger:   log.New(output, "INFO  ", log.LstdFlags),
		debugLogger:  log.New(output, "DEBUG ", log.LstdFlags),
		warnLogger:   log.New(output, "WARN  ", log.LstdFlags),
		errorLogger:  log.New(output, "ERROR ", log.LstdFlags),
	}
}

func ensure() {
	if globalLogger == nil {
		Initialize(false)
	}
}

func Info(format string, args ...interface{}) {
	ensure()
	globalLogger.infoLogger.Printf(format, args...)
}

func Debug(format string, args ...interface{}) {
	ensure()
	if globalLogger.debugEnabled {
		globalLogger.debugLogger.Printf(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	ensure()
	globalLogger.warnLogger.Printf(format, args...)
}

func Error(format string, args ...interface{}) {
	ensure()
	globalLogger.errorLogger.Printf(format, args...)
}

func IsDebugEnabled() bool {
	ensure()
	return globalLogger.debugEnabled
}
