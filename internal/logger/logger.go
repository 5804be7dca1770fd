// Package logger configures the application-wide slog logger. While the TUI
// owns the terminal all output goes to a file under the XDG state directory;
// in plain CLI paths (argument errors, cache subcommands) stderr is added.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var defaultLogger *slog.Logger

var level = new(slog.LevelVar)

// logFilePath determines the log file location based on the XDG spec.
func logFilePath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "redland-forge", "app.log"), nil
}

// Init sets up the default logger. When tui is true the stderr sink is
// suppressed so log lines cannot corrupt the display; they still reach the
// state-dir file. Must be called once before any logging.
func Init(tui bool, debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var writers []io.Writer
	if path, err := logFilePath(); err == nil {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0750); mkErr == nil {
			if file, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); openErr == nil {
				writers = append(writers, file)
			} else {
				fmt.Fprintf(os.Stderr, "Error opening log file %s: %v. File logging disabled.\n", path, openErr)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error creating log directory for %s: %v. File logging disabled.\n", path, mkErr)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Error determining log file path: %v. File logging disabled.\n", err)
	}
	if !tui {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	defaultLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetLogger replaces the default logger. Used by tests.
func SetLogger(l *slog.Logger) { defaultLogger = l }

func checkLogger() {
	if defaultLogger == nil {
		Init(false, false)
	}
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	checkLogger()
	defaultLogger.Info(msg, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

// Error logs an error message.
func Error(msg string, args ...any) {
	checkLogger()
	defaultLogger.Error(msg, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Error(fmt.Sprintf(format, v...))
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	checkLogger()
	defaultLogger.Debug(msg, args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Debug(fmt.Sprintf(format, v...))
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	checkLogger()
	defaultLogger.Warn(msg, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}
