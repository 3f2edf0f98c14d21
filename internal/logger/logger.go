package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

// Logger provides leveled logging functionality
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	info    *log.Logger
	warn    *log.Logger
	debug   *log.Logger
	error   *log.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(false, os.Stderr)
)

// New creates a new logger instance writing to output
func New(verbose bool, output io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		verbose: verbose,
		info:    log.New(output, "[INFO]  ", flags),
		warn:    log.New(output, "[WARN]  ", flags),
		debug:   log.New(output, "[DEBUG] ", flags),
		error:   log.New(output, "[ERROR] ", flags),
	}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return New(false, io.Discard)
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the default logger instance
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// OrDefault returns l, or the default logger when l is nil
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return Default()
}

// SetVerbose enables or disables verbose logging
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose logging is enabled
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Info logs an informational message (always shown)
func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(format, args...)
}

// Warn logs a warning (always shown)
func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(format, args...)
}

// Debug logs a debug message (only shown if verbose is enabled)
func (l *Logger) Debug(format string, args ...any) {
	if l.IsVerbose() {
		l.debug.Printf(format, args...)
	}
}

// Error logs an error message (always shown)
func (l *Logger) Error(format string, args ...any) {
	l.error.Printf(format, args...)
}

// Package-level functions that use the default logger

// SetVerbose enables or disables verbose logging on the default logger
func SetVerbose(verbose bool) {
	Default().SetVerbose(verbose)
}

// Info logs an informational message using the default logger
func Info(format string, args ...any) {
	Default().Info(format, args...)
}

// Warn logs a warning using the default logger
func Warn(format string, args ...any) {
	Default().Warn(format, args...)
}

// Debug logs a debug message using the default logger (only shown if verbose is enabled)
func Debug(format string, args ...any) {
	Default().Debug(format, args...)
}

// Error logs an error message using the default logger
func Error(format string, args ...any) {
	Default().Error(format, args...)
}
