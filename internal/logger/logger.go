// Package logger provides a process-wide zap logger for utxocore components.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var log *zap.Logger

// Init initializes the logger for the given environment ("production" or
// "development"). Development mode uses a human-readable console encoder
// and enables debug-level output; any other value falls back to the
// production JSON encoder.
func Init(env string) error {
	var cfg zap.Config
	if strings.EqualFold(env, "development") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	log = built
	return nil
}

// checkLogger ensures the logger is initialized
func checkLogger() {
	if log == nil {
		panic(fmt.Errorf("logger not initialized, call logger.Init() first"))
	}
}

// Named returns a child logger scoped to a component name, e.g.
// logger.Named("fetcher") so log lines can be filtered per C1-C7 component.
func Named(component string) *zap.Logger {
	checkLogger()
	return log.Named(component)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	checkLogger()
	log.Info(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	checkLogger()
	log.Error(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	checkLogger()
	log.Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	checkLogger()
	log.Warn(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	checkLogger()
	log.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	checkLogger()
	return log.Sync()
}
