package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileRotationConfig contains file logging rotation settings
type FileRotationConfig struct {
	Path       string // Log file path (required)
	MaxSizeMB  int    // Maximum size in megabytes before rotation (default: 100)
	MaxBackups int    // Maximum number of old log files to retain (default: 3)
	MaxAge     int    // Maximum number of days to retain old log files (default: 28)
	Compress   bool   // Whether to compress rotated log files (default: false)
}

// nopCloser is returned when no log file is opened
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLoggerWithFile creates a logger that writes to stdout and, when fileConfig
// has a path, to a rotated log file as well. Colors are disabled whenever a file
// is written so that the file never contains ANSI escape codes.
// The returned Closer releases the log file and must be closed on shutdown.
func NewLoggerWithFile(module string, level Level, useColors bool, fileConfig *FileRotationConfig) (*SimpleLogger, io.Closer, error) {
	if fileConfig == nil || fileConfig.Path == "" {
		return NewSimpleLogger(module, level, useColors), nopCloser{}, nil
	}

	fileWriter := &lumberjack.Logger{
		Filename:   fileConfig.Path,
		MaxSize:    orDefault(fileConfig.MaxSizeMB, 100),
		MaxBackups: orDefault(fileConfig.MaxBackups, 3),
		MaxAge:     orDefault(fileConfig.MaxAge, 28),
		Compress:   fileConfig.Compress,
	}

	w := io.MultiWriter(os.Stdout, fileWriter)
	return NewSimpleLoggerWithWriter(module, level, false, w), fileWriter, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
