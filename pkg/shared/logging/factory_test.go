package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWithFile_NoFileConfig(t *testing.T) {
	logger, closer, err := NewLoggerWithFile("test", LevelInfo, false, nil)
	if err != nil {
		t.Fatalf("Expected no error with nil config, got: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewLoggerWithFile_EmptyPath(t *testing.T) {
	logger, closer, err := NewLoggerWithFile("test", LevelInfo, false, &FileRotationConfig{Path: ""})
	if err != nil {
		t.Fatalf("Expected no error with empty path, got: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
	_ = closer.Close()
}

func TestNewLoggerWithFile_WithFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gateway.log")

	logger, closer, err := NewLoggerWithFile("test", LevelInfo, false, &FileRotationConfig{
		Path:       logPath,
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAge:     7,
	})
	if err != nil {
		t.Fatalf("Failed to create logger with file: %v", err)
	}

	logger.Info("Forwarded request", "service", "openai")
	logger.Warn("Credential missing", "credential", "GEMINI_API_KEY")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	contentStr := string(content)
	for _, want := range []string{"Forwarded request", "service=openai", "credential=GEMINI_API_KEY"} {
		if !strings.Contains(contentStr, want) {
			t.Errorf("Log file does not contain %q", want)
		}
	}
}

func TestNewLoggerWithFile_MultipleModules(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gateway.log")

	logger, closer, err := NewLoggerWithFile("main", LevelInfo, false, &FileRotationConfig{Path: logPath})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	gwLogger := logger.WithModule("gateway")
	accessLogger := gwLogger.WithModule("access")

	logger.Info("Main module message")
	gwLogger.Info("Gateway module message")
	accessLogger.Info("Access module message")
	_ = closer.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	contentStr := string(content)
	for _, marker := range []string{"[main]", "[main/gateway]", "[main/gateway/access]"} {
		if !strings.Contains(contentStr, marker) {
			t.Errorf("Missing module marker %s", marker)
		}
	}
}

func TestNewLoggerWithFile_NoColorsInFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gateway.log")

	// Colors requested but must be ignored for file output
	logger, closer, err := NewLoggerWithFile("test", LevelInfo, true, &FileRotationConfig{Path: logPath})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message")
	_ = closer.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if strings.Contains(string(content), "\033[") {
		t.Error("Log file contains ANSI color codes")
	}
	if !strings.Contains(string(content), "Error message") {
		t.Error("Error message not found in log file")
	}
}
